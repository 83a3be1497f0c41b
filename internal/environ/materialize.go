// SPDX-License-Identifier: MPL-2.0

package environ

import (
	"context"
	"errors"
	"fmt"

	"github.com/bootrunner/bootrunner/internal/assets"
	"github.com/bootrunner/bootrunner/internal/paths"

	"github.com/charmbracelet/log"
)

const (
	// HomeVar points at the files root.
	HomeVar = "HOME"
	// TempVar points at the cache root.
	TempVar = "TMPDIR"
	// ResultsVar points at the results root.
	ResultsVar = "TEST_RESULTS_DIR"
)

var (
	// ErrResolvePaths is returned when the files or cache root cannot be prepared.
	ErrResolvePaths = errors.New("cannot resolve runtime directories")
	// ErrExtraction is returned when extraction fails under assets.PolicyFatal.
	ErrExtraction = errors.New("asset extraction failed")
)

type (
	// Options configures Materialize.
	Options struct {
		// Paths derives the files, cache and results roots.
		Paths paths.Resolver
		// Archive is the asset archive to deploy; nil skips extraction.
		Archive *assets.Source
		// Policy decides whether an extraction failure stops materialization.
		Policy assets.Policy
		// Overlay holds the caller's variables, applied after the fixed ones.
		Overlay *Overlay
		// Setter receives every assignment. Defaults to ProcessSetter.
		Setter Setter
		// Logger defaults to log.Default().
		Logger *log.Logger
	}

	// Result describes what Materialize did.
	Result struct {
		Layout paths.Layout
		Stats  assets.Stats
		// ExtractErr holds an extraction failure that was tolerated under
		// assets.PolicySoft.
		ExtractErr error
	}
)

// FixedVars returns the variables every run receives, in application order.
func FixedVars(layout paths.Layout) []Var {
	return []Var{
		{Name: HomeVar, Value: layout.FilesRoot},
		{Name: TempVar, Value: layout.CacheRoot},
		{Name: ResultsVar, Value: layout.ResultsRoot},
	}
}

// Materialize prepares the process environment for the runtime: it resolves
// the directory layout, deploys the asset archive into the files root, sets
// the fixed variables and finally applies the caller overlay, so caller
// values win over fixed ones.
//
// On error the returned Result still carries whatever was completed.
func Materialize(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	setter := opts.Setter
	if setter == nil {
		setter = ProcessSetter{}
	}
	policy := opts.Policy
	if policy == "" {
		policy = assets.PolicySoft
	}

	res := &Result{}

	layout, err := opts.Paths.Resolve()
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrResolvePaths, err)
	}
	res.Layout = layout
	if layout.ResultsFallback != "" {
		logger.Debug("results stored in cache root", "reason", layout.ResultsFallback)
	}

	if opts.Archive != nil {
		logger.Debug("extracting assets", "archive", opts.Archive.String(), "dest", layout.FilesRoot)
		ex := assets.Extractor{Logger: logger}
		res.Stats, err = ex.Extract(ctx, *opts.Archive, layout.FilesRoot)
		switch {
		case err == nil:
			logger.Info("assets extracted", "files", res.Stats.Files, "bytes", res.Stats.Bytes)
		case ctx.Err() != nil:
			return res, err
		case policy == assets.PolicyFatal:
			logger.Error("asset extraction failed", "err", err)
			return res, fmt.Errorf("%w: %w", ErrExtraction, err)
		default:
			logger.Error("asset extraction failed, continuing", "err", err)
			res.ExtractErr = err
		}
	}

	if err := ApplyVars(setter, FixedVars(layout)); err != nil {
		return res, err
	}
	if err := opts.Overlay.Apply(setter); err != nil {
		return res, err
	}
	return res, nil
}
