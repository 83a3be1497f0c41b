// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bootrunner/bootrunner/internal/assets"
	"github.com/bootrunner/bootrunner/internal/bridge"
	"github.com/bootrunner/bootrunner/internal/environ"
	"github.com/bootrunner/bootrunner/internal/invocation"
	"github.com/bootrunner/bootrunner/internal/paths"
	"github.com/bootrunner/bootrunner/internal/report"

	"github.com/charmbracelet/log"
)

// ExitConfigError is the return code reported when no run could be attempted.
const ExitConfigError = 1

// EntryPointHint tells the user how to name the entry point.
const EntryPointHint = "pass '-e " + invocation.EntryPointKey + "=<name.dll>'"

var (
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("runner already started")
	// ErrNoEntryPoint is reported when neither configuration nor arguments name an entry point.
	ErrNoEntryPoint = errors.New("no entry point configured")
	// ErrDeliver is returned when the result bundle cannot be delivered.
	ErrDeliver = errors.New("cannot deliver result")
)

type (
	// Options configures a Runner.
	Options struct {
		// Invocation is the classified argument set. Required.
		Invocation *invocation.Invocation
		// Paths derives the directory layout.
		Paths paths.Resolver
		// Archive is the asset archive; nil skips extraction.
		Archive *assets.Source
		// Policy decides whether an extraction failure stops the run.
		Policy assets.Policy
		// Native is the runtime backend. Required.
		Native bridge.Native
		// Bridge carries clock settings for the bridge. Its Logger is ignored.
		Bridge bridge.Options
		// ProcessEnv receives every variable alongside the runtime.
		// Defaults to environ.ProcessSetter.
		ProcessEnv environ.Setter
		// Completer receives the result bundle. Required.
		Completer report.Completer
		// Logger defaults to log.Default().
		Logger *log.Logger
	}

	// Outcome is what Start produced.
	Outcome struct {
		// ExitCode is the code the host process should exit with.
		ExitCode int
		// Bundle is the result bundle, if one was built.
		Bundle report.Bundle
		// Delivered reports whether the completer accepted the bundle.
		Delivered bool
	}

	// Runner owns one bridge for one run.
	Runner struct {
		opts    Options
		logger  *log.Logger
		bridge  *bridge.Bridge
		started atomic.Bool
	}

	// MaterializeError reports that the environment could not be prepared,
	// so the runtime was never initialized.
	MaterializeError struct {
		Err error
	}
)

// New creates a Runner.
func New(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if opts.ProcessEnv == nil {
		opts.ProcessEnv = environ.ProcessSetter{}
	}
	if opts.Invocation == nil {
		opts.Invocation = &invocation.Invocation{Overlay: environ.NewOverlay()}
	}
	bopts := opts.Bridge
	bopts.Logger = logger
	return &Runner{
		opts:   opts,
		logger: logger,
		bridge: bridge.New(opts.Native, bopts),
	}
}

// Bridge returns the bridge driving the runtime.
func (r *Runner) Bridge() *bridge.Bridge {
	return r.bridge
}

// Start performs the run. It may be called only once.
//
// Without an entry point a completion with ExitConfigError is delivered and
// the runtime is never touched. If initialization fails the returned error is
// a *bridge.InitError, the outcome's exit code is its status and no completion
// is delivered. Otherwise the entry point's return code is delivered with the
// results path and returned as the exit code.
//
// ctx is honored until execution begins.
func (r *Runner) Start(ctx context.Context) (Outcome, error) {
	if !r.started.CompareAndSwap(false, true) {
		return Outcome{}, ErrAlreadyStarted
	}

	inv := r.opts.Invocation
	if !inv.HasEntryPoint() {
		r.logger.Error("no entry point configured", "hint", EntryPointHint)
		return r.complete(report.Bundle{ReturnCode: ExitConfigError}, ErrNoEntryPoint)
	}

	res, err := environ.Materialize(ctx, environ.Options{
		Paths:   r.opts.Paths,
		Archive: r.opts.Archive,
		Policy:  r.opts.Policy,
		Overlay: inv.Overlay,
		Setter:  environ.MultiSetter{r.opts.ProcessEnv, r.bridge},
		Logger:  r.logger,
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		r.bridge.Release()
		return r.complete(report.Bundle{ReturnCode: ExitConfigError}, &MaterializeError{Err: err})
	}

	if err := r.bridge.Initialize(res.Layout.FilesRoot, inv.EntryPoint); err != nil {
		var ie *bridge.InitError
		if errors.As(err, &ie) {
			return Outcome{ExitCode: ie.Status}, err
		}
		return Outcome{ExitCode: ExitConfigError}, err
	}

	code, err := r.bridge.Execute(inv.EntryPoint, inv.Args)
	if err != nil {
		// Destroy won the race with Initialize; nothing ran.
		return Outcome{ExitCode: ExitConfigError}, err
	}

	r.logger.Info("finished", "return-code", code)
	b := report.Build(code, res.Layout.ResultsRoot)
	if b.HasResultsPath() {
		r.logger.Info("test results found", "test-results-path", b.TestResultsPath)
	}
	return r.complete(b, nil)
}

// Destroy releases the runtime. It is safe to call at any time and any number
// of times; it reports whether this call freed the runtime.
func (r *Runner) Destroy() bool {
	freed := r.bridge.Release()
	r.logger.Debug("destroy", "state", r.bridge.State(), "freed", freed)
	return freed
}

// complete delivers b and returns cause, or the delivery failure if there is
// no cause.
func (r *Runner) complete(b report.Bundle, cause error) (Outcome, error) {
	out := Outcome{ExitCode: b.ReturnCode, Bundle: b}
	if err := r.opts.Completer.Finish(b.ReturnCode, b); err != nil {
		r.logger.Error("result delivery failed", "err", err)
		if cause == nil {
			cause = fmt.Errorf("%w: %w", ErrDeliver, err)
		}
		return out, cause
	}
	out.Delivered = true
	return out, cause
}

// Error implements the error interface.
func (e *MaterializeError) Error() string {
	return fmt.Sprintf("prepare environment: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *MaterializeError) Unwrap() error { return e.Err }
