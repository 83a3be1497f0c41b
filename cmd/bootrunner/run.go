// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bootrunner/bootrunner/internal/assets"
	"github.com/bootrunner/bootrunner/internal/bridge"
	"github.com/bootrunner/bootrunner/internal/config"
	"github.com/bootrunner/bootrunner/internal/environ"
	"github.com/bootrunner/bootrunner/internal/invocation"
	"github.com/bootrunner/bootrunner/internal/issue"
	"github.com/bootrunner/bootrunner/internal/lifecycle"
	"github.com/bootrunner/bootrunner/internal/paths"
	"github.com/bootrunner/bootrunner/internal/report"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// runOptions holds the run and extract command flags. Flags override the
// configuration only when given.
type runOptions struct {
	extra    []string
	argsFile string

	bridge          string
	library         string
	preciseClock    bool
	archive         string
	noArchive       bool
	policy          string
	format          string
	output          string
	filesDir        string
	cacheDir        string
	documentsDir    string
	platformVersion int
}

func newRunCommand(app *App, ro *rootOptions) *cobra.Command {
	o := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [key=value...]",
		Short: "Run the entry point and report its result",
		Long: `Run prepares the environment, initializes the runtime for the entry point,
executes it once and writes the result bundle.

Arguments come from --args-file first, then -e flags, then positional
key=value pairs, in that order. Later entries override earlier ones.

The process exits with the entry point's return code, or with the
initialization status when the runtime fails to start.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBootstrap(cmd, app, ro, o, args)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&o.extra, "extra", "e", nil, "invocation argument as key=value (repeatable)")
	f.StringVar(&o.argsFile, "args-file", "", "JSON object of invocation arguments")
	f.StringVar(&o.bridge, "bridge", "", "runtime bridge: native or virtual")
	f.StringVar(&o.library, "library", "", "shared library for the native bridge")
	f.BoolVar(&o.preciseClock, "precise-clock", true, "pass the DST-aware UTC offset to the runtime")
	f.StringVar(&o.format, "format", "", "result format: json, instrumentation, yaml or toml")
	f.StringVarP(&o.output, "output", "o", "", "write the result bundle to a file instead of stdout")
	addEnvironmentFlags(cmd, o)

	return cmd
}

// addEnvironmentFlags registers the flags that shape the prepared environment.
func addEnvironmentFlags(cmd *cobra.Command, o *runOptions) {
	f := cmd.Flags()
	f.StringVar(&o.archive, "archive", "", "asset archive (.zip, .tar.gz or .tar.zst)")
	f.BoolVar(&o.noArchive, "no-archive", false, "skip asset extraction")
	f.StringVar(&o.policy, "extraction-policy", "", "extraction failure handling: soft or fatal")
	f.StringVar(&o.filesDir, "files-dir", "", "directory receiving the assets; becomes HOME")
	f.StringVar(&o.cacheDir, "cache-dir", "", "cache directory; becomes TMPDIR")
	f.StringVar(&o.documentsDir, "documents-dir", "", "preferred test results directory")
	f.IntVar(&o.platformVersion, "platform-version", 0, "host platform version")
	cmd.MarkFlagsMutuallyExclusive("archive", "no-archive")
}

// apply copies every flag the user set into cfg and validates the result.
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("bridge") {
		cfg.Runtime.Bridge = config.BridgeKind(o.bridge)
	}
	if changed("library") {
		cfg.Runtime.Library = o.library
	}
	if changed("precise-clock") {
		cfg.Runtime.PreciseClock = o.preciseClock
	}
	if changed("archive") {
		cfg.Assets.Archive = o.archive
	}
	if changed("extraction-policy") {
		cfg.Assets.ExtractionPolicy = assets.Policy(o.policy)
	}
	if changed("format") {
		format, err := report.ParseFormat(o.format)
		if err != nil {
			return err
		}
		cfg.Report.Format = format
	}
	if changed("output") {
		cfg.Report.Output = o.output
	}
	if changed("files-dir") {
		cfg.Paths.FilesDir = o.filesDir
	}
	if changed("cache-dir") {
		cfg.Paths.CacheDir = o.cacheDir
	}
	if changed("documents-dir") {
		cfg.Paths.DocumentsDir = o.documentsDir
	}
	if changed("platform-version") {
		cfg.Platform.Version = o.platformVersion
	}

	if ok, errs := cfg.IsValid(); !ok {
		return errs[0]
	}
	return nil
}

// entries collects the invocation arguments in precedence order.
func (o *runOptions) entries(positional []string) ([]invocation.Entry, error) {
	var entries []invocation.Entry
	if o.argsFile != "" {
		fromFile, err := invocation.LoadEntries(o.argsFile)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fromFile...)
	}
	for _, pairs := range [][]string{o.extra, positional} {
		parsed, err := invocation.ParsePairs(pairs)
		if err != nil {
			return nil, err
		}
		entries = append(entries, parsed...)
	}
	return entries, nil
}

// archiveSource returns the archive to extract, or nil when extraction is
// skipped. A missing archive at the default location is not an error; an
// explicitly configured one is left to the extraction policy.
func (o *runOptions) archiveSource(cfg *config.Config, logger *log.Logger) *assets.Source {
	if o.noArchive {
		return nil
	}
	if cfg.Assets.Archive == config.DefaultConfig().Assets.Archive {
		if _, err := os.Stat(cfg.Assets.Archive); errors.Is(err, os.ErrNotExist) {
			logger.Debug("no asset archive next to the executable", "path", cfg.Assets.Archive)
			return nil
		}
	}
	src := assets.FileSource(cfg.Assets.Archive)
	return &src
}

func runBootstrap(cmd *cobra.Command, app *App, ro *rootOptions, o *runOptions, args []string) error {
	ctx := cmd.Context()

	cfg, cfgPath, err := app.loadConfig(ctx, ro)
	if err != nil {
		return app.fail(cmd, ro, err, 1)
	}
	if err := o.apply(cmd, cfg); err != nil {
		return app.fail(cmd, ro, newServiceError(err, issue.InvalidArgumentsId), 1)
	}

	logger := app.newLogger(cfg.Log, ro.verbose)
	logger.Debug("configuration loaded", "path", cfgPath, "bridge", cfg.Runtime.Bridge)

	entries, err := o.entries(args)
	if err != nil {
		return app.fail(cmd, ro, newServiceError(err, issue.InvalidArgumentsId), 1)
	}
	classifier := invocation.Classifier{DefaultEntryPoint: cfg.EntryPoint, Logger: logger}
	inv := classifier.Classify(entries)

	out, closeOut, err := app.openOutput(cfg.Report.Output)
	if err != nil {
		return app.fail(cmd, ro, newServiceError(err, issue.ResultDeliveryFailedId), 1)
	}
	defer closeOut()

	completer, err := report.NewCompleter(cfg.Report.Format, out)
	if err != nil {
		return app.fail(cmd, ro, newServiceError(err, issue.InvalidArgumentsId), 1)
	}

	backend, err := app.Backends.Open(ctx, cfg.Runtime, app.streams(), logger)
	if err != nil {
		return app.fail(cmd, ro, newServiceError(err, issue.LibraryLoadFailedId), 1)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("closing runtime backend failed", "err", err)
		}
	}()

	runner := lifecycle.New(lifecycle.Options{
		Invocation: inv,
		Paths:      cfg.Resolver(),
		Archive:    o.archiveSource(cfg, logger),
		Policy:     cfg.Assets.ExtractionPolicy,
		Native:     backend,
		Bridge:     bridge.Options{PreciseClock: cfg.Runtime.PreciseClock},
		ProcessEnv: app.ProcessEnv,
		Completer:  completer,
		Logger:     logger,
	})
	defer runner.Destroy()
	stop := context.AfterFunc(ctx, func() { runner.Destroy() })
	defer stop()

	outcome, err := runner.Start(ctx)
	if err != nil {
		return app.fail(cmd, ro, classifyRunError(err), outcome.ExitCode)
	}
	if outcome.ExitCode != 0 {
		cmd.SilenceErrors = true
		return &ExitError{Code: outcome.ExitCode}
	}
	return nil
}

// classifyRunError attaches the issue catalog entry matching a run failure.
func classifyRunError(err error) *ServiceError {
	var initErr *bridge.InitError
	switch {
	case errors.Is(err, lifecycle.ErrNoEntryPoint):
		return newServiceError(err, issue.NoEntryPointId)
	case errors.As(err, &initErr):
		return newServiceError(err, issue.RuntimeInitFailedId)
	case errors.Is(err, environ.ErrExtraction):
		return newServiceError(err, issue.ArchiveExtractionFailedId)
	case errors.Is(err, lifecycle.ErrDeliver):
		return newServiceError(err, issue.ResultDeliveryFailedId)
	default:
		return newServiceError(err, 0)
	}
}

// openOutput returns the result bundle destination: path, or stdout when
// path is empty.
func (a *App) openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return a.stdout, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
