// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/bootrunner/bootrunner/internal/bridge"
	"github.com/bootrunner/bootrunner/internal/bridge/dynlib"
	"github.com/bootrunner/bootrunner/internal/bridge/virtual"
	"github.com/bootrunner/bootrunner/internal/config"
	"github.com/bootrunner/bootrunner/internal/environ"

	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer; every command handler receives an App.
	App struct {
		Config     config.Provider
		Backends   BackendOpener
		ProcessEnv environ.Setter
		stdin      io.Reader
		stdout     io.Writer
		stderr     io.Writer
		isTerminal func(io.Writer) bool
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config   config.Provider
		Backends BackendOpener
		// ProcessEnv receives every variable the run sets. Defaults to the
		// process environment.
		ProcessEnv environ.Setter
		Stdin      io.Reader
		Stdout     io.Writer
		Stderr     io.Writer
		// IsTerminal reports whether a stream is an interactive terminal.
		IsTerminal func(io.Writer) bool
	}

	// Backend is an opened runtime backend.
	Backend interface {
		bridge.Native
		// Close drops the backend after its resources were released.
		Close() error
	}

	// BackendOpener opens the runtime backend named by the configuration.
	BackendOpener interface {
		Open(ctx context.Context, rt config.RuntimeConfig, streams Streams, logger *log.Logger) (Backend, error)
	}

	// Streams are the standard streams handed to the entry point.
	Streams struct {
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	defaultBackends struct{}

	// virtualBackend adapts the script runtime, which holds no handle to close.
	virtualBackend struct {
		*virtual.Runtime
	}
)

// NewApp creates an App from dependencies, filling in production defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:     deps.Config,
		Backends:   deps.Backends,
		ProcessEnv: deps.ProcessEnv,
		stdin:      deps.Stdin,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
		isTerminal: deps.IsTerminal,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.Backends == nil {
		app.Backends = defaultBackends{}
	}
	if app.ProcessEnv == nil {
		app.ProcessEnv = environ.ProcessSetter{}
	}
	if app.stdin == nil {
		app.stdin = os.Stdin
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	if app.isTerminal == nil {
		app.isTerminal = isTerminal
	}
	return app
}

// Open loads the shared library for the native bridge or creates the script
// runtime for the virtual one.
func (defaultBackends) Open(ctx context.Context, rt config.RuntimeConfig, streams Streams, logger *log.Logger) (Backend, error) {
	switch rt.Bridge {
	case config.BridgeNative:
		lib, err := dynlib.Open(rt.Library)
		if err != nil {
			return nil, err
		}
		logger.Debug("runtime library loaded", "path", lib.Path())
		return lib, nil
	case config.BridgeVirtual:
		return virtualBackend{virtual.New(ctx, virtual.Options{
			Stdin:  streams.Stdin,
			Stdout: streams.Stdout,
			Stderr: streams.Stderr,
			Logger: logger,
		})}, nil
	default:
		_, errs := rt.Bridge.IsValid()
		return nil, errs[0]
	}
}

func (virtualBackend) Close() error { return nil }

// streams returns the streams the entry point inherits.
func (a *App) streams() Streams {
	return Streams{Stdin: a.stdin, Stdout: a.stdout, Stderr: a.stderr}
}

// newLogger builds the run logger. Verbose forces debug level.
func (a *App) newLogger(cfg config.LogConfig, verbose bool) *log.Logger {
	level := cfg.Level.Level()
	if verbose {
		level = log.DebugLevel
	}

	formatter := log.TextFormatter
	switch cfg.Format {
	case config.LogFormatJSON:
		formatter = log.JSONFormatter
	case config.LogFormatAuto:
		if !a.isTerminal(a.stderr) {
			formatter = log.JSONFormatter
		}
	}

	return log.NewWithOptions(a.stderr, log.Options{
		Prefix:          "bootrunner",
		ReportTimestamp: true,
		Level:           level,
		Formatter:       formatter,
	})
}

// issueStyle picks the glamour style for issue help text.
func (a *App) issueStyle() string {
	if a.isTerminal(a.stderr) && os.Getenv("NO_COLOR") == "" {
		return "dark"
	}
	return "notty"
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
