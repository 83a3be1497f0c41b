// SPDX-License-Identifier: MPL-2.0

package virtual

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/bootrunner/bootrunner/internal/environ"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Status codes returned by the runtime.
const (
	StatusOK          = 0
	StatusInvalidName = 1
	StatusNoScript    = 2
	StatusParseError  = 3
	StatusReleased    = 4

	// ExitNotInitialized is returned by ExecEntryPoint before a successful InitRuntime.
	ExitNotInitialized = 1
	// ExitInterpreterError is returned when the interpreter fails for a reason
	// other than the script's own exit status.
	ExitInterpreterError = 1
)

// Variables exported to every script in addition to SetEnv values.
const (
	UTCOffsetVar  = "BOOTRUNNER_UTC_OFFSET"
	EntryPointVar = "BOOTRUNNER_ENTRY_POINT"
	FilesRootVar  = "BOOTRUNNER_FILES_ROOT"
)

type (
	// Options configures a Runtime.
	Options struct {
		// Stdin, Stdout and Stderr are wired to the script. Nil streams
		// default to the process's own.
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
		// CleanEnv starts scripts from an empty environment instead of the
		// host's, so only SetEnv values and the exported variables are set.
		CleanEnv bool
		// Logger defaults to log.Default().
		Logger *log.Logger
	}

	// Runtime runs a shell script as the entry point.
	Runtime struct {
		ctx    context.Context
		opts   Options
		logger *log.Logger

		mu        sync.Mutex
		env       environ.Overlay
		filesRoot string
		offset    int
		prog      *syntax.File
		released  bool
	}
)

// New creates a Runtime. ctx bounds script execution.
func New(ctx context.Context, opts Options) *Runtime {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Runtime{ctx: ctx, opts: opts, logger: logger}
}

// SetEnv records a variable for the script environment.
func (r *Runtime) SetEnv(name, value string) int {
	if err := environ.ValidateName(name); err != nil {
		r.logger.Warn("rejecting environment variable", "err", err)
		return StatusInvalidName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.env.Set(name, value)
	return StatusOK
}

// InitRuntime loads and parses the entry point script.
func (r *Runtime) InitRuntime(filesRoot, entryPoint string, utcOffsetSeconds int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return StatusReleased
	}

	path, err := scriptPath(filesRoot, entryPoint)
	if err != nil {
		r.logger.Error("entry point script not usable", "entry_point", entryPoint, "err", err)
		return StatusNoScript
	}
	f, err := os.Open(path)
	if err != nil {
		r.logger.Error("entry point script not found", "path", path, "err", err)
		return StatusNoScript
	}
	defer f.Close()

	prog, err := syntax.NewParser().Parse(f, entryPoint)
	if err != nil {
		r.logger.Error("entry point script does not parse", "path", path, "err", err)
		return StatusParseError
	}

	r.filesRoot = filesRoot
	r.offset = utcOffsetSeconds
	r.prog = prog
	return StatusOK
}

// ExecEntryPoint runs the parsed script with args as positional parameters.
func (r *Runtime) ExecEntryPoint(entryPoint string, args []string) int {
	r.mu.Lock()
	prog := r.prog
	env := r.environment(entryPoint)
	dir := r.filesRoot
	r.mu.Unlock()

	if prog == nil {
		r.logger.Error("entry point executed before initialization", "entry_point", entryPoint)
		return ExitNotInitialized
	}

	opts := []interp.RunnerOption{
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(r.opts.Stdin, r.opts.Stdout, r.opts.Stderr),
		interp.ExecHandlers(r.execHandler),
	}
	// "--" keeps arguments such as "-e" from being read as shell options.
	opts = append(opts, interp.Params(append([]string{"--"}, args...)...))

	runner, err := interp.New(opts...)
	if err != nil {
		r.logger.Error("cannot create interpreter", "err", err)
		return ExitInterpreterError
	}

	err = runner.Run(r.ctx, prog)
	if err == nil {
		return 0
	}
	var status interp.ExitStatus
	if errors.As(err, &status) {
		return int(status)
	}
	r.logger.Error("script execution failed", "entry_point", entryPoint, "err", err)
	return ExitInterpreterError
}

// FreeNativeResources drops the parsed script and recorded environment.
func (r *Runtime) FreeNativeResources() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prog = nil
	r.env = environ.Overlay{}
	r.released = true
}

// Released reports whether FreeNativeResources was called.
func (r *Runtime) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

// environment returns the script environment, host values first so later
// entries win. Must be called with mu held.
func (r *Runtime) environment(entryPoint string) []string {
	var env []string
	if !r.opts.CleanEnv {
		env = os.Environ()
	}
	for _, v := range r.env.Vars() {
		env = append(env, v.Name+"="+v.Value)
	}
	return append(env,
		UTCOffsetVar+"="+strconv.Itoa(r.offset),
		EntryPointVar+"="+entryPoint,
		FilesRootVar+"="+r.filesRoot,
	)
}

func (r *Runtime) execHandler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		r.logger.Debug("script exec", "command", args[0], "args", len(args)-1)
		return next(ctx, args)
	}
}

// scriptPath resolves entryPoint below filesRoot.
func scriptPath(filesRoot, entryPoint string) (string, error) {
	if entryPoint == "" {
		return "", errors.New("empty entry point")
	}
	clean := filepath.Clean(filepath.FromSlash(entryPoint))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry point %q is outside the files root", entryPoint)
	}
	return filepath.Join(filesRoot, clean), nil
}
