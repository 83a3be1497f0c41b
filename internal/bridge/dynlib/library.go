// SPDX-License-Identifier: MPL-2.0

package dynlib

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// Exported symbol names.
const (
	SymbolSetEnv              = "bootrunner_set_env"
	SymbolInitRuntime         = "bootrunner_init_runtime"
	SymbolExecEntryPoint      = "bootrunner_exec_entry_point"
	SymbolFreeNativeResources = "bootrunner_free_native_resources"

	// DefaultLibraryName is the library looked up next to the executable.
	DefaultLibraryName = "libbootrunner.so"
)

var (
	// ErrLoad is returned when the shared library cannot be opened.
	ErrLoad = errors.New("cannot load runtime library")
	// ErrMissingSymbol is returned when a required export is absent.
	ErrMissingSymbol = errors.New("runtime library is missing a required symbol")
	// ErrUnsupportedPlatform is returned where dynamic loading is unavailable.
	ErrUnsupportedPlatform = errors.New("dynamic runtime libraries are not supported on this platform")
)

// Symbols lists every export the library must provide.
var Symbols = []string{SymbolSetEnv, SymbolInitRuntime, SymbolExecEntryPoint, SymbolFreeNativeResources}

type (
	// Library is a loaded runtime. It implements bridge.Native.
	Library struct {
		path   string
		handle uintptr

		setEnv         func(name, value string) int32
		initRuntime    func(filesRoot, entryPoint string, utcOffset int32) int32
		execEntryPoint func(entryPoint string, argc int32, argv **byte) int32
		freeResources  func()

		closeOnce sync.Once
		closeErr  error
	}

	// LoadError describes a failure to bind the library.
	LoadError struct {
		Path   string
		Symbol string
		Err    error
	}
)

// Open loads the library at path and binds its exports.
func Open(path string) (*Library, error) {
	return openLibrary(path)
}

// Path returns the file the library was loaded from.
func (l *Library) Path() string { return l.path }

// SetEnv calls bootrunner_set_env.
func (l *Library) SetEnv(name, value string) int {
	return int(l.setEnv(name, value))
}

// InitRuntime calls bootrunner_init_runtime.
func (l *Library) InitRuntime(filesRoot, entryPoint string, utcOffsetSeconds int) int {
	return int(l.initRuntime(filesRoot, entryPoint, int32(utcOffsetSeconds)))
}

// ExecEntryPoint calls bootrunner_exec_entry_point with args as argc/argv.
func (l *Library) ExecEntryPoint(entryPoint string, args []string) int {
	argv := newCStrings(args)
	code := l.execEntryPoint(entryPoint, argv.argc(), argv.ptr())
	runtime.KeepAlive(argv)
	return int(code)
}

// FreeNativeResources calls bootrunner_free_native_resources.
func (l *Library) FreeNativeResources() {
	l.freeResources()
}

// Close unloads the library. Call it only after FreeNativeResources.
func (l *Library) Close() error {
	l.closeOnce.Do(func() {
		if l.handle != 0 {
			l.closeErr = closeHandle(l.handle)
		}
	})
	return l.closeErr
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Symbol, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error { return e.Err }
