// SPDX-License-Identifier: MPL-2.0

//go:build darwin || linux

package dynlib

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	notALibrary := filepath.Join(dir, "libfake.so")
	if err := os.WriteFile(notALibrary, []byte("not an ELF file"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{filepath.Join(dir, "missing.so"), notALibrary} {
		_, err := Open(path)
		if !errors.Is(err, ErrLoad) {
			t.Errorf("Open(%q) error = %v, want ErrLoad", path, err)
		}
		var le *LoadError
		if !errors.As(err, &le) || le.Path != path {
			t.Errorf("Open(%q) error = %v, want *LoadError for the path", path, err)
		}
	}
}

func TestOpen_MissingSymbols(t *testing.T) {
	t.Parallel()

	libc := "libc.so.6"
	if runtime.GOOS == "darwin" {
		libc = "/usr/lib/libSystem.B.dylib"
	}

	_, err := Open(libc)
	if errors.Is(err, ErrLoad) {
		t.Skipf("system C library not loadable here: %v", err)
	}
	if !errors.Is(err, ErrMissingSymbol) {
		t.Fatalf("Open(%q) error = %v, want ErrMissingSymbol", libc, err)
	}
	var le *LoadError
	if !errors.As(err, &le) || le.Symbol != SymbolSetEnv {
		t.Errorf("Open(%q) error = %v, want first missing symbol %s", libc, err, SymbolSetEnv)
	}
}
