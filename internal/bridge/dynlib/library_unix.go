// SPDX-License-Identifier: MPL-2.0

//go:build darwin || linux

package dynlib

import (
	"fmt"

	"github.com/ebitengine/purego"
)

func openLibrary(path string) (*Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %w", ErrLoad, err)}
	}

	// RegisterLibFunc panics on a missing symbol; check first.
	for _, sym := range Symbols {
		if _, err := purego.Dlsym(handle, sym); err != nil {
			_ = purego.Dlclose(handle)
			return nil, &LoadError{Path: path, Symbol: sym, Err: fmt.Errorf("%w: %w", ErrMissingSymbol, err)}
		}
	}

	l := &Library{path: path, handle: handle}
	purego.RegisterLibFunc(&l.setEnv, handle, SymbolSetEnv)
	purego.RegisterLibFunc(&l.initRuntime, handle, SymbolInitRuntime)
	purego.RegisterLibFunc(&l.execEntryPoint, handle, SymbolExecEntryPoint)
	purego.RegisterLibFunc(&l.freeResources, handle, SymbolFreeNativeResources)
	return l, nil
}

func closeHandle(handle uintptr) error {
	return purego.Dlclose(handle)
}
