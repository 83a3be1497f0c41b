// SPDX-License-Identifier: MPL-2.0

//go:build !(darwin || linux)

package dynlib

func openLibrary(path string) (*Library, error) {
	return nil, &LoadError{Path: path, Err: ErrUnsupportedPlatform}
}

func closeHandle(uintptr) error {
	return nil
}
