// SPDX-License-Identifier: MPL-2.0

package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrInitFailed is wrapped by InitError.
	ErrInitFailed = errors.New("runtime initialization failed")
	// ErrInvalidState is wrapped by StateError.
	ErrInvalidState = errors.New("invalid bridge state")
	// ErrSetEnv is returned when the runtime rejects an environment variable.
	ErrSetEnv = errors.New("runtime rejected environment variable")
)

type (
	// InitError reports a non-zero status from InitRuntime. The status is the
	// exit code the process should terminate with.
	InitError struct {
		Status int
	}

	// StateError reports an operation attempted from the wrong state.
	StateError struct {
		Op    string
		State State
	}
)

// Error implements the error interface.
func (e *InitError) Error() string {
	return fmt.Sprintf("%v: status %d", ErrInitFailed, e.Status)
}

// Unwrap returns ErrInitFailed.
func (e *InitError) Unwrap() error { return ErrInitFailed }

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s: bridge is %s", e.Op, e.State)
}

// Unwrap returns ErrInvalidState.
func (e *StateError) Unwrap() error { return ErrInvalidState }
