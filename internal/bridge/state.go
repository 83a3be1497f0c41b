// SPDX-License-Identifier: MPL-2.0

package bridge

import "fmt"

const (
	// StateCreated indicates the bridge has not touched the runtime yet.
	StateCreated State = iota
	// StateInitializing indicates InitRuntime is in flight.
	StateInitializing
	// StateFailed indicates initialization failed; resources are already freed (terminal state).
	StateFailed
	// StateReady indicates the runtime is initialized and may execute.
	StateReady
	// StateExecuting indicates the entry point is running.
	StateExecuting
	// StateFinished indicates the entry point returned.
	StateFinished
	// StateReleased indicates native resources were freed (terminal state).
	StateReleased
)

// State represents the lifecycle state of a Bridge.
type State int32

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitializing:
		return "initializing"
	case StateFailed:
		return "failed"
	case StateReady:
		return "ready"
	case StateExecuting:
		return "executing"
	case StateFinished:
		return "finished"
	case StateReleased:
		return "released"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// IsTerminal reports whether no further transition can leave s.
func (s State) IsTerminal() bool {
	return s == StateFailed || s == StateReleased
}
