// SPDX-License-Identifier: MPL-2.0

package bridge

import (
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

type (
	// Native is the call boundary of a runtime. Status-returning calls report
	// success with 0. None of the calls may be issued concurrently.
	Native interface {
		// SetEnv sets a variable in the runtime's environment.
		SetEnv(name, value string) int
		// InitRuntime prepares the runtime rooted at filesRoot to run entryPoint.
		InitRuntime(filesRoot, entryPoint string, utcOffsetSeconds int) int
		// ExecEntryPoint runs entryPoint to completion and returns its code.
		ExecEntryPoint(entryPoint string, args []string) int
		// FreeNativeResources releases everything the runtime holds.
		FreeNativeResources()
	}

	// Options configures a Bridge.
	Options struct {
		// Clock supplies the instant for the UTC offset. Defaults to the system clock.
		Clock Clock
		// PreciseClock selects the DST-aware offset instead of the standard one.
		PreciseClock bool
		// Logger defaults to log.Default().
		Logger *log.Logger
	}

	// Bridge sequences calls into a Native. The zero value is not usable;
	// create one with New.
	Bridge struct {
		native  Native
		clock   Clock
		precise bool
		logger  *log.Logger

		state   atomic.Int32
		pending atomic.Bool
	}
)

// New creates a Bridge in StateCreated.
func New(native Native, opts Options) *Bridge {
	b := &Bridge{
		native:  native,
		clock:   opts.Clock,
		precise: opts.PreciseClock,
		logger:  opts.Logger,
	}
	if b.clock == nil {
		b.clock = systemClock{}
	}
	if b.logger == nil {
		b.logger = log.Default()
	}
	b.state.Store(int32(StateCreated))
	return b
}

// State returns the current state.
func (b *Bridge) State() State {
	return State(b.state.Load())
}

// SetEnv forwards a variable to the runtime. It is only allowed before
// Initialize.
func (b *Bridge) SetEnv(name, value string) error {
	if s := b.State(); s != StateCreated {
		return &StateError{Op: "set environment", State: s}
	}
	if status := b.native.SetEnv(name, value); status != 0 {
		return fmt.Errorf("%w: %s (status %d)", ErrSetEnv, name, status)
	}
	return nil
}

// Initialize calls InitRuntime with the current UTC offset. On a non-zero
// status native resources are freed right away, the bridge moves to
// StateFailed and an *InitError carrying the status is returned.
func (b *Bridge) Initialize(filesRoot, entryPoint string) error {
	if !b.state.CompareAndSwap(int32(StateCreated), int32(StateInitializing)) {
		return &StateError{Op: "initialize", State: b.State()}
	}

	offset := UTCOffset(b.clock.Now(), b.precise)
	b.logger.Debug("initializing runtime", "files", filesRoot, "entry_point", entryPoint, "utc_offset", offset)

	if status := b.native.InitRuntime(filesRoot, entryPoint, offset); status != 0 {
		b.state.Store(int32(StateFailed))
		b.native.FreeNativeResources()
		b.logger.Error("runtime initialization failed", "status", status)
		return &InitError{Status: status}
	}

	b.settle(StateReady)
	return nil
}

// Execute runs the entry point and returns its code unmodified. It blocks
// until the program returns.
func (b *Bridge) Execute(entryPoint string, args []string) (int, error) {
	if !b.state.CompareAndSwap(int32(StateReady), int32(StateExecuting)) {
		return 0, &StateError{Op: "execute", State: b.State()}
	}

	b.logger.Debug("executing entry point", "entry_point", entryPoint, "args", len(args))
	code := b.native.ExecEntryPoint(entryPoint, args)

	b.settle(StateFinished)
	return code, nil
}

// Release frees native resources if they are still held. It is safe to call
// from any state and from any goroutine, any number of times; resources are
// freed exactly once. While a native call is in flight the release is
// deferred to the goroutine making that call.
//
// Release reports whether this call freed the resources.
func (b *Bridge) Release() bool {
	for {
		s := b.State()
		switch s {
		case StateCreated, StateReady, StateFinished:
			if b.state.CompareAndSwap(int32(s), int32(StateReleased)) {
				b.free(s)
				return true
			}
		case StateInitializing, StateExecuting:
			b.pending.Store(true)
			if b.State() == s {
				b.logger.Debug("release deferred until runtime call returns", "state", s)
				return false
			}
		default:
			return false
		}
	}
}

// settle publishes next and performs a release requested while the call
// leading to next was in flight.
func (b *Bridge) settle(next State) {
	b.state.Store(int32(next))
	if b.pending.Load() && b.state.CompareAndSwap(int32(next), int32(StateReleased)) {
		b.free(next)
	}
}

func (b *Bridge) free(from State) {
	b.logger.Debug("freeing native resources", "from", from)
	b.native.FreeNativeResources()
}
