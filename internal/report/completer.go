// SPDX-License-Identifier: MPL-2.0

package report

import (
	"errors"
	"io"
	"sync"
)

// ErrAlreadyDelivered is returned when a completer is finished twice.
var ErrAlreadyDelivered = errors.New("completion already delivered")

type (
	// Completer delivers the completion of a run to whoever started it.
	// A completer delivers at most once.
	Completer interface {
		Finish(code int, b Bundle) error
	}

	// StreamCompleter writes the bundle to a stream in a fixed Format.
	StreamCompleter struct {
		format Format

		mu        sync.Mutex
		w         io.Writer
		delivered bool
	}

	// Recorder is a Completer that keeps the delivery in memory.
	// It is safe for concurrent use.
	Recorder struct {
		mu     sync.Mutex
		code   int
		bundle Bundle
		count  int
	}
)

// NewCompleter returns a StreamCompleter writing format to w.
func NewCompleter(format Format, w io.Writer) (*StreamCompleter, error) {
	if format == "" {
		format = FormatJSON
	}
	if ok, errs := format.IsValid(); !ok {
		return nil, errs[0]
	}
	return &StreamCompleter{format: format, w: w}, nil
}

// Format returns the output format.
func (c *StreamCompleter) Format() Format { return c.format }

// Finish writes the bundle, with code as the completion signal.
func (c *StreamCompleter) Finish(code int, b Bundle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.delivered {
		return ErrAlreadyDelivered
	}
	c.delivered = true
	return encode(c.w, c.format, code, b)
}

// Delivered reports whether Finish has been called.
func (c *StreamCompleter) Delivered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delivered
}

// Finish records the delivery.
func (r *Recorder) Finish(code int, b Bundle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count > 0 {
		r.count++
		return ErrAlreadyDelivered
	}
	r.count++
	r.code, r.bundle = code, b
	return nil
}

// Delivery returns the recorded code and bundle, and whether one was delivered.
func (r *Recorder) Delivery() (int, Bundle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.code, r.bundle, r.count > 0
}

// Count returns how many times Finish was called, including rejected calls.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
