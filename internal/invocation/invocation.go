// SPDX-License-Identifier: MPL-2.0

package invocation

import (
	"strings"

	"github.com/bootrunner/bootrunner/internal/environ"

	"github.com/charmbracelet/log"
)

const (
	// EnvPrefix marks a key as an environment assignment; the remainder is the variable name.
	EnvPrefix = "env:"
	// EntryPointKey overrides the default entry-point library name.
	EntryPointKey = "entrypoint:libname"
)

type (
	// Entry is one invocation argument. A nil Value represents an absent value.
	Entry struct {
		Key   string
		Value *string
	}

	// Invocation is the classified form of the invocation arguments.
	Invocation struct {
		// Overlay holds the env: assignments, in encounter order.
		Overlay *environ.Overlay
		// EntryPoint is the entry-point library to initialize and execute.
		EntryPoint string
		// Args is the flat pass-through list: key, value, key, value, ...
		Args []string
	}

	// Classifier partitions invocation entries into environment assignments,
	// the entry-point override, and pass-through arguments.
	Classifier struct {
		// DefaultEntryPoint is used unless an entry overrides it.
		DefaultEntryPoint string
		// Logger receives one line per env: assignment. Defaults to log.Default().
		Logger *log.Logger
	}
)

// NewEntry creates an entry with a value.
func NewEntry(key, value string) Entry {
	return Entry{Key: key, Value: &value}
}

// NullEntry creates an entry without a value.
func NullEntry(key string) Entry {
	return Entry{Key: key}
}

// Classify is a convenience wrapper around Classifier.Classify.
func Classify(entries []Entry, defaultEntryPoint string) *Invocation {
	c := Classifier{DefaultEntryPoint: defaultEntryPoint}
	return c.Classify(entries)
}

// Classify walks entries once, in order:
//   - "env:NAME" records NAME=value in the overlay
//   - EntryPointKey replaces the entry point
//   - anything else appends key and value to Args
//
// Entries without a value are dropped; a null entry-point override leaves
// the default in place.
func (c *Classifier) Classify(entries []Entry) *Invocation {
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}

	inv := &Invocation{
		Overlay:    environ.NewOverlay(),
		EntryPoint: c.DefaultEntryPoint,
		Args:       []string{},
	}

	for _, e := range entries {
		if e.Value == nil {
			continue
		}
		value := *e.Value

		switch {
		case e.Key == EnvPrefix:
			logger.Warn("ignoring env: entry without a variable name")
		case strings.HasPrefix(e.Key, EnvPrefix):
			name := strings.TrimPrefix(e.Key, EnvPrefix)
			inv.Overlay.Set(name, value)
			logger.Info("environment override", "name", name, "value", value)
		case e.Key == EntryPointKey:
			inv.EntryPoint = value
		default:
			inv.Args = append(inv.Args, e.Key, value)
		}
	}

	return inv
}

// HasEntryPoint reports whether an entry point is set.
func (inv *Invocation) HasEntryPoint() bool {
	return inv != nil && inv.EntryPoint != ""
}
