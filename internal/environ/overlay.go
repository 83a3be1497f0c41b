// SPDX-License-Identifier: MPL-2.0

package environ

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrInvalidVarName is returned when a variable name is empty or contains '='.
var ErrInvalidVarName = errors.New("invalid environment variable name")

type (
	// Var is a single environment assignment.
	Var struct {
		Name  string
		Value string
	}

	// Overlay is an ordered set of environment assignments.
	// Setting a name that is already present overwrites its value in place,
	// so every name is applied exactly once and keeps its first position.
	// The zero value is ready to use.
	Overlay struct {
		vars  []Var
		index map[string]int
	}

	// Setter applies a single environment assignment.
	Setter interface {
		SetEnv(name, value string) error
	}

	// SetterFunc adapts a function to the Setter interface.
	SetterFunc func(name, value string) error

	// ProcessSetter sets variables in the current process environment.
	ProcessSetter struct{}

	// MultiSetter applies every assignment to each setter in order and
	// stops at the first failure.
	MultiSetter []Setter

	// VarError reports a failed assignment.
	VarError struct {
		Name string
		Err  error
	}
)

// NewOverlay creates an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{}
}

// Set records name=value. A later Set for the same name overwrites the value.
func (o *Overlay) Set(name, value string) {
	if o.index == nil {
		o.index = make(map[string]int)
	}
	if i, ok := o.index[name]; ok {
		o.vars[i].Value = value
		return
	}
	o.index[name] = len(o.vars)
	o.vars = append(o.vars, Var{Name: name, Value: value})
}

// Get returns the value recorded for name.
func (o *Overlay) Get(name string) (string, bool) {
	if o == nil {
		return "", false
	}
	i, ok := o.index[name]
	if !ok {
		return "", false
	}
	return o.vars[i].Value, true
}

// Len returns the number of distinct names in the overlay.
func (o *Overlay) Len() int {
	if o == nil {
		return 0
	}
	return len(o.vars)
}

// Vars returns a copy of the assignments in application order.
func (o *Overlay) Vars() []Var {
	if o == nil {
		return nil
	}
	out := make([]Var, len(o.vars))
	copy(out, o.vars)
	return out
}

// Apply sets every assignment through s, in order.
func (o *Overlay) Apply(s Setter) error {
	return ApplyVars(s, o.Vars())
}

// ApplyVars sets each variable through s, in order.
func ApplyVars(s Setter, vars []Var) error {
	for _, v := range vars {
		if err := s.SetEnv(v.Name, v.Value); err != nil {
			return &VarError{Name: v.Name, Err: err}
		}
	}
	return nil
}

// SetEnv calls f(name, value).
func (f SetterFunc) SetEnv(name, value string) error {
	return f(name, value)
}

// SetEnv sets name in the process environment.
func (ProcessSetter) SetEnv(name, value string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return os.Setenv(name, value)
}

// SetEnv applies the assignment to every setter.
func (m MultiSetter) SetEnv(name, value string) error {
	for _, s := range m {
		if err := s.SetEnv(name, value); err != nil {
			return err
		}
	}
	return nil
}

// Error implements the error interface.
func (e *VarError) Error() string {
	return fmt.Sprintf("set environment variable %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *VarError) Unwrap() error { return e.Err }

// ValidateName reports whether name can be used as an environment variable name.
func ValidateName(name string) error {
	if name == "" || strings.ContainsAny(name, "=\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidVarName, name)
	}
	return nil
}
