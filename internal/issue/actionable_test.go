// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	cause := errors.New("permission denied")
	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{
			name: "operation only",
			err:  &ActionableError{Operation: "load configuration"},
			want: "failed to load configuration",
		},
		{
			name: "with resource",
			err:  &ActionableError{Operation: "load configuration", Resource: "/etc/bootrunner/config.cue"},
			want: "failed to load configuration: /etc/bootrunner/config.cue",
		},
		{
			name: "with resource and cause",
			err:  &ActionableError{Operation: "open library", Resource: "libruntime.so", Cause: cause},
			want: "failed to open library: libruntime.so: permission denied",
		},
		{
			name: "with cause only",
			err:  &ActionableError{Operation: "extract assets", Cause: cause},
			want: "failed to extract assets: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_UnwrapChain(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("not found")
	err := fmt.Errorf("wrapped: %w", &ActionableError{Operation: "read args", Cause: sentinel})

	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should reach the cause through ActionableError")
	}
	var ae *ActionableError
	if !errors.As(err, &ae) || ae.Operation != "read args" {
		t.Errorf("errors.As = %v, want the ActionableError", ae)
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	inner := errors.New("no such file")
	ae := &ActionableError{
		Operation:   "load configuration",
		Resource:    "config.cue",
		Suggestions: []string{"Run 'bootrunner config init'", "Pass --config"},
		Cause:       fmt.Errorf("open: %w", inner),
	}

	plain := ae.Format(false)
	if !strings.HasPrefix(plain, ae.Error()) {
		t.Errorf("Format(false) should start with Error(): %q", plain)
	}
	for _, s := range ae.Suggestions {
		if !strings.Contains(plain, "  • "+s) {
			t.Errorf("Format(false) missing suggestion %q: %q", s, plain)
		}
	}
	if strings.Contains(plain, "Error chain:") {
		t.Errorf("Format(false) should not list the chain: %q", plain)
	}

	verbose := ae.Format(true)
	for _, want := range []string{"Error chain:", "1. open: no such file", "2. no such file"} {
		if !strings.Contains(verbose, want) {
			t.Errorf("Format(true) missing %q: %q", want, verbose)
		}
	}
}

func TestActionableError_FormatNoSuggestions(t *testing.T) {
	t.Parallel()

	ae := &ActionableError{Operation: "write result"}
	if got := ae.Format(true); got != "failed to write result" {
		t.Errorf("Format(true) = %q, want the bare message", got)
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	ae := NewErrorContext().
		WithOperation("initialize runtime").
		WithResource("Tests.dll").
		WithSuggestion("first").
		WithSuggestions("second", "third").
		Wrap(cause).
		Build()

	if ae == nil {
		t.Fatal("Build() = nil, want an error")
	}
	if ae.Operation != "initialize runtime" || ae.Resource != "Tests.dll" {
		t.Errorf("Build() = %+v", ae)
	}
	if len(ae.Suggestions) != 3 || ae.Suggestions[2] != "third" {
		t.Errorf("Suggestions = %v, want [first second third]", ae.Suggestions)
	}
	if !errors.Is(ae, cause) {
		t.Error("Build() should keep the cause")
	}
}

func TestErrorContext_RequiresOperation(t *testing.T) {
	t.Parallel()

	ctx := NewErrorContext().WithResource("x").Wrap(errors.New("boom"))
	if ae := ctx.Build(); ae != nil {
		t.Errorf("Build() without operation = %v, want nil", ae)
	}
	if err := ctx.BuildError(); err != nil {
		t.Errorf("BuildError() without operation = %v, want untyped nil", err)
	}

	if err := ctx.WithOperation("load").BuildError(); err == nil {
		t.Error("BuildError() with operation = nil, want error")
	}
}
