// SPDX-License-Identifier: MPL-2.0

package assets

import (
	"errors"
	"fmt"
)

const (
	// PolicySoft logs an extraction failure and continues with whatever was extracted.
	PolicySoft Policy = "soft"
	// PolicyFatal aborts the run when extraction fails.
	PolicyFatal Policy = "fatal"
)

// ErrInvalidPolicy is returned when a Policy value is not recognized.
var ErrInvalidPolicy = errors.New("invalid extraction policy")

// Policy decides whether an archive-level extraction failure stops the run.
type Policy string

// ParsePolicy converts a string into a Policy. The empty string selects PolicySoft.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(s)
	if p == "" {
		return PolicySoft, nil
	}
	if ok, errs := p.IsValid(); !ok {
		return "", errs[0]
	}
	return p, nil
}

// IsValid returns whether the policy is recognized, and the validation errors if not.
func (p Policy) IsValid() (bool, []error) {
	switch p {
	case PolicySoft, PolicyFatal:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q (expected %q or %q)", ErrInvalidPolicy, string(p), PolicySoft, PolicyFatal)}
	}
}

// String returns the policy name.
func (p Policy) String() string { return string(p) }
