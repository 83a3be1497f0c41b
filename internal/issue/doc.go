// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// suggestions for the user. The issue catalog holds longer Markdown guidance
// for the failures a bootrunner user can fix themselves; the CLI renders it
// with glamour below the error.
package issue
