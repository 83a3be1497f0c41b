// SPDX-License-Identifier: MPL-2.0

// Package invocation classifies the arguments a test harness passes to the runner.
//
// Every entry falls into exactly one category:
//   - "env:NAME" entries become environment assignments in an ordered overlay
//   - the "entrypoint:libname" entry replaces the default entry-point library
//   - every other entry is forwarded to the program as two arguments, key then value
//
// Entries arrive as an ordered slice. Callers holding an unordered mapping use
// EntriesFromMap, which sorts by key so that forwarded arguments are deterministic.
package invocation
