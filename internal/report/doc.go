// SPDX-License-Identifier: MPL-2.0

// Package report builds and delivers the result bundle of a run: the program's
// return code and, when the runtime produced one, the path of its test
// results file.
package report
