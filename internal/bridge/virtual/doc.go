// SPDX-License-Identifier: MPL-2.0

// Package virtual implements bridge.Native with the mvdan.cc/sh interpreter.
//
// The entry point names a POSIX shell script below the files root. It is
// parsed during InitRuntime and run by ExecEntryPoint with the forwarded
// arguments as positional parameters, the files root as working directory and
// the exit status as return code. No shared library or external shell is
// needed, which makes this backend the portable choice for development and
// tests.
package virtual
