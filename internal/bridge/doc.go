// SPDX-License-Identifier: MPL-2.0

// Package bridge drives a native runtime through its lifecycle.
//
// A Native is the four-call boundary exported by a runtime: set an environment
// variable, initialize, execute an entry point, free resources. Bridge wraps
// one Native and enforces the order of those calls with an atomic state tag:
//
//	Created -> Initializing -> Ready -> Executing -> Finished -> Released
//	                        \-> Failed
//
// Release may be called from any state and frees native resources exactly
// once. A Release that arrives while a native call is in flight is recorded
// and performed by the owning goroutine as soon as the call returns.
//
// Backends live in the dynlib (shared library via purego) and virtual
// (embedded shell interpreter) subpackages; MockNative serves tests.
package bridge
