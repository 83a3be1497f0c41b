// SPDX-License-Identifier: MPL-2.0

// Package lifecycle ties the bootstrap stages together.
//
// A Runner receives two notifications from its host. Start takes a classified
// invocation, prepares the environment, runs the entry point through the
// bridge and delivers the result bundle. Destroy releases the runtime and may
// arrive at any time, including while the entry point is still running.
package lifecycle
