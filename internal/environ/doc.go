// SPDX-License-Identifier: MPL-2.0

// Package environ builds the environment a runtime starts with.
//
// An Overlay collects caller-supplied variables in first-seen order with
// last-write-wins values. Materialize lays out the runtime directories,
// deploys the asset archive, sets HOME, TMPDIR and TEST_RESULTS_DIR, and then
// applies the overlay through a Setter. The production Setter fans out to the
// process environment and to the runtime bridge.
package environ
