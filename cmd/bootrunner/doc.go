// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the bootrunner CLI.
//
// The run command classifies its key/value arguments, prepares the
// environment, drives the runtime through one initialize/execute/release
// cycle and writes the result bundle. The extract command only prepares the
// environment, and config inspects or creates the configuration file.
package cmd
