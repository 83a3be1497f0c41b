// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper, with CUE or
// TOML as the file format.
//
// Configuration is read from the file given with --config, otherwise from
// config.cue or config.toml in the bootrunner XDG config directory, otherwise
// from the current directory. Without a file the defaults apply. Every key can
// be overridden from the environment with the BOOTRUNNER_ prefix, dots
// replaced by underscores (BOOTRUNNER_RUNTIME_BRIDGE=virtual).
//
// Files of either format are validated against the CUE schema in
// config_schema.cue, so both report errors with the same field paths.
package config
