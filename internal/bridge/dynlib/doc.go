// SPDX-License-Identifier: MPL-2.0

// Package dynlib binds a runtime shared library as a bridge.Native.
//
// The library is loaded with purego, without cgo, and must export:
//
//	int32_t bootrunner_set_env(const char *name, const char *value);
//	int32_t bootrunner_init_runtime(const char *files_root, const char *entry_point, int32_t utc_offset);
//	int32_t bootrunner_exec_entry_point(const char *entry_point, int32_t argc, char **argv);
//	void    bootrunner_free_native_resources(void);
//
// String arguments are only valid for the duration of a call; the library
// must copy anything it keeps.
package dynlib
