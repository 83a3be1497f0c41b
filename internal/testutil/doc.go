// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include environment variable management (MustUnsetenv),
// file operations (MustMkdirAll, MustWriteFile, MustReadFile), in-memory asset
// archive builders (ZipBytes, TarGzBytes, TarZstdBytes) and a controllable
// clock (FakeClock).
package testutil
