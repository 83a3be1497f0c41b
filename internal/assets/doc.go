// SPDX-License-Identifier: MPL-2.0

// Package assets deploys the bundled asset archive into the runner's files root.
//
// Zip, gzip-compressed tar and zstd-compressed tar archives are supported, read
// with the klauspost/compress decoders. Extraction is a single synchronous pass:
// each entry is written before the next one is read, file contents are streamed
// through a bounded buffer, and the first archive-level failure stops the pass
// with an *ArchiveError. Whether that failure is fatal is decided by the caller
// through a Policy.
package assets
