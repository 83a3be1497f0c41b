// SPDX-License-Identifier: MPL-2.0

package assets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
)

const (
	// FormatZip is a zip archive.
	FormatZip Format = "zip"
	// FormatTarGzip is a gzip-compressed tar archive.
	FormatTarGzip Format = "tar.gz"
	// FormatTarZstd is a zstd-compressed tar archive.
	FormatTarZstd Format = "tar.zst"

	// DefaultArchiveName is the archive looked up next to the executable.
	DefaultArchiveName = "assets.zip"
)

// ErrUnknownFormat is returned when an archive format cannot be determined.
var ErrUnknownFormat = errors.New("unknown archive format")

type (
	// Format identifies the container format of an asset archive.
	Format string

	// Source locates an asset archive, either on disk or inside an fs.FS.
	Source struct {
		// FS is the filesystem holding the archive; nil means the host filesystem.
		FS fs.FS
		// Path is the archive path, relative to FS when FS is set.
		Path string
		// Format overrides detection from the path suffix.
		Format Format
	}

	// archiveFile is an opened archive with random access, as zip requires.
	archiveFile struct {
		io.Reader
		io.ReaderAt
		size   int64
		closer io.Closer
	}
)

// FileSource returns a Source for an archive on the host filesystem.
func FileSource(path string) Source {
	return Source{Path: path}
}

// FSSource returns a Source for an archive inside fsys.
func FSSource(fsys fs.FS, name string) Source {
	return Source{FS: fsys, Path: name}
}

// DetectFormat infers the archive format from a file name.
func DetectFormat(name string) (Format, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip, nil
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGzip, nil
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return FormatTarZstd, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
}

// String returns a display name for the source.
func (s Source) String() string {
	if s.FS != nil {
		return "fs:" + path.Clean(s.Path)
	}
	return s.Path
}

func (s Source) format() (Format, error) {
	if s.Format != "" {
		return s.Format, nil
	}
	return DetectFormat(s.Path)
}

// open returns the archive with random access. Files that do not support
// ReadAt are buffered in memory.
func (s Source) open() (*archiveFile, error) {
	var (
		f   fs.File
		err error
	)
	if s.FS != nil {
		f, err = s.FS.Open(s.Path)
	} else {
		f, err = os.Open(s.Path)
	}
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%s is a directory", s.Path)
	}

	if ra, ok := f.(io.ReaderAt); ok {
		return &archiveFile{Reader: f, ReaderAt: ra, size: info.Size(), closer: f}, nil
	}

	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(data)
	return &archiveFile{Reader: r, ReaderAt: r, size: r.Size(), closer: io.NopCloser(r)}, nil
}

func (a *archiveFile) Close() error {
	return a.closer.Close()
}
