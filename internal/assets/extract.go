// SPDX-License-Identifier: MPL-2.0

package assets

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bootrunner/bootrunner/internal/paths"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

const (
	// DefaultBufferSize is the transfer buffer used for each file entry.
	DefaultBufferSize = 4096

	defaultFileMode os.FileMode = 0o644
)

var (
	// ErrOpenArchive is returned when the archive cannot be opened.
	ErrOpenArchive = errors.New("cannot open asset archive")
	// ErrCorruptArchive is returned when the archive stream cannot be read.
	ErrCorruptArchive = errors.New("corrupt asset archive")
	// ErrUnsafePath is returned for entries that would land outside the destination.
	ErrUnsafePath = errors.New("archive entry escapes destination")
	// ErrWriteAsset is returned when an entry cannot be written to disk.
	ErrWriteAsset = errors.New("cannot write asset")
)

type (
	// Extractor materializes an asset archive into a directory.
	Extractor struct {
		// Logger receives one debug line per extracted file. Defaults to log.Default().
		Logger *log.Logger
		// BufferSize is the per-entry transfer buffer. Defaults to DefaultBufferSize.
		BufferSize int
	}

	// Stats summarizes an extraction.
	Stats struct {
		Files int
		Dirs  int
		Bytes int64
	}

	// ArchiveError describes an archive-level failure. Extraction stops at the
	// first one; entries written before it stay on disk.
	ArchiveError struct {
		Archive string
		Entry   string
		Err     error
	}

	// entry is one archive member, independent of the container format.
	entry struct {
		name  string
		isDir bool
		mode  os.FileMode
		open  func() (io.ReadCloser, error)
	}
)

// Extract is a convenience wrapper around Extractor.Extract with defaults.
func Extract(ctx context.Context, src Source, dest string) (Stats, error) {
	var e Extractor
	return e.Extract(ctx, src, dest)
}

// Extract copies every entry of src into dest, mirroring relative paths.
// Directory entries are created and skipped. File entries get their parent
// directories created, then are streamed through a bounded buffer into a new
// file. Entries are processed in archive order, one at a time.
func (e *Extractor) Extract(ctx context.Context, src Source, dest string) (Stats, error) {
	logger := e.Logger
	if logger == nil {
		logger = log.Default()
	}
	size := e.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}

	var stats Stats

	format, err := src.format()
	if err != nil {
		return stats, &ArchiveError{Archive: src.String(), Err: fmt.Errorf("%w: %w", ErrOpenArchive, err)}
	}

	archive, err := src.open()
	if err != nil {
		return stats, &ArchiveError{Archive: src.String(), Err: fmt.Errorf("%w: %w", ErrOpenArchive, err)}
	}
	defer archive.Close()

	dest, err = filepath.Abs(dest)
	if err != nil {
		return stats, &ArchiveError{Archive: src.String(), Err: fmt.Errorf("%w: %w", ErrWriteAsset, err)}
	}

	w := &writer{dest: dest, buf: make([]byte, size), logger: logger, stats: &stats}
	visit := func(en entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.write(en); err != nil {
			return &ArchiveError{Archive: src.String(), Entry: en.name, Err: err}
		}
		return nil
	}

	switch format {
	case FormatZip:
		err = walkZip(archive, visit)
	case FormatTarGzip:
		err = walkTarGzip(archive, visit)
	case FormatTarZstd:
		err = walkTarZstd(archive, visit)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	var ae *ArchiveError
	if err != nil && !errors.As(err, &ae) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		err = &ArchiveError{Archive: src.String(), Err: err}
	}
	return stats, err
}

// Error implements the error interface.
func (e *ArchiveError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("extract %s: %s: %v", e.Archive, e.Entry, e.Err)
	}
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
}

// Unwrap returns the underlying error.
func (e *ArchiveError) Unwrap() error { return e.Err }

func walkZip(a *archiveFile, visit func(entry) error) error {
	zr, err := zip.NewReader(a.ReaderAt, a.size)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptArchive, err)
	}

	for _, f := range zr.File {
		en := entry{
			name:  f.Name,
			isDir: f.FileInfo().IsDir(),
			mode:  f.Mode(),
			open: func() (io.ReadCloser, error) {
				rc, err := f.Open()
				if err != nil {
					return nil, fmt.Errorf("%w: %w", ErrCorruptArchive, err)
				}
				return rc, nil
			},
		}
		if err := visit(en); err != nil {
			return err
		}
	}
	return nil
}

func walkTarGzip(a *archiveFile, visit func(entry) error) error {
	gz, err := gzip.NewReader(a.Reader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptArchive, err)
	}
	defer gz.Close()
	return walkTar(gz, visit)
}

func walkTarZstd(a *archiveFile, visit func(entry) error) error {
	zr, err := zstd.NewReader(a.Reader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptArchive, err)
	}
	defer zr.Close()
	return walkTar(zr, visit)
}

func walkTar(r io.Reader, visit func(entry) error) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorruptArchive, err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			err = visit(entry{name: hdr.Name, isDir: true})
		case tar.TypeReg:
			err = visit(entry{
				name: hdr.Name,
				mode: hdr.FileInfo().Mode(),
				open: func() (io.ReadCloser, error) { return io.NopCloser(tr), nil },
			})
		default:
			// Links and special files have no place in an asset tree.
			continue
		}
		if err != nil {
			return err
		}
	}
}

// writer places entries below dest.
type writer struct {
	dest   string
	buf    []byte
	logger *log.Logger
	stats  *Stats
}

func (w *writer) write(en entry) error {
	target, err := w.target(en.name)
	if err != nil {
		return err
	}

	if en.isDir {
		if err := os.MkdirAll(target, paths.DefaultDirMode); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteAsset, err)
		}
		w.stats.Dirs++
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), paths.DefaultDirMode); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteAsset, err)
	}

	w.logger.Debug("extracting asset", "path", target)

	rc, err := en.open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode(en.mode))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteAsset, err)
	}

	n, copyErr := io.CopyBuffer(onlyWriter{out}, onlyReader{rc}, w.buf)
	closeErr := out.Close()
	if copyErr != nil {
		var pe *fs.PathError
		if errors.As(copyErr, &pe) {
			return fmt.Errorf("%w: %w", ErrWriteAsset, copyErr)
		}
		return fmt.Errorf("%w: %w", ErrCorruptArchive, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: %w", ErrWriteAsset, closeErr)
	}

	w.stats.Files++
	w.stats.Bytes += n
	return nil
}

// target maps an archive name onto the destination, rejecting names that
// would resolve outside of it.
func (w *writer) target(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimLeft(name, `/\`)))
	if clean == "." {
		return w.dest, nil
	}
	target := filepath.Join(w.dest, clean)
	rel, err := filepath.Rel(w.dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

// fileMode keeps the permission bits of an entry, defaulting to 0644 when
// the archive carries none.
func fileMode(m os.FileMode) os.FileMode {
	perm := m.Perm()
	if perm == 0 {
		return defaultFileMode
	}
	return perm | 0o200
}

// onlyWriter and onlyReader hide ReadFrom/WriteTo so CopyBuffer uses the
// supplied buffer.
type (
	onlyWriter struct{ io.Writer }
	onlyReader struct{ io.Reader }
)
