// SPDX-License-Identifier: MPL-2.0

package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/adrg/xdg"
)

const (
	// AppName is used as the subdirectory under each base path.
	AppName = "bootrunner"

	// DefaultDirMode is the permission mode for created directories.
	DefaultDirMode os.FileMode = 0o755
)

// DefaultExcludedVersions lists platform versions whose documents directory
// cannot be pulled by automated tooling. Results go to the cache root there.
var DefaultExcludedVersions = []int{30}

type (
	// Layout holds the resolved destination directories. All paths are absolute.
	Layout struct {
		// FilesRoot receives the extracted asset archive and becomes HOME.
		FilesRoot string
		// CacheRoot becomes TMPDIR.
		CacheRoot string
		// ResultsRoot becomes TEST_RESULTS_DIR.
		ResultsRoot string
		// ResultsFallback explains why ResultsRoot is the cache root; empty otherwise.
		ResultsFallback string
	}

	// Resolver derives a Layout from the host's directories.
	Resolver struct {
		FilesDir     string
		CacheDir     string
		DocumentsDir string // empty when the host has no documents directory

		// PlatformVersion is the host platform version; 0 when unknown.
		PlatformVersion int
		// ExcludedVersions are platform versions that must not use DocumentsDir.
		ExcludedVersions []int
	}
)

// DefaultResolver returns a resolver rooted in the XDG base directories.
//
//	files:     $XDG_DATA_HOME/bootrunner/files
//	cache:     $XDG_CACHE_HOME/bootrunner
//	documents: $XDG_DOCUMENTS_DIR/bootrunner
func DefaultResolver() Resolver {
	r := Resolver{
		FilesDir:         filepath.Join(xdg.DataHome, AppName, "files"),
		CacheDir:         filepath.Join(xdg.CacheHome, AppName),
		ExcludedVersions: slices.Clone(DefaultExcludedVersions),
	}
	if xdg.UserDirs.Documents != "" {
		r.DocumentsDir = filepath.Join(xdg.UserDirs.Documents, AppName)
	}
	return r
}

// ConfigDir returns the configuration directory ($XDG_CONFIG_HOME/bootrunner).
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ExecutableDir returns the directory containing the running binary, or "."
// when it cannot be determined.
func ExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// Resolve creates the files and cache roots and picks the results root.
//
// The documents directory is preferred for results. The cache root is used
// instead when the documents directory is unset, cannot be created, or the
// platform version is excluded.
func (r Resolver) Resolve() (Layout, error) {
	files, err := ensureDir(r.FilesDir, "files")
	if err != nil {
		return Layout{}, err
	}
	cache, err := ensureDir(r.CacheDir, "cache")
	if err != nil {
		return Layout{}, err
	}

	layout := Layout{FilesRoot: files, CacheRoot: cache}

	switch {
	case r.DocumentsDir == "":
		layout.ResultsFallback = "documents directory unavailable"
	case slices.Contains(r.ExcludedVersions, r.PlatformVersion):
		layout.ResultsFallback = fmt.Sprintf("platform version %d is excluded", r.PlatformVersion)
	default:
		docs, err := ensureDir(r.DocumentsDir, "documents")
		if err != nil {
			layout.ResultsFallback = err.Error()
		} else {
			layout.ResultsRoot = docs
		}
	}

	if layout.ResultsRoot == "" {
		layout.ResultsRoot = cache
	}

	return layout, nil
}

func ensureDir(dir, label string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%s directory is not configured", label)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s directory '%s': %w", label, dir, err)
	}
	if err := os.MkdirAll(abs, DefaultDirMode); err != nil {
		return "", fmt.Errorf("failed to create %s directory '%s': %w", label, abs, err)
	}
	return abs, nil
}
