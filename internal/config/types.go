// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bootrunner/bootrunner/internal/assets"
	"github.com/bootrunner/bootrunner/internal/bridge/dynlib"
	"github.com/bootrunner/bootrunner/internal/paths"
	"github.com/bootrunner/bootrunner/internal/report"

	"github.com/charmbracelet/log"
)

const (
	// BridgeNative loads the runtime from a shared library.
	BridgeNative BridgeKind = "native"
	// BridgeVirtual runs the entry point as a script in the embedded shell interpreter.
	BridgeVirtual BridgeKind = "virtual"

	// LogLevelDebug through LogLevelError are the accepted log levels.
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"

	// LogFormatAuto writes text to terminals and JSON otherwise.
	LogFormatAuto LogFormat = "auto"
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

var (
	// ErrInvalidBridgeKind is returned when a BridgeKind value is not recognized.
	ErrInvalidBridgeKind = errors.New("invalid runtime bridge")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat is returned when a LogFormat value is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrInvalidPath is returned for required paths that are empty or whitespace-only.
	ErrInvalidPath = errors.New("invalid path")
	// ErrInvalidPlatformVersion is returned for negative platform versions.
	ErrInvalidPlatformVersion = errors.New("invalid platform version")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// BridgeKind selects the runtime backend.
	BridgeKind string

	// LogLevel is the minimum level written to the log.
	LogLevel string

	// LogFormat selects the log line encoding.
	LogFormat string

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// EntryPoint is the default entry point; arguments may override it.
		EntryPoint string         `json:"entry_point" mapstructure:"entry_point"`
		Assets     AssetsConfig   `json:"assets" mapstructure:"assets"`
		Paths      PathsConfig    `json:"paths" mapstructure:"paths"`
		Platform   PlatformConfig `json:"platform" mapstructure:"platform"`
		Runtime    RuntimeConfig  `json:"runtime" mapstructure:"runtime"`
		Report     ReportConfig   `json:"report" mapstructure:"report"`
		Log        LogConfig      `json:"log" mapstructure:"log"`
	}

	// AssetsConfig locates the asset archive.
	AssetsConfig struct {
		// Archive is the archive path; the format follows its suffix.
		Archive string `json:"archive" mapstructure:"archive"`
		// ExtractionPolicy decides whether an extraction failure stops the run.
		ExtractionPolicy assets.Policy `json:"extraction_policy" mapstructure:"extraction_policy"`
	}

	// PathsConfig overrides the runtime directories.
	PathsConfig struct {
		FilesDir string `json:"files_dir" mapstructure:"files_dir"`
		CacheDir string `json:"cache_dir" mapstructure:"cache_dir"`
		// DocumentsDir may be empty; results then go to the cache dir.
		DocumentsDir string `json:"documents_dir" mapstructure:"documents_dir"`
	}

	// PlatformConfig describes the host platform.
	PlatformConfig struct {
		// Version is the platform version; 0 means unknown.
		Version int `json:"version" mapstructure:"version"`
		// ExcludedResultsVersions lists versions whose documents dir is not used.
		ExcludedResultsVersions []int `json:"excluded_results_versions" mapstructure:"excluded_results_versions"`
	}

	// RuntimeConfig selects and configures the runtime bridge.
	RuntimeConfig struct {
		Bridge BridgeKind `json:"bridge" mapstructure:"bridge"`
		// Library is the shared library loaded by the native bridge.
		Library string `json:"library" mapstructure:"library"`
		// PreciseClock passes the DST-aware UTC offset instead of the standard one.
		PreciseClock bool `json:"precise_clock" mapstructure:"precise_clock"`
	}

	// ReportConfig controls the result bundle output.
	ReportConfig struct {
		Format report.Format `json:"format" mapstructure:"format"`
		// Output is a file path; empty means standard output.
		Output string `json:"output" mapstructure:"output"`
	}

	// LogConfig controls logging.
	LogConfig struct {
		Level  LogLevel  `json:"level" mapstructure:"level"`
		Format LogFormat `json:"format" mapstructure:"format"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	exeDir := paths.ExecutableDir()
	dirs := paths.DefaultResolver()
	return &Config{
		EntryPoint: "",
		Assets: AssetsConfig{
			Archive:          filepath.Join(exeDir, assets.DefaultArchiveName),
			ExtractionPolicy: assets.PolicySoft,
		},
		Paths: PathsConfig{
			FilesDir:     dirs.FilesDir,
			CacheDir:     dirs.CacheDir,
			DocumentsDir: dirs.DocumentsDir,
		},
		Platform: PlatformConfig{
			Version:                 0,
			ExcludedResultsVersions: append([]int(nil), paths.DefaultExcludedVersions...),
		},
		Runtime: RuntimeConfig{
			Bridge:       BridgeNative,
			Library:      filepath.Join(exeDir, dynlib.DefaultLibraryName),
			PreciseClock: true,
		},
		Report: ReportConfig{
			Format: report.FormatJSON,
		},
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: LogFormatAuto,
		},
	}
}

// Resolver returns the paths.Resolver described by the configuration.
func (c *Config) Resolver() paths.Resolver {
	return paths.Resolver{
		FilesDir:         c.Paths.FilesDir,
		CacheDir:         c.Paths.CacheDir,
		DocumentsDir:     c.Paths.DocumentsDir,
		PlatformVersion:  c.Platform.Version,
		ExcludedVersions: c.Platform.ExcludedResultsVersions,
	}
}

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if ok, fieldErrs := c.Assets.ExtractionPolicy.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	for name, p := range map[string]string{"paths.files_dir": c.Paths.FilesDir, "paths.cache_dir": c.Paths.CacheDir} {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("%w: %s must not be empty", ErrInvalidPath, name))
		}
	}
	if c.Platform.Version < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidPlatformVersion, c.Platform.Version))
	}
	if ok, fieldErrs := c.Runtime.Bridge.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	if c.Runtime.Bridge == BridgeNative && strings.TrimSpace(c.Runtime.Library) == "" {
		errs = append(errs, fmt.Errorf("%w: runtime.library must be set for the native bridge", ErrInvalidPath))
	}
	if ok, fieldErrs := c.Report.Format.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	if ok, fieldErrs := c.Log.Level.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	if ok, fieldErrs := c.Log.Format.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// String returns the bridge name.
func (b BridgeKind) String() string { return string(b) }

// IsValid returns whether the BridgeKind is recognized, and the validation errors if not.
func (b BridgeKind) IsValid() (bool, []error) {
	switch b {
	case BridgeNative, BridgeVirtual:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w %q (valid: native, virtual)", ErrInvalidBridgeKind, string(b))}
	}
}

// String returns the level name.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is recognized, and the validation errors if not.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w %q (valid: debug, info, warn, error)", ErrInvalidLogLevel, string(l))}
	}
}

// Level converts the level for charmbracelet/log, defaulting to info.
func (l LogLevel) Level() log.Level {
	lvl, err := log.ParseLevel(string(l))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// IsValid returns whether the LogFormat is recognized, and the validation errors if not.
func (f LogFormat) IsValid() (bool, []error) {
	switch f {
	case LogFormatAuto, LogFormatText, LogFormatJSON:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w %q (valid: auto, text, json)", ErrInvalidLogFormat, string(f))}
	}
}
