// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bootrunner/bootrunner/internal/issue"
	"github.com/bootrunner/bootrunner/internal/paths"
	"github.com/bootrunner/bootrunner/pkg/cueutil"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ExtCUE and ExtTOML are the supported config file extensions.
	ExtCUE  = "cue"
	ExtTOML = "toml"

	// EnvPrefix prefixes environment overrides (BOOTRUNNER_LOG_LEVEL).
	EnvPrefix = "BOOTRUNNER"

	schemaDefinition = "#Config"
)

// ErrConfigNotFound is returned when an explicit config file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

//go:embed config_schema.cue
var configSchema string

// loadWithOptions performs option-driven config loading without mutating
// package-level state. It returns the config and the file it came from, which
// is empty when only defaults and environment overrides apply.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""

	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				WithSuggestion("Use 'bootrunner config show' to see the default configuration").
				Wrap(fmt.Errorf("%w: %s", ErrConfigNotFound, opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		resolvedPath = findConfigFile(configDirWithOverride(opts.ConfigDirPath))
	}

	if resolvedPath != "" {
		if err := loadFileIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE or TOML syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("See 'bootrunner config --help' for configuration options").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if ok, errs := cfg.IsValid(); !ok {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check the BOOTRUNNER_* environment variables").
			WithSuggestion("Use 'bootrunner config show' to see the effective configuration").
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("entry_point", d.EntryPoint)
	v.SetDefault("assets.archive", d.Assets.Archive)
	v.SetDefault("assets.extraction_policy", string(d.Assets.ExtractionPolicy))
	v.SetDefault("paths.files_dir", d.Paths.FilesDir)
	v.SetDefault("paths.cache_dir", d.Paths.CacheDir)
	v.SetDefault("paths.documents_dir", d.Paths.DocumentsDir)
	v.SetDefault("platform.version", d.Platform.Version)
	v.SetDefault("platform.excluded_results_versions", d.Platform.ExcludedResultsVersions)
	v.SetDefault("runtime.bridge", string(d.Runtime.Bridge))
	v.SetDefault("runtime.library", d.Runtime.Library)
	v.SetDefault("runtime.precise_clock", d.Runtime.PreciseClock)
	v.SetDefault("report.format", string(d.Report.Format))
	v.SetDefault("report.output", d.Report.Output)
	v.SetDefault("log.level", string(d.Log.Level))
	v.SetDefault("log.format", string(d.Log.Format))
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) string {
	if configDirPath != "" {
		return configDirPath
	}
	return paths.ConfigDir()
}

// findConfigFile looks for config.cue, then config.toml, first in dir and
// then in the current directory.
func findConfigFile(dir string) string {
	for _, base := range []string{dir, ""} {
		for _, ext := range []string{ExtCUE, ExtTOML} {
			candidate := filepath.Join(base, ConfigFileName+"."+ext)
			if fileExists(candidate) {
				return candidate
			}
		}
	}
	return ""
}

// loadFileIntoViper validates a config file against the #Config schema and
// merges its contents into Viper, keeping defaults and env overrides intact.
func loadFileIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), "."+ExtTOML) {
		if data, err = tomlToJSON(data); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	// Fields are optional, so the document need not be concrete.
	result, err := cueutil.ParseAndDecode[map[string]any](
		[]byte(configSchema), data, schemaDefinition,
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(*result.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// tomlToJSON re-encodes a TOML document as JSON, which CUE accepts as-is.
func tomlToJSON(data []byte) ([]byte, error) {
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, "config.toml"); err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid TOML: %w", err)
	}
	return json.Marshal(doc)
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration as config.cue into dir,
// or into the default config directory when dir is empty. An existing file is
// left untouched unless force is set. It returns the file path.
func CreateDefaultConfig(dir string, force bool) (string, error) {
	dir = configDirWithOverride(dir)
	if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(dir, ConfigFileName+"."+ExtCUE)
	if !force && fileExists(cfgPath) {
		return cfgPath, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, nil
}

// GenerateCUE generates a CUE representation of the configuration.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// bootrunner configuration file\n")
	sb.WriteString("// Environment variables prefixed with BOOTRUNNER_ override these values.\n\n")

	if cfg.EntryPoint != "" {
		fmt.Fprintf(&sb, "entry_point: %q\n\n", cfg.EntryPoint)
	}

	sb.WriteString("assets: {\n")
	fmt.Fprintf(&sb, "\tarchive:           %q\n", cfg.Assets.Archive)
	fmt.Fprintf(&sb, "\textraction_policy: %q\n", cfg.Assets.ExtractionPolicy)
	sb.WriteString("}\n")

	sb.WriteString("\npaths: {\n")
	fmt.Fprintf(&sb, "\tfiles_dir:     %q\n", cfg.Paths.FilesDir)
	fmt.Fprintf(&sb, "\tcache_dir:     %q\n", cfg.Paths.CacheDir)
	fmt.Fprintf(&sb, "\tdocuments_dir: %q\n", cfg.Paths.DocumentsDir)
	sb.WriteString("}\n")

	versions := make([]string, len(cfg.Platform.ExcludedResultsVersions))
	for i, ver := range cfg.Platform.ExcludedResultsVersions {
		versions[i] = fmt.Sprint(ver)
	}
	sb.WriteString("\nplatform: {\n")
	fmt.Fprintf(&sb, "\tversion: %d\n", cfg.Platform.Version)
	fmt.Fprintf(&sb, "\texcluded_results_versions: [%s]\n", strings.Join(versions, ", "))
	sb.WriteString("}\n")

	sb.WriteString("\nruntime: {\n")
	fmt.Fprintf(&sb, "\tbridge:        %q\n", cfg.Runtime.Bridge)
	if cfg.Runtime.Library != "" {
		fmt.Fprintf(&sb, "\tlibrary:       %q\n", cfg.Runtime.Library)
	}
	fmt.Fprintf(&sb, "\tprecise_clock: %v\n", cfg.Runtime.PreciseClock)
	sb.WriteString("}\n")

	sb.WriteString("\nreport: {\n")
	fmt.Fprintf(&sb, "\tformat: %q\n", cfg.Report.Format)
	fmt.Fprintf(&sb, "\toutput: %q\n", cfg.Report.Output)
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel:  %q\n", cfg.Log.Level)
	fmt.Fprintf(&sb, "\tformat: %q\n", cfg.Log.Format)
	sb.WriteString("}\n")

	return sb.String()
}
