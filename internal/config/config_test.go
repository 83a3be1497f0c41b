// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/bootrunner/bootrunner/internal/assets"
	"github.com/bootrunner/bootrunner/internal/issue"
	"github.com/bootrunner/bootrunner/internal/report"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, path, err := loadWithOptions(t.Context(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("loadWithOptions() error: %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty", path)
	}

	def := DefaultConfig()
	if cfg.Runtime.Bridge != BridgeNative {
		t.Errorf("Runtime.Bridge = %q, want %q", cfg.Runtime.Bridge, BridgeNative)
	}
	if cfg.Assets.ExtractionPolicy != assets.PolicySoft {
		t.Errorf("Assets.ExtractionPolicy = %q, want soft", cfg.Assets.ExtractionPolicy)
	}
	if cfg.Report.Format != report.FormatJSON {
		t.Errorf("Report.Format = %q, want json", cfg.Report.Format)
	}
	if !cfg.Runtime.PreciseClock {
		t.Error("Runtime.PreciseClock = false, want true")
	}
	if !slices.Equal(cfg.Platform.ExcludedResultsVersions, []int{30}) {
		t.Errorf("ExcludedResultsVersions = %v, want [30]", cfg.Platform.ExcludedResultsVersions)
	}
	if cfg.Paths.FilesDir != def.Paths.FilesDir {
		t.Errorf("Paths.FilesDir = %q, want %q", cfg.Paths.FilesDir, def.Paths.FilesDir)
	}
}

func TestLoad_CUEFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.cue", `
entry_point: "Tests.dll"
assets: extraction_policy: "fatal"
paths: {
	files_dir: "/srv/files"
	cache_dir: "/srv/cache"
}
platform: {
	version: 33
	excluded_results_versions: [29, 30]
}
runtime: bridge: "virtual"
report: format: "instrumentation"
log: level: "debug"
`)

	cfg, path, err := loadWithOptions(t.Context(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() error: %v", err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("resolved path = %q", path)
	}

	if cfg.EntryPoint != "Tests.dll" {
		t.Errorf("EntryPoint = %q", cfg.EntryPoint)
	}
	if cfg.Assets.ExtractionPolicy != assets.PolicyFatal {
		t.Errorf("ExtractionPolicy = %q", cfg.Assets.ExtractionPolicy)
	}
	if cfg.Paths.FilesDir != "/srv/files" || cfg.Paths.CacheDir != "/srv/cache" {
		t.Errorf("Paths = %+v", cfg.Paths)
	}
	if cfg.Platform.Version != 33 || !slices.Equal(cfg.Platform.ExcludedResultsVersions, []int{29, 30}) {
		t.Errorf("Platform = %+v", cfg.Platform)
	}
	if cfg.Runtime.Bridge != BridgeVirtual {
		t.Errorf("Runtime.Bridge = %q", cfg.Runtime.Bridge)
	}
	if cfg.Report.Format != report.FormatInstrumentation {
		t.Errorf("Report.Format = %q", cfg.Report.Format)
	}
	if cfg.Log.Level != LogLevelDebug {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	// Untouched keys keep their defaults.
	if cfg.Assets.Archive != DefaultConfig().Assets.Archive {
		t.Errorf("Assets.Archive = %q, want default", cfg.Assets.Archive)
	}
}

func TestLoad_TOMLFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, "settings.toml", `
entry_point = "Smoke.dll"

[runtime]
bridge = "virtual"
precise_clock = false

[platform]
version = 30
excluded_results_versions = [30, 31]
`)

	cfg, resolved, err := loadWithOptions(t.Context(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("loadWithOptions() error: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.EntryPoint != "Smoke.dll" || cfg.Runtime.Bridge != BridgeVirtual || cfg.Runtime.PreciseClock {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Platform.Version != 30 || !slices.Equal(cfg.Platform.ExcludedResultsVersions, []int{30, 31}) {
		t.Errorf("Platform = %+v", cfg.Platform)
	}
}

func TestLoad_PrefersCUEOverTOML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", `entry_point = "toml"`)
	writeConfig(t, dir, "config.cue", `entry_point: "cue"`)

	cfg, path, err := loadWithOptions(t.Context(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() error: %v", err)
	}
	if cfg.EntryPoint != "cue" || filepath.Ext(path) != ".cue" {
		t.Errorf("EntryPoint = %q from %q, want cue", cfg.EntryPoint, path)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{name: "unknown bridge", file: "config.cue", content: `runtime: bridge: "docker"`, want: "bridge"},
		{name: "unknown field", file: "config.cue", content: `colour: "blue"`, want: "colour"},
		{name: "negative version", file: "config.cue", content: `platform: version: -1`, want: "version"},
		{name: "bad policy in TOML", file: "config.toml", content: "[assets]\nextraction_policy = \"maybe\"\n", want: "extraction_policy"},
		{name: "TOML syntax", file: "config.toml", content: "entry_point = \n", want: "TOML"},
		{name: "CUE syntax", file: "config.cue", content: "entry_point: {", want: "config.cue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeConfig(t, t.TempDir(), tt.file, tt.content)
			_, _, err := loadWithOptions(t.Context(), LoadOptions{ConfigFilePath: path})
			if err == nil {
				t.Fatal("loadWithOptions() expected error, got nil")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error should be *issue.ActionableError, got %T", err)
			}
			if !ae.HasSuggestions() {
				t.Error("error should carry suggestions")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, _, err := loadWithOptions(t.Context(), LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")})
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("error = %v, want ErrConfigNotFound", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, _, err := loadWithOptions(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.cue", `runtime: bridge: "native"`)

	t.Setenv("BOOTRUNNER_RUNTIME_BRIDGE", "virtual")
	t.Setenv("BOOTRUNNER_ENTRY_POINT", "FromEnv.dll")
	t.Setenv("BOOTRUNNER_REPORT_FORMAT", "yaml")

	cfg, _, err := loadWithOptions(t.Context(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() error: %v", err)
	}
	if cfg.Runtime.Bridge != BridgeVirtual {
		t.Errorf("Runtime.Bridge = %q, env should win over the file", cfg.Runtime.Bridge)
	}
	if cfg.EntryPoint != "FromEnv.dll" {
		t.Errorf("EntryPoint = %q", cfg.EntryPoint)
	}
	if cfg.Report.Format != report.FormatYAML {
		t.Errorf("Report.Format = %q", cfg.Report.Format)
	}
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	t.Setenv("BOOTRUNNER_LOG_LEVEL", "loud")

	_, _, err := loadWithOptions(t.Context(), LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("error = %v, want ErrInvalidConfig", err)
	}
	var cfgErr *InvalidConfigError
	if !errors.As(err, &cfgErr) || !errors.Is(cfgErr.FieldErrors[0], ErrInvalidLogLevel) {
		t.Errorf("field errors should include ErrInvalidLogLevel: %v", err)
	}
}

func TestCreateDefaultConfig_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested")
	path, err := CreateDefaultConfig(dir, false)
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error: %v", err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("path = %q", path)
	}

	cfg, resolved, err := loadWithOptions(t.Context(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	def := DefaultConfig()
	if cfg.Runtime != def.Runtime || cfg.Paths != def.Paths || cfg.Assets != def.Assets {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", cfg, def)
	}
}

func TestCreateDefaultConfig_KeepsExisting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, "config.cue", `entry_point: "mine"`)

	if _, err := CreateDefaultConfig(dir, false); err != nil {
		t.Fatalf("CreateDefaultConfig() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `entry_point: "mine"` {
		t.Errorf("existing config was overwritten: %q", data)
	}

	if _, err := CreateDefaultConfig(dir, true); err != nil {
		t.Fatalf("CreateDefaultConfig(force) error: %v", err)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "runtime: {") {
		t.Errorf("forced config was not regenerated: %q", data)
	}
}

func TestGenerateCUE(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.EntryPoint = "Tests.dll"
	cfg.Platform.ExcludedResultsVersions = []int{29, 30}

	out := GenerateCUE(cfg)
	for _, want := range []string{
		`entry_point: "Tests.dll"`,
		`excluded_results_versions: [29, 30]`,
		`bridge:        "native"`,
		`extraction_policy: "soft"`,
		`level:  "info"`,
		`format: "auto"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("GenerateCUE() missing %q:\n%s", want, out)
		}
	}

	if strings.Contains(GenerateCUE(DefaultConfig()), "entry_point") {
		t.Error("GenerateCUE() should omit an empty entry point")
	}
}
