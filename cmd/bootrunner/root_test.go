// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/fang"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-01-15T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2026-01-15T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q, want %q", got, "dev (built from source)")
		}
	})
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	root := NewRootCommand(newTestHarness(t).app)
	for _, name := range []string{"run", "extract", "config"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	for _, flag := range []string{"config", "config-dir", "log-level", "verbose"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s not registered", flag)
		}
	}
}

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	var silent bytes.Buffer
	errorHandler(&silent, fang.Styles{}, &ExitError{Code: 3})
	if silent.Len() != 0 {
		t.Errorf("ExitError should not be printed, got %q", silent.String())
	}

	var loud bytes.Buffer
	errorHandler(&loud, fang.Styles{}, errors.New("unknown flag: --nope"))
	if !strings.Contains(loud.String(), "unknown flag") {
		t.Errorf("other errors should be printed, got %q", loud.String())
	}
}

func TestLoadConfig_LogLevelOverride(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	ro := &rootOptions{configDir: h.cfgDir, logLevel: "debug"}

	cfg, path, err := h.app.loadConfig(t.Context(), ro)
	if err != nil {
		t.Fatalf("loadConfig() unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty without a config file", path)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}

	ro.logLevel = "loud"
	_, _, err = h.app.loadConfig(t.Context(), ro)
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("loadConfig() error = %v, want *ServiceError", err)
	}
}

func TestRun_MissingConfigFile(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	err := h.execute(t, "run", "--config", filepath.Join(h.root, "nowhere", "config.cue"))

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("run error = %v, want *ExitError with code 1", err)
	}
	if !strings.Contains(h.stderr.String(), "Failed to load configuration") {
		t.Errorf("stderr should render the configuration issue:\n%s", h.stderr)
	}
}
