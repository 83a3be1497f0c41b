// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bootrunner/bootrunner/internal/config"
	"github.com/bootrunner/bootrunner/internal/paths"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `bootrunner config` command tree.
func newConfigCommand(app *App, ro *rootOptions) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage bootrunner configuration",
		Long: `Manage bootrunner configuration.

Configuration is read from config.cue or config.toml in
$XDG_CONFIG_HOME/bootrunner, then from the current directory.
Every key can be overridden with a BOOTRUNNER_ environment variable,
for example BOOTRUNNER_RUNTIME_BRIDGE=virtual.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := app.loadConfig(cmd.Context(), ro)
			if err != nil {
				return app.fail(cmd, ro, err, 1)
			}
			showConfig(cmd.OutOrStdout(), cfg, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(cmd.Context(), ro)
			if err != nil {
				return app.fail(cmd, ro, err, 1)
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, path, err := app.loadConfig(cmd.Context(), ro)
			if err != nil {
				return app.fail(cmd, ro, err, 1)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config directory: %s\n", configDir(ro))
			if path == "" {
				fmt.Fprintln(out, "Config file: (none, using defaults)")
			} else {
				fmt.Fprintf(out, "Config file: %s\n", path)
			}
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig(ro.configDir, force)
			if err != nil {
				return app.fail(cmd, ro, err, 1)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config.cue")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func configDir(ro *rootOptions) string {
	if ro.configFile != "" {
		return filepath.Dir(ro.configFile)
	}
	if ro.configDir != "" {
		return ro.configDir
	}
	return paths.ConfigDir()
}

// showConfig prints cfg as aligned key/value lines.
func showConfig(w io.Writer, cfg *config.Config, path string) {
	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path == "" {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("Config file"), WarningStyle.Render("(using defaults)"))
	} else {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("Config file"), path)
	}
	fmt.Fprintln(w)

	versions := make([]string, len(cfg.Platform.ExcludedResultsVersions))
	for i, v := range cfg.Platform.ExcludedResultsVersions {
		versions[i] = strconv.Itoa(v)
	}

	entryPoint := cfg.EntryPoint
	if entryPoint == "" {
		entryPoint = "(none)"
	}

	rows := [][2]string{
		{"entry_point", entryPoint},
		{"assets.archive", cfg.Assets.Archive},
		{"assets.extraction_policy", cfg.Assets.ExtractionPolicy.String()},
		{"paths.files_dir", cfg.Paths.FilesDir},
		{"paths.cache_dir", cfg.Paths.CacheDir},
		{"paths.documents_dir", cfg.Paths.DocumentsDir},
		{"platform.version", strconv.Itoa(cfg.Platform.Version)},
		{"platform.excluded_results_versions", "[" + strings.Join(versions, ", ") + "]"},
		{"runtime.bridge", cfg.Runtime.Bridge.String()},
		{"runtime.library", cfg.Runtime.Library},
		{"runtime.precise_clock", strconv.FormatBool(cfg.Runtime.PreciseClock)},
		{"report.format", cfg.Report.Format.String()},
		{"report.output", cfg.Report.Output},
		{"log.level", cfg.Log.Level.String()},
		{"log.format", string(cfg.Log.Format)},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render(row[0]), SuccessStyle.Render(row[1]))
	}
}
