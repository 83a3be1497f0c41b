// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/bootrunner/bootrunner/internal/config"
	"github.com/bootrunner/bootrunner/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile string
	configDir  string
	logLevel   string
	verbose    bool
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	ro := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "bootrunner",
		Short: "Bootstrap an embedded runtime and report its result",
		Long: TitleStyle.Render("bootrunner") + SubtitleStyle.Render(" - bootstrap an embedded runtime and report its result") + `

bootrunner deploys the bundled asset archive, prepares HOME, TMPDIR and
TEST_RESULTS_DIR, initializes the runtime for an entry point, executes it
once and reports its return code together with the test results path.

` + SubtitleStyle.Render("Arguments:") + `
  env:<NAME>=<value>           set an environment variable
  entrypoint:libname=<name>    select the entry point
  <key>=<value>                pass through to the entry point

` + SubtitleStyle.Render("Examples:") + `
  bootrunner run -e entrypoint:libname=Tests.dll -e env:LANG=C
  bootrunner run --bridge virtual -e entrypoint:libname=smoke.sh
  bootrunner extract --archive assets.tar.zst
  bootrunner config show`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&ro.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/bootrunner/config.cue)")
	rootCmd.PersistentFlags().StringVar(&ro.configDir, "config-dir", "", "directory searched for config.cue or config.toml")
	rootCmd.PersistentFlags().StringVar(&ro.logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVarP(&ro.verbose, "verbose", "v", false, "enable debug logging and full error chains")

	rootCmd.AddCommand(newRunCommand(app, ro))
	rootCmd.AddCommand(newExtractCommand(app, ro))
	rootCmd.AddCommand(newConfigCommand(app, ro))

	rootCmd.SetIn(app.stdin)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the run's exit code. It is called by
// main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// errorHandler leaves ExitErrors alone: their message was rendered by the
// command, or there is none because the entry point chose the exit code.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// loadOptions converts the persistent flags into config.LoadOptions.
func (ro *rootOptions) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: ro.configFile, ConfigDirPath: ro.configDir}
}

// loadConfig loads the configuration and applies --log-level.
func (a *App) loadConfig(ctx context.Context, ro *rootOptions) (*config.Config, string, error) {
	cfg, path, err := a.Config.Resolve(ctx, ro.loadOptions())
	if err != nil {
		return nil, "", newServiceError(err, issue.ConfigLoadFailedId)
	}
	if ro.logLevel != "" {
		level := config.LogLevel(ro.logLevel)
		if ok, errs := level.IsValid(); !ok {
			return nil, "", newServiceError(errs[0], issue.ConfigLoadFailedId)
		}
		cfg.Log.Level = level
	}
	return cfg, path, nil
}

// fail renders err and converts it into an *ExitError with code, using 1
// when code is zero.
func (a *App) fail(cmd *cobra.Command, ro *rootOptions, err error, code int) error {
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		svcErr = newServiceError(err, 0)
	}
	renderServiceError(cmd.ErrOrStderr(), svcErr, ro.verbose, a.issueStyle())

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	if code == 0 {
		code = 1
	}
	return &ExitError{Code: code, Err: err}
}
