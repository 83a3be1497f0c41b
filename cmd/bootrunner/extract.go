// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/bootrunner/bootrunner/internal/environ"
	"github.com/bootrunner/bootrunner/internal/invocation"
	"github.com/bootrunner/bootrunner/internal/issue"

	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/syntax"
)

func newExtractCommand(app *App, ro *rootOptions) *cobra.Command {
	o := &runOptions{}

	cmd := &cobra.Command{
		Use:   "extract [key=value...]",
		Short: "Prepare the environment without starting the runtime",
		Long: `Extract deploys the asset archive and resolves the runtime directories
exactly like run, then prints the resulting environment as shell exports:

  eval "$(bootrunner extract -e env:LANG=C)"

Only env: arguments are used; the entry point and pass-through arguments
are ignored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, app, ro, o, args)
		},
	}

	cmd.Flags().StringArrayVarP(&o.extra, "extra", "e", nil, "invocation argument as key=value (repeatable)")
	cmd.Flags().StringVar(&o.argsFile, "args-file", "", "JSON object of invocation arguments")
	addEnvironmentFlags(cmd, o)

	return cmd
}

func runExtract(cmd *cobra.Command, app *App, ro *rootOptions, o *runOptions, args []string) error {
	ctx := cmd.Context()

	cfg, _, err := app.loadConfig(ctx, ro)
	if err != nil {
		return app.fail(cmd, ro, err, 1)
	}
	if err := o.apply(cmd, cfg); err != nil {
		return app.fail(cmd, ro, newServiceError(err, issue.InvalidArgumentsId), 1)
	}
	logger := app.newLogger(cfg.Log, ro.verbose)

	entries, err := o.entries(args)
	if err != nil {
		return app.fail(cmd, ro, newServiceError(err, issue.InvalidArgumentsId), 1)
	}
	inv := (&invocation.Classifier{Logger: logger}).Classify(entries)

	var vars []environ.Var
	res, err := environ.Materialize(ctx, environ.Options{
		Paths:   cfg.Resolver(),
		Archive: o.archiveSource(cfg, logger),
		Policy:  cfg.Assets.ExtractionPolicy,
		Overlay: inv.Overlay,
		Setter: environ.SetterFunc(func(name, value string) error {
			vars = append(vars, environ.Var{Name: name, Value: value})
			return nil
		}),
		Logger: logger,
	})
	if err != nil {
		return app.fail(cmd, ro, classifyRunError(err), 1)
	}

	logger.Info("environment prepared",
		"files", res.Stats.Files, "dirs", res.Stats.Dirs, "bytes", res.Stats.Bytes,
		"results", res.Layout.ResultsRoot)
	if res.Layout.ResultsFallback != "" {
		logger.Warn("test results go to the cache directory", "reason", res.Layout.ResultsFallback)
	}

	return writeExports(cmd.OutOrStdout(), vars)
}

// writeExports prints vars as POSIX shell export statements. A variable set
// more than once is printed each time, so the last value wins when sourced.
func writeExports(w io.Writer, vars []environ.Var) error {
	for _, v := range vars {
		quoted, err := syntax.Quote(v.Value, syntax.LangPOSIX)
		if err != nil {
			return fmt.Errorf("cannot quote %s: %w", v.Name, err)
		}
		if _, err := fmt.Fprintf(w, "export %s=%s\n", v.Name, quoted); err != nil {
			return err
		}
	}
	return nil
}
