// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/preflight/internal/config"
	xglog "github.com/ManuGH/preflight/internal/log"
)

type rootOptions struct {
	configPath string
	logLevel   string

	loader *config.Loader
	cfg    config.AppConfig
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "preflight",
		Short: "Pre-flight health monitor for live streaming hosts",
		Long: `Inspect host and production-application telemetry before going live.

A full check reads host temperatures, CPU, memory and disk, the application's
frame statistics and scene sources, and runs the diagnostic rules over them.
The quick check reads the host only and answers go/no-go.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (YAML)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newCheckCmd(opts),
		newQuickCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration and configures logging. Logs go to stderr so
// stdout stays clean for --json.
func (o *rootOptions) load(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}

	o.loader = config.NewLoader(strings.TrimSpace(o.configPath), version)
	cfg, err := o.loader.Load()
	if err != nil {
		return &exitError{code: 2, err: fmt.Errorf("configuration: %w", err)}
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	o.cfg = cfg

	xglog.Configure(xglog.Config{
		Level:   cfg.Log.Level,
		Output:  cmd.ErrOrStderr(),
		Service: cfg.Log.Service,
		Version: version,
	})
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "preflight %s (commit: %s, built: %s)\n", version, commit, buildDate)
			return err
		},
	}
}
