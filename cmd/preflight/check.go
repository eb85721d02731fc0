// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	xglog "github.com/ManuGH/preflight/internal/log"
	"github.com/ManuGH/preflight/internal/preflight"
)

// checkContext bounds a CLI check by the API check timeout so a hung sensor
// cannot stall a CI job.
func checkContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(parent, timeout)
	}
	return context.WithCancel(parent)
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var (
		asJSON      bool
		outPath     string
		fixturePath string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a full pre-flight check",
		Long: `Run every diagnostic rule over host and application telemetry.

Exit status is 0 when the host can stream, 1 when a critical issue blocks
streaming and 2 when telemetry could not be read.

Examples:
  # Check against a recorded fixture
  preflight check --fixture studio.yaml

  # Machine-readable output plus a report file for CI artefacts
  preflight check --json --out preflight-report.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			if fixturePath != "" {
				cfg.Fixture = fixturePath
			}

			svc, err := buildService(cfg)
			if err != nil {
				return &exitError{code: 2, err: err}
			}

			ctx, cancel := checkContext(cmd.Context(), cfg.API.CheckTimeout)
			defer cancel()

			report, err := svc.Check(ctx)
			if err != nil {
				return &exitError{code: 2, err: err}
			}

			if outPath != "" {
				if err := preflight.WriteReport(ctx, outPath, report); err != nil {
					return &exitError{code: 2, err: err}
				}
				logger := xglog.WithComponent("cli")
				logger.Info().
					Str(xglog.FieldEvent, "cli.report_written").
					Str(xglog.FieldPath, outPath).
					Msg("report written")
			}

			if asJSON {
				err = renderJSON(cmd.OutOrStdout(), report)
			} else {
				err = renderReport(cmd.OutOrStdout(), report)
			}
			if err != nil {
				return err
			}

			if !report.CanStream {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "also write the JSON report to this file")
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "replay telemetry from a fixture file")
	return cmd
}

func newQuickCmd(opts *rootOptions) *cobra.Command {
	var (
		asJSON      bool
		fixturePath string
	)

	cmd := &cobra.Command{
		Use:   "quick",
		Short: "Go/no-go check of the host only",
		Long: `Read host telemetry and report whether any critical anomaly is present.
Application statistics and scene sources are not consulted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			if fixturePath != "" {
				cfg.Fixture = fixturePath
			}

			svc, err := buildService(cfg)
			if err != nil {
				return &exitError{code: 2, err: err}
			}

			ctx, cancel := checkContext(cmd.Context(), cfg.API.CheckTimeout)
			defer cancel()

			ok, err := svc.QuickCheck(ctx)
			if err != nil {
				return &exitError{code: 2, err: err}
			}

			if asJSON {
				if err := renderJSON(cmd.OutOrStdout(), map[string]bool{"ok": ok}); err != nil {
					return err
				}
			} else if ok {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s go\n", color.New(color.FgGreen).Sprint("✓"))
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s no-go: critical anomaly on host\n", color.New(color.FgRed).Sprint("✗"))
			}

			if !ok {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print {\"ok\": bool}")
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "replay telemetry from a fixture file")
	return cmd
}
