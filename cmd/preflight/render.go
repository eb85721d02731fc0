// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ManuGH/preflight/internal/anomaly"
	"github.com/ManuGH/preflight/internal/preflight"
)

// summary is the one-line verdict of a report.
func summary(r preflight.HealthReport) string {
	switch r.Status() {
	case preflight.StatusHealthy:
		return "All systems healthy, ready to go live"
	case preflight.StatusDegraded:
		return fmt.Sprintf("Can stream but has %d warning(s)", len(r.Warnings))
	default:
		return fmt.Sprintf("NOT ready to stream: %d critical issue(s)", len(r.CriticalIssues))
	}
}

func yesNo(v bool) string {
	if v {
		return color.New(color.FgGreen).Sprint("yes")
	}
	return color.New(color.FgRed).Sprint("no")
}

func renderReport(w io.Writer, r preflight.HealthReport) error {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s %s\n\n", cyan("Pre-flight check"), gray(r.Timestamp.Format("2006-01-02 15:04:05 MST")))

	switch r.Status() {
	case preflight.StatusHealthy:
		fmt.Fprintf(&b, "%s %s\n", green("✓"), summary(r))
	case preflight.StatusDegraded:
		fmt.Fprintf(&b, "%s %s\n", yellow("!"), summary(r))
	default:
		fmt.Fprintf(&b, "%s %s\n", red("✗"), summary(r))
	}

	if len(r.Anomalies) > 0 {
		b.WriteString("\n")
		for _, a := range r.Anomalies {
			var badge string
			switch a.Severity() {
			case anomaly.Critical:
				badge = red("CRITICAL")
			case anomaly.Warning:
				badge = yellow("WARNING ")
			default:
				badge = gray("INFO    ")
			}
			fmt.Fprintf(&b, "  %s %s %s\n", badge, a.Details(), gray("("+a.Kind().String()+")"))
			if action := a.RecommendedAction(); action != "" {
				fmt.Fprintf(&b, "           %s %s\n", gray("→"), action)
			}
		}
	}

	fmt.Fprintf(&b, "\n  Can stream: %s   Can record: %s\n\n", yesNo(r.CanStream), yesNo(r.CanRecord))
	_, err := io.WriteString(w, b.String())
	return err
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
