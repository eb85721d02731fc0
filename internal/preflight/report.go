// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package preflight

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/preflight/internal/anomaly"
	xglog "github.com/ManuGH/preflight/internal/log"
)

// Status is the coarse verdict shown by presentation layers.
type Status string

const (
	StatusHealthy  Status = "healthy"  // no criticals, no warnings
	StatusDegraded Status = "degraded" // can stream, has warnings
	StatusBlocked  Status = "blocked"  // at least one critical issue
)

// HealthReport is the result of one full check. It is owned by the caller.
type HealthReport struct {
	IsHealthy      bool              `json:"is_healthy"`
	Timestamp      time.Time         `json:"timestamp"`
	Anomalies      []anomaly.Anomaly `json:"anomalies"`
	CanStream      bool              `json:"can_stream"`
	CanRecord      bool              `json:"can_record"`
	Warnings       []string          `json:"warnings"`
	CriticalIssues []string          `json:"critical_issues"`
}

// Status derives the coarse verdict from the report flags.
func (r HealthReport) Status() Status {
	switch {
	case r.IsHealthy:
		return StatusHealthy
	case r.CanStream:
		return StatusDegraded
	default:
		return StatusBlocked
	}
}

// buildReport partitions list into criticals and warnings and derives the
// capability flags. Info anomalies stay in Anomalies only.
func buildReport(list []anomaly.Anomaly, availableMemoryGB, minRecordMemoryGB float64, now time.Time) HealthReport {
	r := HealthReport{
		Timestamp:      now.UTC(),
		Anomalies:      list,
		Warnings:       []string{},
		CriticalIssues: []string{},
	}
	if r.Anomalies == nil {
		r.Anomalies = []anomaly.Anomaly{}
	}
	for _, a := range r.Anomalies {
		switch a.Severity() {
		case anomaly.Critical:
			r.CriticalIssues = append(r.CriticalIssues, a.Details())
		case anomaly.Warning:
			r.Warnings = append(r.Warnings, a.Details())
		}
	}
	r.CanStream = len(r.CriticalIssues) == 0
	r.CanRecord = r.CanStream && availableMemoryGB > minRecordMemoryGB
	r.IsHealthy = r.CanStream && len(r.Warnings) == 0
	return r
}

// WriteReport writes report as indented JSON to path. The file is replaced
// atomically so a CI job never reads a partial report.
func WriteReport(ctx context.Context, path string, report HealthReport) error {
	logger := xglog.FromContext(ctx)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending report file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending report file")
		}
	}()

	if _, err := pendingFile.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write report data: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit report file: %w", err)
	}

	logger.Debug().Str(xglog.FieldEvent, "preflight.report_written").Str(xglog.FieldPath, path).Msg("report written")
	return nil
}
