// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package preflight orchestrates a health check before going live: it gathers
// host and application telemetry, runs the anomaly detector over it and
// condenses the result into a HealthReport.
//
// The service holds no state between calls. It imposes no deadline of its
// own; callers wrap Check and QuickCheck with a context deadline.
package preflight

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/preflight/internal/anomaly"
	xglog "github.com/ManuGH/preflight/internal/log"
	"github.com/ManuGH/preflight/internal/metrics"
	"github.com/ManuGH/preflight/internal/ports"
	"github.com/ManuGH/preflight/internal/rules"
	"github.com/ManuGH/preflight/internal/telemetry"
)

// DefaultMinRecordMemoryGB is the available memory a host needs, strictly
// exceeded, before recording is allowed.
const DefaultMinRecordMemoryGB = 2.0

const (
	modeFull  = "full"
	modeQuick = "quick"
)

// Detector is the part of detector.Detector the service needs.
type Detector interface {
	Scan(s rules.Snapshot) []anomaly.Anomaly
	ScanFiltered(s rules.Snapshot, min anomaly.Severity) []anomaly.Anomaly
}

// Service runs full and quick checks.
type Service struct {
	monitor  ports.Monitor
	app      ports.Application
	detector Detector

	logger            zerolog.Logger
	tracer            trace.Tracer
	minRecordMemoryGB float64
	now               func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMinRecordMemoryGB overrides the memory precondition for CanRecord.
func WithMinRecordMemoryGB(gb float64) Option {
	return func(s *Service) { s.minRecordMemoryGB = gb }
}

// WithClock replaces time.Now for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTracerProvider sets the provider spans are created from. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(telemetry.TracerName)
		}
	}
}

// New wires a service to its ports and detector.
func New(monitor ports.Monitor, app ports.Application, det Detector, opts ...Option) *Service {
	s := &Service{
		monitor:           monitor,
		app:               app,
		detector:          det,
		logger:            xglog.WithComponent("preflight"),
		tracer:            telemetry.Tracer(telemetry.TracerName),
		minRecordMemoryGB: DefaultMinRecordMemoryGB,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// hostReadings is what the monitor port contributes to a snapshot.
type hostReadings struct {
	cpuTemp  rules.Reading
	gpuTemp  rules.Reading
	cpuUsage float64
	memory   ports.MemoryInfo
	disk     ports.DiskInfo
}

// Check performs a full pre-flight check. Host telemetry, application stats
// and the scene list are fetched concurrently; the first mandatory call to
// fail cancels the others and is returned as a *SourceError.
func (s *Service) Check(ctx context.Context) (HealthReport, error) {
	start := time.Now()
	ctx, logger := s.begin(ctx)
	ctx, span := s.tracer.Start(ctx, "preflight.check",
		trace.WithAttributes(telemetry.CheckAttributes(modeFull, xglog.CheckIDFromContext(ctx))...))
	defer span.End()

	logger.Info().Str(xglog.FieldEvent, "preflight.check_started").Msg("starting health check")

	var (
		host   hostReadings
		stats  ports.AppStats
		scenes []ports.Scene
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		host, err = s.readHost(gctx)
		return err
	})
	g.Go(func() error {
		st, err := s.app.Stats(gctx)
		if err != nil {
			return sourceErr(SourceAppStats, "stats", err)
		}
		stats = st
		return nil
	})
	g.Go(func() error {
		sc, err := s.app.Scenes(gctx)
		if err != nil {
			return sourceErr(SourceAppScenes, "scenes", err)
		}
		scenes = sc
		return nil
	})
	if err := g.Wait(); err != nil {
		return HealthReport{}, s.fail(span, logger, modeFull, start, err)
	}

	missing := unavailableSources(scenes)
	snapshot := rules.NewSnapshot(rules.Readings{
		CPUTempC:                host.cpuTemp,
		GPUTempC:                host.gpuTemp,
		CPUUsagePercent:         host.cpuUsage,
		MemoryUsedPercent:       host.memory.UsedPercent,
		DiskFreeGB:              host.disk.FreeGB,
		AppDroppedFramesPercent: stats.DroppedFramesPercent(),
		AppCPUUsagePercent:      stats.CPUUsage,
		UnavailableSources:      missing,
		AudioPeakDBFS:           rules.Absent(),
		NetworkBitrateKbps:      rules.Absent(),
	})

	report := buildReport(s.detector.Scan(snapshot), host.memory.AvailableGB, s.minRecordMemoryGB, s.now())

	span.SetAttributes(telemetry.ResultAttributes(report.IsHealthy, report.CanStream, report.CanRecord,
		len(report.Anomalies), len(report.CriticalIssues), len(report.Warnings))...)
	metrics.RecordCheck(modeFull, string(report.Status()), time.Since(start).Seconds())
	metrics.SetLastCheckHealthy(report.IsHealthy)

	ev := logger.Info()
	msg := "health check passed"
	if !report.IsHealthy {
		ev = logger.Warn()
		msg = "health check found issues"
	}
	ev.Str(xglog.FieldEvent, "preflight.check_completed").
		Bool(xglog.FieldHealthy, report.IsHealthy).
		Bool(xglog.FieldCanStream, report.CanStream).
		Bool(xglog.FieldCanRecord, report.CanRecord).
		Int(xglog.FieldCriticalCount, len(report.CriticalIssues)).
		Int(xglog.FieldWarningCount, len(report.Warnings)).
		Int(xglog.FieldUnavailableSrc, len(missing)).
		Int64(xglog.FieldDurationMS, time.Since(start).Milliseconds()).
		Msg(msg)

	return report, nil
}

// QuickCheck is a go/no-go gate using the monitor port only. It skips the
// application and the source scan and reports true iff no critical anomaly
// fires.
func (s *Service) QuickCheck(ctx context.Context) (bool, error) {
	start := time.Now()
	ctx, logger := s.begin(ctx)
	ctx, span := s.tracer.Start(ctx, "preflight.quick_check",
		trace.WithAttributes(telemetry.CheckAttributes(modeQuick, xglog.CheckIDFromContext(ctx))...))
	defer span.End()

	host, err := s.readHost(ctx)
	if err != nil {
		return false, s.fail(span, logger, modeQuick, start, err)
	}

	snapshot := rules.NewSnapshot(rules.Readings{
		CPUTempC:           host.cpuTemp,
		GPUTempC:           host.gpuTemp,
		CPUUsagePercent:    host.cpuUsage,
		MemoryUsedPercent:  host.memory.UsedPercent,
		DiskFreeGB:         host.disk.FreeGB,
		AudioPeakDBFS:      rules.Absent(),
		NetworkBitrateKbps: rules.Absent(),
	})
	critical := s.detector.ScanFiltered(snapshot, anomaly.Critical)
	ok := len(critical) == 0

	result := StatusHealthy
	if !ok {
		result = StatusBlocked
	}
	span.SetAttributes(telemetry.ResultAttributes(ok, ok, ok, len(critical), len(critical), 0)...)
	metrics.RecordCheck(modeQuick, string(result), time.Since(start).Seconds())

	logger.Debug().
		Str(xglog.FieldEvent, "preflight.quick_check_completed").
		Bool(xglog.FieldHealthy, ok).
		Int(xglog.FieldCriticalCount, len(critical)).
		Int64(xglog.FieldDurationMS, time.Since(start).Milliseconds()).
		Msg("quick check completed")
	return ok, nil
}

// begin attaches a check ID to ctx unless the caller already set one.
func (s *Service) begin(ctx context.Context) (context.Context, zerolog.Logger) {
	if xglog.CheckIDFromContext(ctx) == "" {
		ctx = xglog.ContextWithCheckID(ctx, uuid.NewString())
	}
	return ctx, xglog.WithContext(ctx, s.logger)
}

func (s *Service) fail(span trace.Span, logger zerolog.Logger, mode string, start time.Time, err error) error {
	var srcErr *SourceError
	source := "unknown"
	if errors.As(err, &srcErr) {
		source = srcErr.Source
		metrics.RecordPortFailure(source)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(telemetry.ErrorAttributes(err, "port_failure")...)
	metrics.RecordCheck(mode, "error", time.Since(start).Seconds())

	logger.Error().Err(err).
		Str(xglog.FieldEvent, "preflight.check_failed").
		Str(xglog.FieldMode, mode).
		Str(xglog.FieldSource, source).
		Msg("health check aborted")
	return err
}

// readHost collects every monitor reading concurrently. Temperatures that
// the platform cannot provide become absent readings, as does CPU usage
// (recorded as 0); memory and disk are mandatory.
func (s *Service) readHost(ctx context.Context) (hostReadings, error) {
	var h hostReadings
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r, err := optionalReading(s.monitor.CPUTemperature(gctx))
		if err != nil {
			return sourceErr(SourceMonitor, "cpu_temperature", err)
		}
		h.cpuTemp = r
		return nil
	})
	g.Go(func() error {
		r, err := optionalReading(s.monitor.GPUTemperature(gctx))
		if err != nil {
			return sourceErr(SourceMonitor, "gpu_temperature", err)
		}
		h.gpuTemp = r
		return nil
	})
	g.Go(func() error {
		r, err := optionalReading(s.monitor.CPUUsage(gctx))
		if err != nil {
			return sourceErr(SourceMonitor, "cpu_usage", err)
		}
		h.cpuUsage, _ = r.Value()
		return nil
	})
	g.Go(func() error {
		m, err := s.monitor.MemoryInfo(gctx)
		if err != nil {
			return sourceErr(SourceMonitor, "memory_info", err)
		}
		h.memory = m
		return nil
	})
	g.Go(func() error {
		d, err := s.monitor.DiskSpace(gctx)
		if err != nil {
			return sourceErr(SourceMonitor, "disk_space", err)
		}
		h.disk = d
		return nil
	})

	if err := g.Wait(); err != nil {
		return hostReadings{}, err
	}
	return h, nil
}

func optionalReading(v float64, err error) (rules.Reading, error) {
	switch {
	case err == nil:
		return rules.Present(v), nil
	case errors.Is(err, ports.ErrSensorUnavailable):
		return rules.Absent(), nil
	default:
		return rules.Reading{}, err
	}
}
