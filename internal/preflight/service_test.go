// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package preflight

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	"github.com/ManuGH/preflight/internal/anomaly"
	"github.com/ManuGH/preflight/internal/detector"
	xglog "github.com/ManuGH/preflight/internal/log"
	"github.com/ManuGH/preflight/internal/ports"
	"github.com/ManuGH/preflight/internal/rules"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC)

func newService(mon ports.Monitor, app ports.Application, opts ...Option) *Service {
	det := detector.NewDefault(rules.DefaultThresholds(), detector.WithLogger(zerolog.Nop()))
	base := []Option{WithLogger(zerolog.Nop()), WithClock(func() time.Time { return fixedNow })}
	return New(mon, app, det, append(base, opts...)...)
}

func TestCheck_Healthy(t *testing.T) {
	svc := newService(healthyMonitor(), healthyApp())

	report, err := svc.Check(context.Background())
	require.NoError(t, err)

	assert.True(t, report.IsHealthy)
	assert.True(t, report.CanStream)
	assert.True(t, report.CanRecord)
	assert.Equal(t, fixedNow, report.Timestamp)
	assert.NotNil(t, report.Anomalies)
	assert.Empty(t, report.Anomalies)
	assert.NotNil(t, report.Warnings)
	assert.NotNil(t, report.CriticalIssues)
	assert.Equal(t, StatusHealthy, report.Status())
}

func TestCheck_WarningOnly(t *testing.T) {
	mon := healthyMonitor()
	mon.cpuTemp = 78
	svc := newService(mon, healthyApp())

	report, err := svc.Check(context.Background())
	require.NoError(t, err)

	assert.False(t, report.IsHealthy)
	assert.True(t, report.CanStream)
	assert.True(t, report.CanRecord)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "78.0")
	assert.Empty(t, report.CriticalIssues)
	assert.Equal(t, StatusDegraded, report.Status())
}

func TestCheck_MissingSourcesBlockStreaming(t *testing.T) {
	app := healthyApp()
	app.scenes = []ports.Scene{
		{Name: "Main", Sources: []ports.Source{{Name: "Cam", Available: false}, {Name: "Mic", Available: true}}},
		{Name: "BRB", Sources: []ports.Source{{Name: "Loop", Available: false}}},
		{Name: "Main", Sources: []ports.Source{{Name: "Cam", Available: false}}},
	}
	svc := newService(healthyMonitor(), app)

	report, err := svc.Check(context.Background())
	require.NoError(t, err)

	assert.False(t, report.CanStream)
	assert.False(t, report.CanRecord)
	assert.False(t, report.IsHealthy)
	require.Len(t, report.Anomalies, 1)
	require.Len(t, report.CriticalIssues, 1)
	assert.Equal(t, "Missing 2 source(s): BRB:Loop, Main:Cam", report.CriticalIssues[0])
	assert.Equal(t, StatusBlocked, report.Status())
}

func TestCheck_CanRecordNeedsMemory(t *testing.T) {
	tests := []struct {
		available float64
		min       float64
		want      bool
	}{
		{available: 2.0, min: DefaultMinRecordMemoryGB, want: false},
		{available: 2.01, min: DefaultMinRecordMemoryGB, want: true},
		{available: 6, min: 8, want: false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f_over_%.1f", tt.available, tt.min), func(t *testing.T) {
			mon := healthyMonitor()
			mon.memory.AvailableGB = tt.available
			svc := newService(mon, healthyApp(), WithMinRecordMemoryGB(tt.min))

			report, err := svc.Check(context.Background())
			require.NoError(t, err)
			assert.True(t, report.CanStream)
			assert.Equal(t, tt.want, report.CanRecord)
		})
	}
}

func TestCheck_UnsupportedTemperatureIsAbsent(t *testing.T) {
	mon := healthyMonitor()
	mon.cpuTempErr = fmt.Errorf("no thermal zone: %w", ports.ErrSensorUnavailable)
	mon.gpuTempErr = ports.ErrSensorUnavailable
	mon.cpuUsageErr = ports.ErrSensorUnavailable
	svc := newService(mon, healthyApp())

	report, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, report.IsHealthy)
}

func TestCheck_PortFailures(t *testing.T) {
	boom := errors.New("connection refused")
	tests := []struct {
		name   string
		mutate func(*fakeMonitor, *fakeApp)
		source string
		op     string
	}{
		{"stats", func(_ *fakeMonitor, a *fakeApp) { a.statsErr = boom }, SourceAppStats, "stats"},
		{"scenes", func(_ *fakeMonitor, a *fakeApp) { a.scenesErr = boom }, SourceAppScenes, "scenes"},
		{"memory", func(m *fakeMonitor, _ *fakeApp) { m.memoryErr = boom }, SourceMonitor, "memory_info"},
		{"disk", func(m *fakeMonitor, _ *fakeApp) { m.diskErr = boom }, SourceMonitor, "disk_space"},
		{"cpu temperature", func(m *fakeMonitor, _ *fakeApp) { m.cpuTempErr = boom }, SourceMonitor, "cpu_temperature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mon, app := healthyMonitor(), healthyApp()
			tt.mutate(mon, app)
			svc := newService(mon, app)

			report, err := svc.Check(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, boom))

			var srcErr *SourceError
			require.ErrorAs(t, err, &srcErr)
			assert.Equal(t, tt.source, srcErr.Source)
			assert.Equal(t, tt.op, srcErr.Op)
			assert.Contains(t, err.Error(), tt.source)
			assert.Empty(t, cmp.Diff(HealthReport{}, report, cmp.AllowUnexported(anomaly.Anomaly{})))
		})
	}
}

func TestCheck_FailureCancelsSiblings(t *testing.T) {
	mon := healthyMonitor()
	mon.diskErr = errors.New("statfs: no such file or directory")
	app := healthyApp()
	app.block = true
	svc := newService(mon, app)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Check(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		var srcErr *SourceError
		require.ErrorAs(t, err, &srcErr)
		assert.Equal(t, SourceMonitor, srcErr.Source)
	case <-time.After(5 * time.Second):
		t.Fatal("check did not abort blocked sibling")
	}
}

func TestCheck_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(healthyMonitor(), healthyApp()).Check(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheck_Stateless(t *testing.T) {
	mon := healthyMonitor()
	mon.cpuTemp = 90
	svc := newService(mon, healthyApp())

	first, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, first.CanStream)

	mon.cpuTemp = 50
	second, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, second.IsHealthy)
}

func TestCheck_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	mon := healthyMonitor()
	mon.memoryErr = errors.New("meminfo unreadable")
	svc := newService(mon, healthyApp(), WithTracerProvider(tp))

	ctx := xglog.ContextWithCheckID(context.Background(), "check-1")
	_, err := svc.Check(ctx)
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "preflight.check", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestQuickCheck_UsesMonitorOnly(t *testing.T) {
	app := healthyApp()
	app.scenes = []ports.Scene{{Name: "Main", Sources: []ports.Source{{Name: "Cam", Available: false}}}}
	svc := newService(healthyMonitor(), app)

	ok, err := svc.QuickCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, app.calls.Load())
}

func TestQuickCheck_IgnoresWarnings(t *testing.T) {
	mon := healthyMonitor()
	mon.gpuTemp = 85
	ok, err := newService(mon, healthyApp()).QuickCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestQuickCheck_Critical(t *testing.T) {
	mon := healthyMonitor()
	mon.disk.FreeGB = 3
	ok, err := newService(mon, healthyApp()).QuickCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQuickCheck_PortFailure(t *testing.T) {
	mon := healthyMonitor()
	mon.memoryErr = errors.New("denied")
	ok, err := newService(mon, healthyApp()).QuickCheck(context.Background())
	assert.False(t, ok)

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, "memory_info", srcErr.Op)
}
