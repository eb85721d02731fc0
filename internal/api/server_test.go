// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/preflight/internal/anomaly"
	"github.com/ManuGH/preflight/internal/detector"
	"github.com/ManuGH/preflight/internal/events"
	"github.com/ManuGH/preflight/internal/fixture"
	"github.com/ManuGH/preflight/internal/ports"
	"github.com/ManuGH/preflight/internal/preflight"
	"github.com/ManuGH/preflight/internal/rules"
)

func ptr(v float64) *float64 { return &v }

func studio() fixture.File {
	return fixture.File{
		Monitor: &fixture.MonitorSection{
			CPUTempC:        ptr(55),
			CPUUsagePercent: 30,
			Memory:          ports.MemoryInfo{TotalGB: 32, AvailableGB: 12, UsedPercent: 62.5},
			Disk:            ports.DiskInfo{TotalGB: 1000, FreeGB: 240, UsedPercent: 76},
		},
		App: fixture.AppSection{
			Stats: ports.AppStats{ActiveFPS: 60, OutputTotalFrames: 1000},
			Scenes: []ports.Scene{{
				Name:    "Main",
				Sources: []ports.Source{{Name: "Cam", Kind: "v4l2_input", Available: true}},
			}},
		},
	}
}

func serviceFor(f fixture.File) *preflight.Service {
	fx := fixture.New(f)
	return preflight.New(fx, fx, detector.NewDefault(rules.DefaultThresholds()))
}

func do(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.1.2.3:4567"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var body APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCheck_HealthyReport(t *testing.T) {
	s := New(Config{}, serviceFor(studio()))

	w := do(t, s.Handler(), "/api/v1/preflight")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var report preflight.HealthReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.True(t, report.IsHealthy)
	assert.True(t, report.CanStream)
	assert.True(t, report.CanRecord)
	assert.Empty(t, report.Anomalies)
}

func TestCheck_BlockedReportIsStill200(t *testing.T) {
	f := studio()
	f.Monitor.CPUTempC = ptr(95)
	s := New(Config{}, serviceFor(f))

	w := do(t, s.Handler(), "/api/v1/preflight")
	require.Equal(t, http.StatusOK, w.Code)

	var report preflight.HealthReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.False(t, report.CanStream)
	assert.Len(t, report.CriticalIssues, 1)
	require.Len(t, report.Anomalies, 1)
	assert.Equal(t, anomaly.KindHighCPUTemp, report.Anomalies[0].Kind())
}

func TestCheck_SourceFailureIs502(t *testing.T) {
	f := studio()
	f.Fail = map[string]string{"memory_info": "meminfo unreadable"}
	s := New(Config{}, serviceFor(f))

	w := do(t, s.Handler(), "/api/v1/preflight")
	require.Equal(t, http.StatusBadGateway, w.Code)

	body := decodeError(t, w)
	assert.Equal(t, CodeSourceFailed, body.Code)
	assert.Equal(t, preflight.SourceMonitor, body.Source)
	assert.Equal(t, "memory_info", body.Op)
	assert.Contains(t, body.Detail, "meminfo unreadable")
	assert.NotEmpty(t, body.RequestID)
}

func TestCheck_DeadlineIs504(t *testing.T) {
	f := studio()
	f.Latency = time.Second
	s := New(Config{CheckTimeout: 20 * time.Millisecond}, serviceFor(f))

	start := time.Now()
	w := do(t, s.Handler(), "/api/v1/preflight")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	require.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, CodeCheckTimeout, decodeError(t, w).Code)
}

func TestQuickCheck(t *testing.T) {
	hot := studio()
	hot.Monitor.CPUTempC = ptr(95)

	tests := []struct {
		name string
		file fixture.File
		ok   bool
	}{
		{"go", studio(), true},
		{"no-go", hot, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{}, serviceFor(tt.file))
			w := do(t, s.Handler(), "/api/v1/preflight/quick")
			require.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"ok":%t}`, tt.ok), w.Body.String())
		})
	}
}

func TestQuickCheck_IgnoresApplication(t *testing.T) {
	f := studio()
	f.Fail = map[string]string{"stats": "down", "scenes": "down"}
	s := New(Config{}, serviceFor(f))

	w := do(t, s.Handler(), "/api/v1/preflight/quick")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestReadyz_FollowsQuickCheck(t *testing.T) {
	hot := studio()
	hot.Monitor.CPUTempC = ptr(95)
	s := New(Config{}, serviceFor(studio()))

	assert.Equal(t, http.StatusOK, do(t, s.Handler(), "/readyz").Code)

	s.SetChecker(serviceFor(hot))
	w := do(t, s.Handler(), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "critical anomaly detected")

	assert.Equal(t, http.StatusOK, do(t, s.Handler(), "/healthz").Code)
}

func TestSetChecker_NilAnswers503(t *testing.T) {
	s := New(Config{}, nil)

	w := do(t, s.Handler(), "/api/v1/preflight")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, CodeNotInitialised, decodeError(t, w).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s.Handler(), "/readyz").Code)

	s.SetChecker(serviceFor(studio()))
	assert.Equal(t, http.StatusOK, do(t, s.Handler(), "/api/v1/preflight").Code)
}

func TestCheck_PublishesEvents(t *testing.T) {
	bus := events.NewMemoryBus()
	t.Cleanup(func() { _ = bus.Close() })
	completed, err := bus.Subscribe(context.Background(), events.TopicHealthCheckCompleted)
	require.NoError(t, err)
	detected, err := bus.Subscribe(context.Background(), events.TopicAnomalyDetected)
	require.NoError(t, err)

	f := studio()
	f.Monitor.CPUTempC = ptr(80)
	s := New(Config{PublishTimeout: time.Second}, serviceFor(f), WithEventBus(bus))

	require.Equal(t, http.StatusOK, do(t, s.Handler(), "/api/v1/preflight").Code)

	require.Len(t, completed.C(), 1)
	ev := (<-completed.C()).(events.HealthCheckCompleted)
	assert.True(t, ev.CanStream)
	assert.False(t, ev.IsHealthy)
	assert.Equal(t, 1, ev.AnomalyCount)
	assert.Len(t, detected.C(), 1)

	// quick checks publish nothing
	require.Equal(t, http.StatusOK, do(t, s.Handler(), "/api/v1/preflight/quick").Code)
	assert.Empty(t, completed.C())
}

func TestCheck_RateLimited(t *testing.T) {
	s := New(Config{RateLimitRPM: 2}, serviceFor(studio()))

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, do(t, s.Handler(), "/api/v1/preflight/quick").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, do(t, s.Handler(), "/api/v1/preflight").Code)
	// probes are not throttled
	assert.Equal(t, http.StatusOK, do(t, s.Handler(), "/healthz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := New(Config{}, serviceFor(studio()))
	require.Equal(t, http.StatusOK, do(t, s.Handler(), "/api/v1/preflight").Code)

	w := do(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "preflight_checks_total")
	assert.Contains(t, w.Body.String(), "preflight_http_request_duration_seconds")
}

func TestStartShutdown(t *testing.T) {
	s := New(Config{Listen: "127.0.0.1:0"}, serviceFor(studio()))
	addr, errCh, err := s.Start()
	require.NoError(t, err)

	client := &http.Client{Timeout: 2 * time.Second, Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + addr.String() + "/api/v1/preflight/quick")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	_, open := <-errCh
	assert.False(t, open)
}

func TestReadyz_UsesReloadedCheckTimeout(t *testing.T) {
	f := studio()
	f.Latency = 200 * time.Millisecond
	s := New(Config{CheckTimeout: 5 * time.Second}, serviceFor(f))

	require.Equal(t, http.StatusOK, do(t, s.Handler(), "/readyz").Code)

	s.SetCheckTimeout(20 * time.Millisecond)
	start := time.Now()
	w := do(t, s.Handler(), "/readyz")
	assert.Less(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "quick check failed")
}
