// SPDX-License-Identifier: MIT

// Package health provides liveness and readiness probes for "preflight
// serve". Readiness is the quick pre-flight gate: a host that could not go
// live reports not ready.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/preflight/internal/log"
)

// Status represents the overall health/readiness status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component health check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse represents the full health check response
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager manages health and readiness checks
type Manager struct {
	version string

	mu       sync.RWMutex
	checkers []Checker
}

// NewManager creates a new health check manager
func NewManager(version string) *Manager {
	return &Manager{version: version}
}

// RegisterChecker adds a health checker to the manager
func (m *Manager) RegisterChecker(checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, checker)
}

// runChecks executes every checker concurrently and folds the results.
func (m *Manager) runChecks(ctx context.Context) (map[string]CheckResult, Status) {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	m.mu.RUnlock()

	results := make([]CheckResult, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		g.Go(func() error {
			results[i] = c.Check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	checks := make(map[string]CheckResult, len(checkers))
	overall := StatusHealthy
	for i, c := range checkers {
		checks[c.Name()] = results[i]
		switch results[i].Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}
	return checks, overall
}

// Health is the liveness probe. The process being able to answer is enough;
// component checks are only run when verbose is set.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: time.Now(),
	}
	if verbose {
		resp.Checks, resp.Status = m.runChecks(ctx)
	}
	return resp
}

// Ready is the readiness probe. Any unhealthy component makes the service
// not ready; degraded components do not.
func (m *Manager) Ready(ctx context.Context, verbose bool) ReadinessResponse {
	checks, status := m.runChecks(ctx)
	resp := ReadinessResponse{
		Ready:     status != StatusUnhealthy,
		Status:    status,
		Timestamp: time.Now(),
	}
	if verbose || !resp.Ready {
		resp.Checks = checks
	}
	return resp
}

// ServeHealth handles HTTP health check requests
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "health")
	verbose := r.URL.Query().Get("verbose") == "true"

	resp := m.Health(r.Context(), verbose)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK) // Always 200 for liveness

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "health.encode_error").Msg("failed to encode health response")
	}
	logger.Debug().
		Str("event", "health.checked").
		Str("status", string(resp.Status)).
		Bool("verbose", verbose).
		Msg("health check performed")
}

// ServeReady handles HTTP readiness check requests
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "readiness")
	verbose := r.URL.Query().Get("verbose") == "true"

	resp := m.Ready(r.Context(), verbose)

	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "readiness.encode_error").Msg("failed to encode readiness response")
	}
	logger.Debug().
		Str("event", "readiness.checked").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("readiness check performed")
}

// QuickChecker is the go/no-go gate of preflight.Service.
type QuickChecker interface {
	QuickCheck(ctx context.Context) (bool, error)
}

// PreflightChecker reports unhealthy when the quick check finds a critical
// anomaly or cannot read host telemetry.
type PreflightChecker struct {
	svc     func() QuickChecker
	timeout time.Duration
}

// NewPreflightChecker resolves the service on every probe so a reloaded
// service is picked up. timeout bounds a single probe; zero means none.
func NewPreflightChecker(svc func() QuickChecker, timeout time.Duration) *PreflightChecker {
	return &PreflightChecker{svc: svc, timeout: timeout}
}

func (c *PreflightChecker) Name() string {
	return "preflight"
}

func (c *PreflightChecker) Check(ctx context.Context) CheckResult {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	svc := c.svc()
	if svc == nil {
		return CheckResult{Status: StatusUnhealthy, Message: "service not initialised"}
	}
	ok, err := svc.QuickCheck(ctx)
	switch {
	case err != nil:
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: "quick check failed"}
	case !ok:
		return CheckResult{Status: StatusUnhealthy, Message: "critical anomaly detected"}
	default:
		return CheckResult{Status: StatusHealthy, Message: "no critical anomalies"}
	}
}

// FileChecker checks if a file exists and is readable
type FileChecker struct {
	name string
	path string
}

// NewFileChecker creates a checker for file existence
func NewFileChecker(name, path string) *FileChecker {
	return &FileChecker{name: name, path: path}
}

func (c *FileChecker) Name() string {
	return c.name
}

func (c *FileChecker) Check(_ context.Context) CheckResult {
	if c.path == "" {
		return CheckResult{Status: StatusHealthy, Message: "not configured (optional)"}
	}

	info, err := os.Stat(c.path)
	switch {
	case os.IsNotExist(err):
		return CheckResult{Status: StatusUnhealthy, Error: "file not found", Message: c.path}
	case err != nil:
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	case info.IsDir():
		return CheckResult{Status: StatusUnhealthy, Error: "expected file, got directory"}
	case info.Size() == 0:
		return CheckResult{Status: StatusDegraded, Message: "file is empty"}
	}
	return CheckResult{Status: StatusHealthy, Message: "file exists and readable"}
}
