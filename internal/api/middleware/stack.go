// SPDX-License-Identifier: MIT

// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/preflight/internal/log"
)

// StackConfig configures the HTTP ingress middleware stack.
type StackConfig struct {
	// Security headers
	EnableSecurityHeaders bool
	CSP                   string

	// Observability
	EnableMetrics  bool
	TracingService string // empty disables tracing
	TracerProvider trace.TracerProvider
	EnableLogging  bool
}

// NewRouter constructs a chi router with the middleware stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the middleware stack to r. Rate limiting is not part of
// the stack; it is mounted on the check routes only so probes stay unthrottled.
func ApplyStack(r chi.Router, cfg StackConfig) {
	// 1. Recoverer (outermost safety net)
	r.Use(chimw.Recoverer)
	// 2. Security headers
	if cfg.EnableSecurityHeaders {
		r.Use(SecurityHeaders(cfg.CSP))
	}
	// 3. Metrics (track all requests)
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	// 4. Tracing
	if cfg.TracingService != "" {
		r.Use(OTelHTTP(cfg.TracingService, cfg.TracerProvider))
	}
	// 5. Logging (request ID plus full latency)
	if cfg.EnableLogging {
		r.Use(log.Middleware())
	}
}
