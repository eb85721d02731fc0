// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves pre-flight checks over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/preflight/internal/api/middleware"
	"github.com/ManuGH/preflight/internal/events"
	"github.com/ManuGH/preflight/internal/health"
	"github.com/ManuGH/preflight/internal/log"
	"github.com/ManuGH/preflight/internal/preflight"
)

// Checker is the part of preflight.Service the API drives.
type Checker interface {
	Check(ctx context.Context) (preflight.HealthReport, error)
	QuickCheck(ctx context.Context) (bool, error)
}

type checkerRef struct{ c Checker }

// Config controls the HTTP surface.
type Config struct {
	Listen         string
	Version        string
	RateLimitRPM   int           // per IP on the check routes; zero disables
	CheckTimeout   time.Duration // deadline of a single check; zero means none
	PublishTimeout time.Duration // bound on publishing a report's events
	TracingService string        // empty disables request spans
}

// Server owns the router and the currently active Checker. The checker and
// the check timeout can be swapped while requests are in flight.
type Server struct {
	cfg    Config
	logger zerolog.Logger
	tp     trace.TracerProvider
	bus    events.Bus

	checker      atomic.Pointer[checkerRef]
	checkTimeout atomic.Int64

	health  *health.Manager
	handler http.Handler

	mu  sync.Mutex
	srv *http.Server
}

type Option func(*Server)

// WithEventBus publishes the events of every successful full check.
func WithEventBus(b events.Bus) Option {
	return func(s *Server) { s.bus = b }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) { s.tp = tp }
}

// WithHealthChecker adds a readiness check next to the pre-flight gate.
func WithHealthChecker(c health.Checker) Option {
	return func(s *Server) { s.health.RegisterChecker(c) }
}

// New builds a server around c. c may be nil until SetChecker is called;
// checks answer 503 meanwhile.
func New(cfg Config, c Checker, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		logger: log.WithComponent("api"),
		health: health.NewManager(cfg.Version),
	}
	// The probe deadline comes from the server so SetCheckTimeout applies to
	// /readyz as well as the check routes.
	s.health.RegisterChecker(health.NewPreflightChecker(func() health.QuickChecker {
		if s.current() == nil {
			return nil
		}
		return readinessProbe{s: s}
	}, 0))
	for _, opt := range opts {
		opt(s)
	}
	s.SetChecker(c)
	s.SetCheckTimeout(cfg.CheckTimeout)
	s.handler = s.routes()
	return s
}

// SetChecker atomically replaces the active checker. Checks already running
// finish on the old one.
func (s *Server) SetChecker(c Checker) {
	if c == nil {
		s.checker.Store(nil)
		return
	}
	s.checker.Store(&checkerRef{c: c})
}

func (s *Server) SetCheckTimeout(d time.Duration) {
	s.checkTimeout.Store(int64(d))
}

// readinessProbe runs the quick check of the current checker under the
// current check timeout.
type readinessProbe struct{ s *Server }

func (p readinessProbe) QuickCheck(ctx context.Context) (bool, error) {
	c := p.s.current()
	if c == nil {
		return false, errors.New("pre-flight service not initialised")
	}
	ctx, cancel := p.s.withDeadline(ctx)
	defer cancel()
	return c.QuickCheck(ctx)
}

func (s *Server) current() Checker {
	if ref := s.checker.Load(); ref != nil {
		return ref.c
	}
	return nil
}

// Handler returns the root handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		TracerProvider:        s.tp,
		EnableLogging:         true,
	})

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/preflight", func(r chi.Router) {
		if s.cfg.RateLimitRPM > 0 {
			r.Use(middleware.CheckRateLimit(s.cfg.RateLimitRPM))
		}
		r.Get("/", s.handleCheck)
		r.Get("/quick", s.handleQuickCheck)
	})
	return r
}

// Start listens on cfg.Listen and serves until Shutdown. It returns the bound
// address, which differs from cfg.Listen when the port is 0.
func (s *Server) Start() (net.Addr, <-chan error, error) {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return nil, nil, fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.Info().
		Str(log.FieldEvent, "api.listening").
		Str("addr", ln.Addr().String()).
		Msg("HTTP API listening")
	return ln.Addr(), errCh, nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.logger.Info().Str(log.FieldEvent, "api.stopped").Msg("HTTP API stopped")
	return nil
}
