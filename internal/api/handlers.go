// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ManuGH/preflight/internal/events"
	"github.com/ManuGH/preflight/internal/log"
	"github.com/ManuGH/preflight/internal/preflight"
)

// QuickResponse is the body of GET /api/v1/preflight/quick.
type QuickResponse struct {
	OK bool `json:"ok"`
}

func (s *Server) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := time.Duration(s.checkTimeout.Load()); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

func (s *Server) notReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusServiceUnavailable, APIError{
		Code:      CodeNotInitialised,
		Detail:    "pre-flight service not initialised",
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}

// handleCheck runs a full check and returns the report. A report that blocks
// streaming is still a successful check and answers 200.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	c := s.current()
	if c == nil {
		s.notReady(w, r)
		return
	}

	ctx, cancel := s.withDeadline(r.Context())
	defer cancel()

	report, err := c.Check(ctx)
	if err != nil {
		writeCheckError(w, r, err)
		return
	}
	s.publish(r.Context(), report)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleQuickCheck(w http.ResponseWriter, r *http.Request) {
	c := s.current()
	if c == nil {
		s.notReady(w, r)
		return
	}

	ctx, cancel := s.withDeadline(r.Context())
	defer cancel()

	ok, err := c.QuickCheck(ctx)
	if err != nil {
		writeCheckError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, QuickResponse{OK: ok})
}

// publish hands the report's events to the bus. Delivery is best effort and
// never fails the request.
func (s *Server) publish(ctx context.Context, report preflight.HealthReport) {
	if s.bus == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if s.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PublishTimeout)
		defer cancel()
	}
	if err := events.PublishAll(ctx, s.bus, events.FromReport(report)); err != nil {
		logger := log.WithContext(ctx, s.logger)
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "api.publish_failed").
			Msg("failed to publish check events")
	}
}
