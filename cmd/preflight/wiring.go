// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/preflight/internal/config"
	"github.com/ManuGH/preflight/internal/detector"
	"github.com/ManuGH/preflight/internal/events"
	"github.com/ManuGH/preflight/internal/fixture"
	"github.com/ManuGH/preflight/internal/hostmon"
	xglog "github.com/ManuGH/preflight/internal/log"
	"github.com/ManuGH/preflight/internal/ports"
	"github.com/ManuGH/preflight/internal/preflight"
)

// errNoApplication is returned for application telemetry when no fixture is
// configured. Live application adapters are not built in.
var errNoApplication = errors.New("no application telemetry source configured (use --fixture or the fixture setting)")

type noApplication struct{}

func (noApplication) Stats(context.Context) (ports.AppStats, error) {
	return ports.AppStats{}, errNoApplication
}

func (noApplication) Scenes(context.Context) ([]ports.Scene, error) {
	return nil, errNoApplication
}

// buildPorts selects the telemetry sources. A fixture always serves the
// application; it serves the host too when it carries a monitor section.
func buildPorts(cfg config.AppConfig) (ports.Monitor, ports.Application, error) {
	var app ports.Application = noApplication{}
	if cfg.Fixture != "" {
		fx, err := fixture.Load(cfg.Fixture)
		if err != nil {
			return nil, nil, err
		}
		if fx.HasMonitor() {
			return fx, fx, nil
		}
		app = fx
	}

	m, err := hostmon.New(cfg.Host)
	if err != nil {
		return nil, nil, fmt.Errorf("host monitor: %w", err)
	}
	return m, app, nil
}

func buildService(cfg config.AppConfig) (*preflight.Service, error) {
	monitor, app, err := buildPorts(cfg)
	if err != nil {
		return nil, err
	}
	det := detector.NewDefault(cfg.Thresholds, detector.WithRules(cfg.Extensions.Rules()...))
	return preflight.New(monitor, app, det,
		preflight.WithMinRecordMemoryGB(cfg.MinRecordMemoryGB),
	), nil
}

// newBus connects to NATS when configured and falls back to the in-process
// bus otherwise.
func newBus(cfg config.EventsConfig) (events.Bus, error) {
	if cfg.NATSURL == "" {
		return events.NewMemoryBus(), nil
	}
	bus, err := events.DialNATS(cfg.NATSURL, cfg.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	logger := xglog.WithComponent("events")
	logger.Info().
		Str(xglog.FieldEvent, "events.nats_connected").
		Msg("publishing events to NATS")
	return bus, nil
}
