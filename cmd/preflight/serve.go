// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ManuGH/preflight/internal/api"
	"github.com/ManuGH/preflight/internal/config"
	"github.com/ManuGH/preflight/internal/events"
	"github.com/ManuGH/preflight/internal/health"
	xglog "github.com/ManuGH/preflight/internal/log"
	"github.com/ManuGH/preflight/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve checks over HTTP and reload on config changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}
}

func apiConfig(cfg config.AppConfig) api.Config {
	tracing := ""
	if cfg.Telemetry.Enabled {
		tracing = cfg.Telemetry.ServiceName
	}
	return api.Config{
		Listen:         cfg.API.Listen,
		Version:        version,
		RateLimitRPM:   cfg.API.RateLimitRPM,
		CheckTimeout:   cfg.API.CheckTimeout,
		PublishTimeout: cfg.Events.PublishTimeout,
		TracingService: tracing,
	}
}

func serve(ctx context.Context, opts *rootOptions) error {
	cfg := opts.cfg
	logger := xglog.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "telemetry.shutdown_failed").Msg("failed to flush spans")
		}
	}()

	bus, err := newBus(cfg.Events)
	if err != nil {
		return err
	}
	defer func() { _ = bus.Close() }()

	svc, err := buildService(cfg)
	if err != nil {
		return err
	}

	var srvOpts []api.Option
	srvOpts = append(srvOpts, api.WithEventBus(bus))
	if cfg.Fixture != "" {
		srvOpts = append(srvOpts, api.WithHealthChecker(health.NewFileChecker("fixture", cfg.Fixture)))
	}
	srv := api.New(apiConfig(cfg), svc, srvOpts...)

	holder := config.NewHolder(cfg, opts.loader)
	updates := make(chan config.Update, 4)
	holder.RegisterListener(updates)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer func() {
		stopWatch()
		holder.Wait()
	}()
	if err := holder.StartWatcher(watchCtx); err != nil {
		return err
	}

	_, errCh, err := srv.Start()
	if err != nil {
		return err
	}

	logger.Info().
		Str(xglog.FieldEvent, "daemon.started").
		Str("version", version).
		Str("listen", cfg.API.Listen).
		Strs("rules", ruleNames(cfg)).
		Msg("preflight daemon started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Str(xglog.FieldEvent, "daemon.stopping").Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err, ok := <-errCh:
			if ok && err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case u := <-updates:
			applyUpdate(ctx, logger, srv, bus, u)
		}
	}
}

// applyUpdate swaps in a service built from the reloaded configuration. The
// listen address and rate limit are bound at startup and need a restart.
func applyUpdate(ctx context.Context, logger zerolog.Logger, srv *api.Server, bus events.Bus, u config.Update) {
	svc, err := buildService(u.New)
	if err != nil {
		logger.Error().Err(err).
			Str(xglog.FieldEvent, "daemon.reload_rejected").
			Msg("keeping previous service after reload")
		return
	}
	srv.SetChecker(svc)
	srv.SetCheckTimeout(u.New.API.CheckTimeout)

	if u.Old.Log.Level != u.New.Log.Level {
		xglog.Configure(xglog.Config{
			Level:   u.New.Log.Level,
			Output:  os.Stderr,
			Service: u.New.Log.Service,
			Version: version,
		})
	}
	if u.Old.API.Listen != u.New.API.Listen || u.Old.API.RateLimitRPM != u.New.API.RateLimitRPM {
		logger.Warn().
			Str(xglog.FieldEvent, "daemon.restart_required").
			Msg("api listen address and rate limit changes take effect after restart")
	}

	pubCtx := ctx
	if d := u.New.Events.PublishTimeout; d > 0 {
		var cancel context.CancelFunc
		pubCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	if err := bus.Publish(pubCtx, events.NewConfigurationChanged(u.Changes, time.Now())); err != nil {
		logger.Warn().Err(err).Str(xglog.FieldEvent, "daemon.publish_failed").Msg("failed to publish configuration change")
	}

	logger.Info().
		Str(xglog.FieldEvent, "daemon.reloaded").
		Int("changes", len(u.Changes)).
		Msg("service rebuilt from new configuration")
}

func ruleNames(cfg config.AppConfig) []string {
	rs := cfg.Rules()
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name()
	}
	return out
}
