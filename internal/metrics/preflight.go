// SPDX-License-Identifier: MIT

// Package metrics exposes the Prometheus collectors of the pre-flight monitor.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "preflight_checks_total",
		Help: "Health checks run, by mode and result",
	}, []string{"mode", "result"}) // mode=full|quick result=healthy|degraded|blocked|error

	checkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "preflight_check_duration_seconds",
		Help:    "Wall-clock duration of a health check including port calls",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"mode"})

	anomaliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "preflight_anomalies_total",
		Help: "Anomalies produced by diagnostic rules, by kind and severity",
	}, []string{"kind", "severity"})

	portFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "preflight_port_failures_total",
		Help: "Mandatory telemetry source failures that aborted a check",
	}, []string{"source"}) // source=monitor|app_stats|app_scenes

	rulePanicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "preflight_rule_panics_total",
		Help: "Rules that panicked during evaluation and were treated as abstaining",
	}, []string{"rule"})

	lastCheckHealthy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "preflight_last_check_healthy",
		Help: "Whether the most recent full check was healthy (1) or not (0)",
	})

	configReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "preflight_config_reloads_total",
		Help: "Configuration reload attempts by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	eventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "preflight_events_published_total",
		Help: "Domain events handed to the event bus, by topic",
	}, []string{"topic"})

	eventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "preflight_events_dropped_total",
		Help: "Domain events that could not be delivered, by topic and reason",
	}, []string{"topic", "reason"}) // reason=timeout|canceled|context_done|transport|slow_consumer
)

// RecordCheck records one completed (or failed) check.
func RecordCheck(mode, result string, seconds float64) {
	m := normalizeMode(mode)
	checksTotal.WithLabelValues(m, normalizeResult(result)).Inc()
	checkDuration.WithLabelValues(m).Observe(seconds)
}

// RecordAnomaly counts one anomaly.
func RecordAnomaly(kind, severity string) {
	anomaliesTotal.WithLabelValues(kind, strings.ToLower(severity)).Inc()
}

// RecordPortFailure counts a mandatory source failure.
func RecordPortFailure(source string) {
	portFailuresTotal.WithLabelValues(normalizeSource(source)).Inc()
}

// RecordRulePanic counts a recovered rule panic.
func RecordRulePanic(rule string) {
	rulePanicsTotal.WithLabelValues(rule).Inc()
}

// SetLastCheckHealthy publishes the outcome of the latest full check.
func SetLastCheckHealthy(healthy bool) {
	if healthy {
		lastCheckHealthy.Set(1)
		return
	}
	lastCheckHealthy.Set(0)
}

// RecordConfigReload counts a configuration reload attempt.
func RecordConfigReload(success bool) {
	if success {
		configReloadsTotal.WithLabelValues("success").Inc()
		return
	}
	configReloadsTotal.WithLabelValues("failure").Inc()
}

// RecordEventPublished counts one delivered event.
func RecordEventPublished(topic string) {
	eventsPublishedTotal.WithLabelValues(topic).Inc()
}

// RecordEventDropped counts an event that was not delivered.
func RecordEventDropped(topic, reason string) {
	eventsDroppedTotal.WithLabelValues(topic, reason).Inc()
}

func normalizeMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "full", "quick":
		return strings.ToLower(strings.TrimSpace(mode))
	default:
		return "unknown"
	}
}

func normalizeResult(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "healthy", "degraded", "blocked", "error":
		return strings.ToLower(strings.TrimSpace(result))
	default:
		return "unknown"
	}
}

func normalizeSource(source string) string {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "monitor", "app_stats", "app_scenes":
		return strings.ToLower(strings.TrimSpace(source))
	default:
		return "unknown"
	}
}
