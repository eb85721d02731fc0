// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package detector runs a set of diagnostic rules over one telemetry snapshot.
package detector

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/preflight/internal/anomaly"
	xglog "github.com/ManuGH/preflight/internal/log"
	"github.com/ManuGH/preflight/internal/metrics"
	"github.com/ManuGH/preflight/internal/rules"
)

// Detector owns an ordered rule collection. The collection is fixed at
// construction; Scan may be called from any number of goroutines.
type Detector struct {
	rules  []rules.Rule
	logger zerolog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithRules appends rules after any already registered.
func WithRules(rs ...rules.Rule) Option {
	return func(d *Detector) {
		for _, r := range rs {
			if r != nil {
				d.rules = append(d.rules, r)
			}
		}
	}
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// New returns a detector with no rules besides those added by opts.
func New(opts ...Option) *Detector {
	d := &Detector{logger: xglog.WithComponent("detector")}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewDefault returns a detector with the seven standard rules configured from
// t, followed by any rules added by opts.
func NewDefault(t rules.Thresholds, opts ...Option) *Detector {
	return New(append([]Option{WithRules(rules.StandardRules(t)...)}, opts...)...)
}

// Rules returns the registered rule names in registration order.
func (d *Detector) Rules() []string {
	names := make([]string, len(d.rules))
	for i, r := range d.rules {
		names[i] = r.Name()
	}
	return names
}

// Scan evaluates every rule against s concurrently and returns the anomalies
// produced. The order of the result is not significant.
func (d *Detector) Scan(s rules.Snapshot) []anomaly.Anomaly {
	d.logger.Debug().
		Str(xglog.FieldEvent, "detector.scan_started").
		Int(xglog.FieldRuleCount, len(d.rules)).
		Msg("scanning for anomalies")

	results := make([]*anomaly.Anomaly, len(d.rules))

	var g errgroup.Group
	for i, rule := range d.rules {
		g.Go(func() error {
			if a, ok := d.evaluate(rule, s); ok {
				results[i] = &a
			}
			return nil
		})
	}
	_ = g.Wait() // evaluations never return errors

	out := make([]anomaly.Anomaly, 0, len(results))
	for i, a := range results {
		if a == nil {
			continue
		}
		d.logger.Warn().
			Str(xglog.FieldEvent, "detector.rule_fired").
			Str(xglog.FieldRule, d.rules[i].Name()).
			Str(xglog.FieldKind, a.Kind().String()).
			Str(xglog.FieldSeverity, a.Severity().String()).
			Str(xglog.FieldDetails, a.Details()).
			Msg("rule detected anomaly")
		metrics.RecordAnomaly(a.Kind().String(), a.Severity().String())
		out = append(out, *a)
	}

	d.logger.Debug().
		Str(xglog.FieldEvent, "detector.scan_completed").
		Int(xglog.FieldAnomalyCount, len(out)).
		Msg("scan completed")
	return out
}

// ScanFiltered is Scan restricted to anomalies at or above min.
func (d *Detector) ScanFiltered(s rules.Snapshot, min anomaly.Severity) []anomaly.Anomaly {
	return anomaly.Filter(d.Scan(s), min)
}

// evaluate runs one rule. A panicking rule is logged and treated as abstaining.
func (d *Detector) evaluate(rule rules.Rule, s rules.Snapshot) (a anomaly.Anomaly, fired bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Str(xglog.FieldEvent, "detector.rule_panic").
				Str(xglog.FieldRule, rule.Name()).
				Str("panic", fmt.Sprint(r)).
				Msg("rule panicked; treating as no anomaly")
			metrics.RecordRulePanic(rule.Name())
			a, fired = anomaly.Anomaly{}, false
		}
	}()
	return rule.Evaluate(s)
}
