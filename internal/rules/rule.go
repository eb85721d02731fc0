// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package rules contains the telemetry snapshot and the diagnostic rules that
// evaluate it.
//
// A rule is a pure function of a Snapshot: no mutable state, no I/O, same
// output for the same input. That property is what lets the detector run
// rules in any order and in parallel. A rule that needs external data must
// consume a field pre-fetched into the snapshot.
package rules

import "github.com/ManuGH/preflight/internal/anomaly"

// Rule maps a snapshot to zero or one anomaly. A rule that finds several
// instances of its condition folds them into a single anomaly.
type Rule interface {
	Name() string
	Evaluate(s Snapshot) (anomaly.Anomaly, bool)
}

// RuleFunc adapts a named pure function to the Rule interface.
type RuleFunc struct {
	RuleName string
	Fn       func(Snapshot) (anomaly.Anomaly, bool)
}

func (f RuleFunc) Name() string {
	return f.RuleName
}

func (f RuleFunc) Evaluate(s Snapshot) (anomaly.Anomaly, bool) {
	if f.Fn == nil {
		return anomaly.Anomaly{}, false
	}
	return f.Fn(s)
}
