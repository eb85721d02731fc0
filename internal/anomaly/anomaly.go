// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package anomaly defines the severity scale and the immutable anomaly value
// produced by diagnostic rules.
package anomaly

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Anomaly is a detected deviation from healthy operating conditions.
// Fields are only reachable through accessors; a value never changes after New.
type Anomaly struct {
	id          uuid.UUID
	kind        Kind
	severity    Severity
	detectedAt  time.Time
	details     string
	resource    string
	action      string
	autoFixable bool
}

// Option customises an anomaly at construction time.
type Option func(*Anomaly)

// WithResource names the offending resource (a source, a device, a disk).
func WithResource(name string) Option {
	return func(a *Anomaly) { a.resource = name }
}

// WithAction sets the recommended remedial action.
func WithAction(action string) Option {
	return func(a *Anomaly) { a.action = action }
}

// WithAutoFix marks whether a remedy could be applied without the operator.
// The flag is advisory; nothing in this module applies remedies.
func WithAutoFix(fixable bool) Option {
	return func(a *Anomaly) { a.autoFixable = fixable }
}

// WithDetectedAt overrides the creation timestamp.
func WithDetectedAt(t time.Time) Option {
	return func(a *Anomaly) { a.detectedAt = t }
}

// New creates an anomaly with a fresh identity.
func New(kind Kind, severity Severity, details string, opts ...Option) Anomaly {
	a := Anomaly{
		id:         uuid.New(),
		kind:       kind,
		severity:   severity,
		detectedAt: time.Now().UTC(),
		details:    details,
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func (a Anomaly) ID() uuid.UUID             { return a.id }
func (a Anomaly) Kind() Kind                { return a.kind }
func (a Anomaly) Severity() Severity        { return a.severity }
func (a Anomaly) DetectedAt() time.Time     { return a.detectedAt }
func (a Anomaly) Details() string           { return a.details }
func (a Anomaly) RecommendedAction() string { return a.action }
func (a Anomaly) AutoFixable() bool         { return a.autoFixable }

// Resource returns the offending resource name and whether one was recorded.
func (a Anomaly) Resource() (string, bool) {
	return a.resource, a.resource != ""
}

type anomalyJSON struct {
	ID                uuid.UUID `json:"id"`
	Kind              Kind      `json:"kind"`
	Severity          Severity  `json:"severity"`
	DetectedAt        time.Time `json:"detected_at"`
	Details           string    `json:"details"`
	Resource          string    `json:"resource,omitempty"`
	RecommendedAction string    `json:"recommended_action"`
	AutoFixable       bool      `json:"auto_fixable"`
}

func (a Anomaly) MarshalJSON() ([]byte, error) {
	return json.Marshal(anomalyJSON{
		ID:                a.id,
		Kind:              a.kind,
		Severity:          a.severity,
		DetectedAt:        a.detectedAt,
		Details:           a.details,
		Resource:          a.resource,
		RecommendedAction: a.action,
		AutoFixable:       a.autoFixable,
	})
}

func (a *Anomaly) UnmarshalJSON(data []byte) error {
	var raw anomalyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = Anomaly{
		id:          raw.ID,
		kind:        raw.Kind,
		severity:    raw.Severity,
		detectedAt:  raw.DetectedAt,
		details:     raw.Details,
		resource:    raw.Resource,
		action:      raw.RecommendedAction,
		autoFixable: raw.AutoFixable,
	}
	return nil
}

// Filter returns the anomalies whose severity is at least min.
func Filter(list []Anomaly, min Severity) []Anomaly {
	out := make([]Anomaly, 0, len(list))
	for _, a := range list {
		if a.severity.AtLeast(min) {
			out = append(out, a)
		}
	}
	return out
}

// CountBySeverity tallies anomalies per severity.
func CountBySeverity(list []Anomaly) map[Severity]int {
	counts := make(map[Severity]int, 3)
	for _, a := range list {
		counts[a.severity]++
	}
	return counts
}
