// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package events defines the domain events emitted around health checks and
// the buses that carry them. The check pipeline itself never publishes;
// callers derive events from a finished report and hand them to a Bus.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/preflight/internal/anomaly"
	"github.com/ManuGH/preflight/internal/preflight"
)

// Topics.
const (
	TopicHealthCheckCompleted = "health_check.completed"
	TopicAnomalyDetected      = "anomaly.detected"
	TopicConfigurationChanged = "configuration.changed"
)

// Event is a domain event routed by topic.
type Event interface {
	Topic() string
	ID() uuid.UUID
}

type HealthCheckCompleted struct {
	EventID      uuid.UUID `json:"event_id"`
	Timestamp    time.Time `json:"timestamp"`
	IsHealthy    bool      `json:"is_healthy"`
	CanStream    bool      `json:"can_stream"`
	AnomalyCount int       `json:"anomalies_count"`
}

func (HealthCheckCompleted) Topic() string   { return TopicHealthCheckCompleted }
func (e HealthCheckCompleted) ID() uuid.UUID { return e.EventID }

type AnomalyDetected struct {
	EventID   uuid.UUID       `json:"event_id"`
	Timestamp time.Time       `json:"timestamp"`
	Anomaly   anomaly.Anomaly `json:"anomaly"`
}

func (AnomalyDetected) Topic() string   { return TopicAnomalyDetected }
func (e AnomalyDetected) ID() uuid.UUID { return e.EventID }

// ConfigurationChanged is emitted after a successful configuration reload.
type ConfigurationChanged struct {
	EventID   uuid.UUID `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	Changes   []string  `json:"changes"`
}

func (ConfigurationChanged) Topic() string   { return TopicConfigurationChanged }
func (e ConfigurationChanged) ID() uuid.UUID { return e.EventID }

// NewConfigurationChanged stamps a change notification.
func NewConfigurationChanged(changes []string, at time.Time) ConfigurationChanged {
	if changes == nil {
		changes = []string{}
	}
	return ConfigurationChanged{EventID: uuid.New(), Timestamp: at.UTC(), Changes: changes}
}

// FromReport derives the event batch for a finished check: one
// AnomalyDetected per anomaly followed by a single HealthCheckCompleted.
func FromReport(r preflight.HealthReport) []Event {
	out := make([]Event, 0, len(r.Anomalies)+1)
	for _, a := range r.Anomalies {
		out = append(out, AnomalyDetected{EventID: uuid.New(), Timestamp: a.DetectedAt(), Anomaly: a})
	}
	out = append(out, HealthCheckCompleted{
		EventID:      uuid.New(),
		Timestamp:    r.Timestamp,
		IsHealthy:    r.IsHealthy,
		CanStream:    r.CanStream,
		AnomalyCount: len(r.Anomalies),
	})
	return out
}

// envelope is the wire form: the topic tags the payload.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode renders e in its tagged wire form.
func Encode(e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Topic(), err)
	}
	return json.Marshal(envelope{Type: e.Topic(), Payload: payload})
}

// Decode parses the tagged wire form produced by Encode.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	var (
		ev  Event
		err error
	)
	switch env.Type {
	case TopicHealthCheckCompleted:
		var e HealthCheckCompleted
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	case TopicAnomalyDetected:
		var e AnomalyDetected
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	case TopicConfigurationChanged:
		var e ConfigurationChanged
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return ev, nil
}
