// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by check spans.
const (
	CheckModeKey        = "preflight.mode"
	CheckIDKey          = "preflight.check_id"
	CheckHealthyKey     = "preflight.healthy"
	CheckCanStreamKey   = "preflight.can_stream"
	CheckCanRecordKey   = "preflight.can_record"
	AnomalyCountKey     = "preflight.anomalies"
	CriticalCountKey    = "preflight.critical"
	WarningCountKey     = "preflight.warnings"
	UnavailableCountKey = "preflight.unavailable_sources"

	SourceKey = "preflight.source"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// CheckAttributes describes the start of a check.
func CheckAttributes(mode, checkID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(CheckModeKey, mode)}
	if checkID != "" {
		attrs = append(attrs, attribute.String(CheckIDKey, checkID))
	}
	return attrs
}

// ResultAttributes describes the outcome of a full check.
func ResultAttributes(healthy, canStream, canRecord bool, anomalies, critical, warnings int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(CheckHealthyKey, healthy),
		attribute.Bool(CheckCanStreamKey, canStream),
		attribute.Bool(CheckCanRecordKey, canRecord),
		attribute.Int(AnomalyCountKey, anomalies),
		attribute.Int(CriticalCountKey, critical),
		attribute.Int(WarningCountKey, warnings),
	}
}

// ErrorAttributes flags a span as failed. The error text itself goes through
// span.RecordError.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
