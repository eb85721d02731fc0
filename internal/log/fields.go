// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldCheckID   = "check_id"
	FieldRequestID = "request_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldMode      = "mode"

	// Diagnostic fields
	FieldRule     = "rule"
	FieldKind     = "kind"
	FieldSeverity = "severity"
	FieldDetails  = "details"
	FieldSource   = "source"

	// Report fields
	FieldHealthy        = "healthy"
	FieldCanStream      = "can_stream"
	FieldCanRecord      = "can_record"
	FieldCriticalCount  = "critical_count"
	FieldWarningCount   = "warning_count"
	FieldAnomalyCount   = "anomaly_count"
	FieldDurationMS     = "duration_ms"
	FieldRuleCount      = "rule_count"
	FieldUnavailableSrc = "unavailable_sources"

	// Path fields
	FieldPath = "path"
)
