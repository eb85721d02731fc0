// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package preflight

import "fmt"

// Data sources a check reads from. The values double as metric labels.
const (
	SourceMonitor   = "monitor"
	SourceAppStats  = "app_stats"
	SourceAppScenes = "app_scenes"
)

// SourceError reports a mandatory port call that failed. The check that hit
// it is aborted; nothing is retried.
type SourceError struct {
	Source string // one of the Source* constants
	Op     string // port method, e.g. "memory_info"
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Source, e.Op, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func sourceErr(source, op string, err error) error {
	return &SourceError{Source: source, Op: op, Err: err}
}
