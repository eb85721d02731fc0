// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ports declares the external telemetry sources consumed by the
// pre-flight checks. Implementations must tolerate concurrent read-only calls
// issued by a single check cycle.
package ports

import (
	"context"
	"errors"
)

// ErrSensorUnavailable is wrapped by Monitor implementations when a sensor is
// not supported on the current platform. Callers treat it as an absent reading
// rather than a failure.
var ErrSensorUnavailable = errors.New("sensor unavailable")

// Monitor reports host hardware telemetry.
type Monitor interface {
	CPUTemperature(ctx context.Context) (float64, error)
	GPUTemperature(ctx context.Context) (float64, error)
	CPUUsage(ctx context.Context) (float64, error)
	MemoryInfo(ctx context.Context) (MemoryInfo, error)
	DiskSpace(ctx context.Context) (DiskInfo, error)
}

// Application reports statistics and scene layout of the production software.
type Application interface {
	Stats(ctx context.Context) (AppStats, error)
	Scenes(ctx context.Context) ([]Scene, error)
}

// MemoryInfo describes system memory.
type MemoryInfo struct {
	TotalGB     float64 `json:"total_gb" yaml:"total_gb"`
	AvailableGB float64 `json:"available_gb" yaml:"available_gb"`
	UsedPercent float64 `json:"used_percent" yaml:"used_percent"`
}

// DiskInfo describes the recording volume.
type DiskInfo struct {
	TotalGB     float64 `json:"total_gb" yaml:"total_gb"`
	FreeGB      float64 `json:"free_gb" yaml:"free_gb"`
	UsedPercent float64 `json:"used_percent" yaml:"used_percent"`
}

// LowSpace reports whether free space is at or below thresholdGB.
func (d DiskInfo) LowSpace(thresholdGB float64) bool {
	return d.FreeGB <= thresholdGB
}

// AppStats are the counters reported by the production application.
type AppStats struct {
	CPUUsage            float64 `json:"cpu_usage" yaml:"cpu_usage"`
	MemoryUsage         float64 `json:"memory_usage" yaml:"memory_usage"`
	ActiveFPS           float64 `json:"active_fps" yaml:"active_fps"`
	RenderTotalFrames   uint64  `json:"render_total_frames" yaml:"render_total_frames"`
	RenderSkippedFrames uint64  `json:"render_skipped_frames" yaml:"render_skipped_frames"`
	OutputTotalFrames   uint64  `json:"output_total_frames" yaml:"output_total_frames"`
	OutputSkippedFrames uint64  `json:"output_skipped_frames" yaml:"output_skipped_frames"`
}

// DroppedFramesPercent is output_skipped / output_total * 100, or 0 when no
// frames have been output yet.
func (s AppStats) DroppedFramesPercent() float64 {
	if s.OutputTotalFrames == 0 {
		return 0
	}
	return float64(s.OutputSkippedFrames) / float64(s.OutputTotalFrames) * 100
}

// RenderLagPercent is the same ratio for the render thread.
func (s AppStats) RenderLagPercent() float64 {
	if s.RenderTotalFrames == 0 {
		return 0
	}
	return float64(s.RenderSkippedFrames) / float64(s.RenderTotalFrames) * 100
}

// Scene is a named composition of capture sources.
type Scene struct {
	Name    string   `json:"name" yaml:"name"`
	Sources []Source `json:"sources" yaml:"sources"`
}

// Source is a capture input within a scene.
type Source struct {
	Name      string `json:"name" yaml:"name"`
	Kind      string `json:"kind,omitempty" yaml:"kind"`
	Available bool   `json:"available" yaml:"available"`
}
