// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rules

import (
	"sort"
)

// Reading is an optional sensor value. The zero value is an absent reading,
// which is distinct from a present reading of 0.
type Reading struct {
	value   float64
	present bool
}

// Present returns a reading holding v.
func Present(v float64) Reading {
	return Reading{value: v, present: true}
}

// Absent returns an unset reading.
func Absent() Reading {
	return Reading{}
}

// Value returns the reading and whether it is set.
func (r Reading) Value() (float64, bool) {
	return r.value, r.present
}

// IsPresent reports whether the reading is set.
func (r Reading) IsPresent() bool {
	return r.present
}

// Readings is the mutable input used to build a Snapshot.
type Readings struct {
	CPUTempC                Reading
	GPUTempC                Reading
	CPUUsagePercent         float64
	MemoryUsedPercent       float64
	DiskFreeGB              float64
	AppDroppedFramesPercent float64
	AppCPUUsagePercent      float64
	UnavailableSources      []string
	AudioPeakDBFS           Reading
	NetworkBitrateKbps      Reading
}

// Snapshot is a point-in-time, read-only view of all telemetry used for one
// evaluation cycle. It is passed by value and exposes no mutable state, so any
// number of rules may read it concurrently.
type Snapshot struct {
	r       Readings
	sources []string
}

// NewSnapshot freezes r. The unavailable source list is copied and sorted.
func NewSnapshot(r Readings) Snapshot {
	sources := make([]string, len(r.UnavailableSources))
	copy(sources, r.UnavailableSources)
	sort.Strings(sources)
	r.UnavailableSources = nil
	return Snapshot{r: r, sources: sources}
}

func (s Snapshot) CPUTemp() Reading                 { return s.r.CPUTempC }
func (s Snapshot) GPUTemp() Reading                 { return s.r.GPUTempC }
func (s Snapshot) CPUUsagePercent() float64         { return s.r.CPUUsagePercent }
func (s Snapshot) MemoryUsedPercent() float64       { return s.r.MemoryUsedPercent }
func (s Snapshot) DiskFreeGB() float64              { return s.r.DiskFreeGB }
func (s Snapshot) AppDroppedFramesPercent() float64 { return s.r.AppDroppedFramesPercent }
func (s Snapshot) AppCPUUsagePercent() float64      { return s.r.AppCPUUsagePercent }
func (s Snapshot) AudioPeakDBFS() Reading           { return s.r.AudioPeakDBFS }
func (s Snapshot) NetworkBitrateKbps() Reading      { return s.r.NetworkBitrateKbps }

// UnavailableSources returns a copy of the sorted unavailable source list.
func (s Snapshot) UnavailableSources() []string {
	out := make([]string, len(s.sources))
	copy(out, s.sources)
	return out
}

// UnavailableSourceCount avoids the copy when only the count matters.
func (s Snapshot) UnavailableSourceCount() int {
	return len(s.sources)
}
