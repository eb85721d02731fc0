// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rules

import (
	"fmt"
	"strings"

	"github.com/ManuGH/preflight/internal/anomaly"
)

// MissingSourceRule fires once, Critical, when any capture source is unavailable.
type MissingSourceRule struct{}

func (MissingSourceRule) Name() string { return "MissingSource" }

func (MissingSourceRule) Evaluate(s Snapshot) (anomaly.Anomaly, bool) {
	if s.UnavailableSourceCount() == 0 {
		return anomaly.Anomaly{}, false
	}
	sources := s.UnavailableSources()
	return anomaly.New(
		anomaly.KindMissingSource,
		anomaly.Critical,
		fmt.Sprintf("Missing %d source(s): %s", len(sources), strings.Join(sources, ", ")),
		anomaly.WithResource(strings.Join(sources, ", ")),
		anomaly.WithAction("Connect or remove missing sources before streaming"),
		anomaly.WithAutoFix(false),
	), true
}

// temperatureRule holds the shared two-level threshold logic. The critical
// level is checked first, so a reading above both only yields Critical.
type temperatureRule struct {
	kind           anomaly.Kind
	label          string
	warningC       float64
	criticalC      float64
	criticalAction string
	warningAction  string
}

func (t temperatureRule) evaluate(r Reading) (anomaly.Anomaly, bool) {
	temp, ok := r.Value()
	if !ok {
		return anomaly.Anomaly{}, false
	}
	switch {
	case temp >= t.criticalC:
		return anomaly.New(t.kind, anomaly.Critical,
			fmt.Sprintf("%s temperature is %.1f°C (critical)", t.label, temp),
			anomaly.WithAction(t.criticalAction),
			anomaly.WithAutoFix(false),
		), true
	case temp >= t.warningC:
		return anomaly.New(t.kind, anomaly.Warning,
			fmt.Sprintf("%s temperature is %.1f°C (high)", t.label, temp),
			anomaly.WithAction(t.warningAction),
			anomaly.WithAutoFix(true),
		), true
	default:
		return anomaly.Anomaly{}, false
	}
}

// CPUTemperatureRule abstains when the CPU temperature could not be read.
type CPUTemperatureRule struct {
	WarningC  float64
	CriticalC float64
}

func (CPUTemperatureRule) Name() string { return "HighCPUTemp" }

func (r CPUTemperatureRule) Evaluate(s Snapshot) (anomaly.Anomaly, bool) {
	return temperatureRule{
		kind:           anomaly.KindHighCPUTemp,
		label:          "CPU",
		warningC:       r.WarningC,
		criticalC:      r.CriticalC,
		criticalAction: "Stop streaming immediately and check cooling",
		warningAction:  "Consider reducing encoder preset or enabling hardware encoding",
	}.evaluate(s.CPUTemp())
}

// GPUTemperatureRule abstains when the GPU temperature could not be read.
type GPUTemperatureRule struct {
	WarningC  float64
	CriticalC float64
}

func (GPUTemperatureRule) Name() string { return "HighGPUTemp" }

func (r GPUTemperatureRule) Evaluate(s Snapshot) (anomaly.Anomaly, bool) {
	return temperatureRule{
		kind:           anomaly.KindHighGPUTemp,
		label:          "GPU",
		warningC:       r.WarningC,
		criticalC:      r.CriticalC,
		criticalAction: "Stop streaming immediately and check GPU cooling",
		warningAction:  "Consider reducing resolution or frame rate",
	}.evaluate(s.GPUTemp())
}

type DroppedFramesRule struct {
	ThresholdPercent float64
}

func (DroppedFramesRule) Name() string { return "DroppedFrames" }

func (r DroppedFramesRule) Evaluate(s Snapshot) (anomaly.Anomaly, bool) {
	pct := s.AppDroppedFramesPercent()
	if pct < r.ThresholdPercent {
		return anomaly.Anomaly{}, false
	}
	return anomaly.New(anomaly.KindDroppedFrames, anomaly.Warning,
		fmt.Sprintf("Dropping %.1f%% of frames", pct),
		anomaly.WithAction("Reduce encoder preset, resolution, or frame rate"),
		anomaly.WithAutoFix(true),
	), true
}

type LowMemoryRule struct {
	ThresholdPercent float64
}

func (LowMemoryRule) Name() string { return "LowMemory" }

func (r LowMemoryRule) Evaluate(s Snapshot) (anomaly.Anomaly, bool) {
	used := s.MemoryUsedPercent()
	if used < r.ThresholdPercent {
		return anomaly.Anomaly{}, false
	}
	return anomaly.New(anomaly.KindMemoryPressure, anomaly.Warning,
		fmt.Sprintf("Memory usage at %.1f%%", used),
		anomaly.WithAction("Close unnecessary applications or restart the production software"),
		anomaly.WithAutoFix(false),
	), true
}

type LowDiskSpaceRule struct {
	ThresholdGB float64
}

func (LowDiskSpaceRule) Name() string { return "LowDiskSpace" }

func (r LowDiskSpaceRule) Evaluate(s Snapshot) (anomaly.Anomaly, bool) {
	free := s.DiskFreeGB()
	if free > r.ThresholdGB {
		return anomaly.Anomaly{}, false
	}
	return anomaly.New(anomaly.KindDiskSpaceLow, anomaly.Critical,
		fmt.Sprintf("Only %.1f GB free disk space", free),
		anomaly.WithAction("Free up disk space before recording"),
		anomaly.WithAutoFix(false),
	), true
}

// AudioClippingRule only fires on a present peak reading at or above PeakDBFS
// (0 dBFS by default). No reading means the rule abstains.
type AudioClippingRule struct {
	PeakDBFS float64
}

func (AudioClippingRule) Name() string { return "AudioClipping" }

func (r AudioClippingRule) Evaluate(s Snapshot) (anomaly.Anomaly, bool) {
	peak, ok := s.AudioPeakDBFS().Value()
	if !ok || peak < r.PeakDBFS {
		return anomaly.Anomaly{}, false
	}
	return anomaly.New(anomaly.KindAudioClipping, anomaly.Warning,
		fmt.Sprintf("Audio peaking at %.1f dB (clipping)", peak),
		anomaly.WithAction("Reduce microphone gain or enable a compressor"),
		anomaly.WithAutoFix(true),
	), true
}
