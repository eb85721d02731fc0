// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rules

import "fmt"

// Thresholds configures the standard rule set.
type Thresholds struct {
	CPUTempWarningC       float64 `yaml:"cpu_temp_warning_c" json:"cpu_temp_warning_c"`
	CPUTempCriticalC      float64 `yaml:"cpu_temp_critical_c" json:"cpu_temp_critical_c"`
	GPUTempWarningC       float64 `yaml:"gpu_temp_warning_c" json:"gpu_temp_warning_c"`
	GPUTempCriticalC      float64 `yaml:"gpu_temp_critical_c" json:"gpu_temp_critical_c"`
	DroppedFramesPercent  float64 `yaml:"dropped_frames_percent" json:"dropped_frames_percent"`
	MemoryUsedPercent     float64 `yaml:"memory_used_percent" json:"memory_used_percent"`
	DiskFreeGB            float64 `yaml:"disk_free_gb" json:"disk_free_gb"`
	AudioClippingPeakDBFS float64 `yaml:"audio_clipping_peak_dbfs" json:"audio_clipping_peak_dbfs"`
}

// DefaultThresholds returns the documented defaults of the standard rules.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPUTempWarningC:       75,
		CPUTempCriticalC:      85,
		GPUTempWarningC:       80,
		GPUTempCriticalC:      90,
		DroppedFramesPercent:  1.0,
		MemoryUsedPercent:     90,
		DiskFreeGB:            10,
		AudioClippingPeakDBFS: 0,
	}
}

// Validate checks that warning levels sit below critical levels and that
// percentage and capacity thresholds are not negative.
func (t Thresholds) Validate() error {
	if t.CPUTempWarningC >= t.CPUTempCriticalC {
		return fmt.Errorf("cpu temperature: warning (%.1f) must be below critical (%.1f)", t.CPUTempWarningC, t.CPUTempCriticalC)
	}
	if t.GPUTempWarningC >= t.GPUTempCriticalC {
		return fmt.Errorf("gpu temperature: warning (%.1f) must be below critical (%.1f)", t.GPUTempWarningC, t.GPUTempCriticalC)
	}
	if t.DroppedFramesPercent < 0 || t.DroppedFramesPercent > 100 {
		return fmt.Errorf("dropped frames percent out of range: %.2f", t.DroppedFramesPercent)
	}
	if t.MemoryUsedPercent < 0 || t.MemoryUsedPercent > 100 {
		return fmt.Errorf("memory used percent out of range: %.2f", t.MemoryUsedPercent)
	}
	if t.DiskFreeGB < 0 {
		return fmt.Errorf("disk free threshold must not be negative: %.2f", t.DiskFreeGB)
	}
	return nil
}

// StandardRules returns the seven standard rules configured from t, in their
// canonical registration order.
func StandardRules(t Thresholds) []Rule {
	return []Rule{
		MissingSourceRule{},
		CPUTemperatureRule{WarningC: t.CPUTempWarningC, CriticalC: t.CPUTempCriticalC},
		GPUTemperatureRule{WarningC: t.GPUTempWarningC, CriticalC: t.GPUTempCriticalC},
		DroppedFramesRule{ThresholdPercent: t.DroppedFramesPercent},
		LowMemoryRule{ThresholdPercent: t.MemoryUsedPercent},
		LowDiskSpaceRule{ThresholdGB: t.DiskFreeGB},
		AudioClippingRule{PeakDBFS: t.AudioClippingPeakDBFS},
	}
}
