// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package anomaly

import (
	"encoding/json"
	"fmt"
)

// Kind is the diagnostic category of an anomaly. The set is closed: every kind
// is produced by exactly one rule.
type Kind string

const (
	KindMissingSource   Kind = "missing_source"
	KindHighCPUTemp     Kind = "high_cpu_temp"
	KindHighGPUTemp     Kind = "high_gpu_temp"
	KindMemoryPressure  Kind = "memory_pressure"
	KindDroppedFrames   Kind = "dropped_frames"
	KindEncoderOverload Kind = "encoder_overload"
	KindAudioClipping   Kind = "audio_clipping"
	KindDiskSpaceLow    Kind = "disk_space_low"
	KindPluginFailure   Kind = "plugin_failure"
	KindInvalidConfig   Kind = "invalid_config"
	KindNetworkUnstable Kind = "network_unstable"
	KindBitrateIssue    Kind = "bitrate_issue"
)

var allKinds = []Kind{
	KindMissingSource,
	KindHighCPUTemp,
	KindHighGPUTemp,
	KindMemoryPressure,
	KindDroppedFrames,
	KindEncoderOverload,
	KindAudioClipping,
	KindDiskSpaceLow,
	KindPluginFailure,
	KindInvalidConfig,
	KindNetworkUnstable,
	KindBitrateIssue,
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// Valid reports whether k belongs to the closed set.
func (k Kind) Valid() bool {
	for _, known := range allKinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !Kind(raw).Valid() {
		return fmt.Errorf("unknown anomaly kind %q", raw)
	}
	*k = Kind(raw)
	return nil
}
