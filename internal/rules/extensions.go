// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rules

import (
	"fmt"

	"github.com/ManuGH/preflight/internal/anomaly"
)

// Extension rules are not part of the standard set; they are registered on
// demand through configuration.

// EncoderOverloadRule fires when the production application itself reports
// CPU usage at or above ThresholdPercent.
type EncoderOverloadRule struct {
	ThresholdPercent float64
}

func (EncoderOverloadRule) Name() string { return "EncoderOverload" }

func (r EncoderOverloadRule) Evaluate(s Snapshot) (anomaly.Anomaly, bool) {
	usage := s.AppCPUUsagePercent()
	if r.ThresholdPercent <= 0 || usage < r.ThresholdPercent {
		return anomaly.Anomaly{}, false
	}
	return anomaly.New(anomaly.KindEncoderOverload, anomaly.Warning,
		fmt.Sprintf("Application CPU usage at %.1f%%", usage),
		anomaly.WithAction("Switch to a hardware encoder or a faster preset"),
		anomaly.WithAutoFix(true),
	), true
}

// NetworkBitrateRule fires when a measured bitrate is present and below MinKbps.
type NetworkBitrateRule struct {
	MinKbps float64
}

func (NetworkBitrateRule) Name() string { return "NetworkBitrate" }

func (r NetworkBitrateRule) Evaluate(s Snapshot) (anomaly.Anomaly, bool) {
	kbps, ok := s.NetworkBitrateKbps().Value()
	if !ok || r.MinKbps <= 0 || kbps >= r.MinKbps {
		return anomaly.Anomaly{}, false
	}
	return anomaly.New(anomaly.KindBitrateIssue, anomaly.Warning,
		fmt.Sprintf("Measured bitrate %.0f kbps is below the %.0f kbps target", kbps, r.MinKbps),
		anomaly.WithAction("Lower the output bitrate or check the uplink"),
		anomaly.WithAutoFix(false),
	), true
}

// Extensions configures the optional rules. Zero values leave a rule disabled.
type Extensions struct {
	EncoderOverloadPercent float64 `yaml:"encoder_overload_percent" json:"encoder_overload_percent"`
	MinNetworkBitrateKbps  float64 `yaml:"min_network_bitrate_kbps" json:"min_network_bitrate_kbps"`
}

// Rules returns the enabled extension rules.
func (e Extensions) Rules() []Rule {
	var out []Rule
	if e.EncoderOverloadPercent > 0 {
		out = append(out, EncoderOverloadRule{ThresholdPercent: e.EncoderOverloadPercent})
	}
	if e.MinNetworkBitrateKbps > 0 {
		out = append(out, NetworkBitrateRule{MinKbps: e.MinNetworkBitrateKbps})
	}
	return out
}
