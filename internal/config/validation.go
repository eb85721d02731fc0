// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/ManuGH/preflight/internal/validate"
)

// Validate checks the merged configuration. All problems are reported at
// once as a validate.ValidationError.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.LogLevel("log.level", cfg.Log.Level)
	v.NotEmpty("log.service", cfg.Log.Service)

	t := cfg.Thresholds
	v.Less("thresholds.cpu_temp_warning_c", t.CPUTempWarningC, t.CPUTempCriticalC)
	v.Less("thresholds.gpu_temp_warning_c", t.GPUTempWarningC, t.GPUTempCriticalC)
	v.FloatRange("thresholds.dropped_frames_percent", t.DroppedFramesPercent, 0, 100)
	v.FloatRange("thresholds.memory_used_percent", t.MemoryUsedPercent, 0, 100)
	v.FloatRange("thresholds.disk_free_gb", t.DiskFreeGB, 0, 1<<20)
	v.FloatRange("extensions.encoder_overload_percent", cfg.Extensions.EncoderOverloadPercent, 0, 100)
	v.FloatRange("extensions.min_network_bitrate_kbps", cfg.Extensions.MinNetworkBitrateKbps, 0, 1<<30)
	v.FloatRange("min_record_memory_gb", cfg.MinRecordMemoryGB, 0, 1<<20)

	v.ListenAddr("api.listen", cfg.API.Listen)
	v.NonNegative("api.rate_limit_rpm", cfg.API.RateLimitRPM)
	v.PositiveDuration("api.check_timeout", cfg.API.CheckTimeout)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.ExporterType, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.sampling_rate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	if cfg.Events.NATSURL != "" {
		v.URL("events.nats_url", cfg.Events.NATSURL, []string{"nats", "tls", "ws", "wss"})
		v.PositiveDuration("events.connect_timeout", cfg.Events.ConnectTimeout)
	}
	v.PositiveDuration("events.publish_timeout", cfg.Events.PublishTimeout)

	v.PositiveDuration("host.sample_interval", cfg.Host.SampleInterval)
	v.FileExists("fixture", cfg.Fixture)

	return v.Err()
}
