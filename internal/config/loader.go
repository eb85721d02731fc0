// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PREFLIGHT_"

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. An empty configPath skips
// the file layer.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the watched configuration file, if any.
func (l *Loader) Path() string {
	return l.configPath
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults, then
// validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version
	cfg.Telemetry.ServiceVersion = l.version

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadFile decodes the YAML file on top of cfg, so keys absent from the file
// keep their current values.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.Log.Level = l.envString(EnvPrefix+"LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Service = l.envString(EnvPrefix+"SERVICE_NAME", cfg.Log.Service)

	t := &cfg.Thresholds
	t.CPUTempWarningC = l.envFloat(EnvPrefix+"CPU_TEMP_WARNING_C", t.CPUTempWarningC)
	t.CPUTempCriticalC = l.envFloat(EnvPrefix+"CPU_TEMP_CRITICAL_C", t.CPUTempCriticalC)
	t.GPUTempWarningC = l.envFloat(EnvPrefix+"GPU_TEMP_WARNING_C", t.GPUTempWarningC)
	t.GPUTempCriticalC = l.envFloat(EnvPrefix+"GPU_TEMP_CRITICAL_C", t.GPUTempCriticalC)
	t.DroppedFramesPercent = l.envFloat(EnvPrefix+"DROPPED_FRAMES_PERCENT", t.DroppedFramesPercent)
	t.MemoryUsedPercent = l.envFloat(EnvPrefix+"MEMORY_USED_PERCENT", t.MemoryUsedPercent)
	t.DiskFreeGB = l.envFloat(EnvPrefix+"DISK_FREE_GB", t.DiskFreeGB)
	t.AudioClippingPeakDBFS = l.envFloat(EnvPrefix+"AUDIO_CLIPPING_PEAK_DBFS", t.AudioClippingPeakDBFS)

	cfg.Extensions.EncoderOverloadPercent = l.envFloat(EnvPrefix+"ENCODER_OVERLOAD_PERCENT", cfg.Extensions.EncoderOverloadPercent)
	cfg.Extensions.MinNetworkBitrateKbps = l.envFloat(EnvPrefix+"MIN_NETWORK_BITRATE_KBPS", cfg.Extensions.MinNetworkBitrateKbps)
	cfg.MinRecordMemoryGB = l.envFloat(EnvPrefix+"MIN_RECORD_MEMORY_GB", cfg.MinRecordMemoryGB)

	cfg.API.Listen = l.envString(EnvPrefix+"LISTEN", cfg.API.Listen)
	cfg.API.RateLimitRPM = l.envInt(EnvPrefix+"RATE_LIMIT_RPM", cfg.API.RateLimitRPM)
	cfg.API.CheckTimeout = l.envDuration(EnvPrefix+"CHECK_TIMEOUT", cfg.API.CheckTimeout)

	cfg.Telemetry.Enabled = l.envBool(EnvPrefix+"TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.ExporterType = l.envString(EnvPrefix+"OTLP_EXPORTER", cfg.Telemetry.ExporterType)
	cfg.Telemetry.Endpoint = l.envString(EnvPrefix+"OTLP_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvPrefix+"OTLP_SAMPLING_RATE", cfg.Telemetry.SamplingRate)

	cfg.Events.NATSURL = l.envString(EnvPrefix+"NATS_URL", cfg.Events.NATSURL)
	cfg.Events.PublishTimeout = l.envDuration(EnvPrefix+"EVENT_PUBLISH_TIMEOUT", cfg.Events.PublishTimeout)

	cfg.Host.ProcRoot = l.envString(EnvPrefix+"PROC_ROOT", cfg.Host.ProcRoot)
	cfg.Host.SysRoot = l.envString(EnvPrefix+"SYS_ROOT", cfg.Host.SysRoot)
	cfg.Host.DiskPath = l.envString(EnvPrefix+"DISK_PATH", cfg.Host.DiskPath)

	cfg.Fixture = l.envString(EnvPrefix+"FIXTURE", cfg.Fixture)
}
