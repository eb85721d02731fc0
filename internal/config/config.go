// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the preflight configuration.
//
// Precedence, lowest first: built-in defaults, the YAML file (strict: unknown
// keys are rejected), PREFLIGHT_* environment variables. The merged result is
// validated as a whole before it is used.
package config

import (
	"time"

	"github.com/ManuGH/preflight/internal/hostmon"
	"github.com/ManuGH/preflight/internal/rules"
	"github.com/ManuGH/preflight/internal/telemetry"
)

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	Log               LogConfig        `yaml:"log"`
	Thresholds        rules.Thresholds `yaml:"thresholds"`
	Extensions        rules.Extensions `yaml:"extensions"`
	MinRecordMemoryGB float64          `yaml:"min_record_memory_gb"`
	API               APIConfig        `yaml:"api"`
	Telemetry         telemetry.Config `yaml:"telemetry"`
	Events            EventsConfig     `yaml:"events"`
	Host              hostmon.Config   `yaml:"host"`
	// Fixture, when set, replays telemetry from a YAML file instead of the
	// live host and application.
	Fixture string `yaml:"fixture"`

	Version string `yaml:"-"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// APIConfig configures the HTTP surface of "preflight serve".
type APIConfig struct {
	Listen       string        `yaml:"listen"`
	RateLimitRPM int           `yaml:"rate_limit_rpm"`
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

// EventsConfig selects the event bus. An empty NATSURL keeps events in
// process.
type EventsConfig struct {
	NATSURL        string        `yaml:"nats_url"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() AppConfig {
	return AppConfig{
		Log: LogConfig{
			Level:   "info",
			Service: "preflight",
		},
		Thresholds:        rules.DefaultThresholds(),
		MinRecordMemoryGB: 2.0,
		API: APIConfig{
			Listen:       ":8089",
			RateLimitRPM: 60,
			CheckTimeout: 10 * time.Second,
		},
		Telemetry: telemetry.Config{
			ServiceName:  "preflight",
			Environment:  "production",
			ExporterType: "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
		Events: EventsConfig{
			ConnectTimeout: 2 * time.Second,
			PublishTimeout: 2 * time.Second,
		},
		Host: hostmon.Config{
			DiskPath:       "/",
			SampleInterval: 250 * time.Millisecond,
		},
	}
}

// Rules returns the standard rules followed by the enabled extension rules.
func (c AppConfig) Rules() []rules.Rule {
	return append(rules.StandardRules(c.Thresholds), c.Extensions.Rules()...)
}
