// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fixture replays recorded telemetry from a YAML file. A fixture
// implements both ports so checks can run without a live host or
// production application, e.g. in CI.
package fixture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/preflight/internal/ports"
)

// File is the on-disk layout.
type File struct {
	Monitor *MonitorSection `yaml:"monitor"`
	App     AppSection      `yaml:"app"`
	// Fail maps a port operation to an error message it should return.
	// Keys: cpu_temperature, gpu_temperature, cpu_usage, memory_info,
	// disk_space, stats, scenes.
	Fail map[string]string `yaml:"fail"`
	// Latency delays every call; cancellation cuts it short.
	Latency time.Duration `yaml:"latency"`
}

// MonitorSection holds host readings. A nil temperature means the sensor is
// not supported.
type MonitorSection struct {
	CPUTempC        *float64         `yaml:"cpu_temp_c"`
	GPUTempC        *float64         `yaml:"gpu_temp_c"`
	CPUUsagePercent float64          `yaml:"cpu_usage_percent"`
	Memory          ports.MemoryInfo `yaml:"memory"`
	Disk            ports.DiskInfo   `yaml:"disk"`
}

type AppSection struct {
	Stats  ports.AppStats `yaml:"stats"`
	Scenes []ports.Scene  `yaml:"scenes"`
}

var validOps = map[string]bool{
	"cpu_temperature": true,
	"gpu_temperature": true,
	"cpu_usage":       true,
	"memory_info":     true,
	"disk_space":      true,
	"stats":           true,
	"scenes":          true,
}

// ErrInjected is wrapped by every failure configured under fail:.
var ErrInjected = errors.New("injected failure")

// Fixture serves a parsed File. It is immutable and safe for concurrent use.
type Fixture struct {
	f File
}

// Load reads and strictly decodes the fixture at path.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied fixture path
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	fx, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return fx, nil
}

// Parse decodes a fixture. Unknown fields are rejected.
func Parse(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", err)
	}
	for op := range f.Fail {
		if !validOps[op] {
			return nil, fmt.Errorf("fail: unknown operation %q", op)
		}
	}
	if f.Latency < 0 {
		return nil, fmt.Errorf("latency must not be negative")
	}
	return &Fixture{f: f}, nil
}

// New wraps an in-memory File.
func New(f File) *Fixture {
	return &Fixture{f: f}
}

// HasMonitor reports whether the fixture carries host readings.
func (x *Fixture) HasMonitor() bool {
	return x.f.Monitor != nil
}

// call applies latency and injected failures for op.
func (x *Fixture) call(ctx context.Context, op string) error {
	if x.f.Latency > 0 {
		timer := time.NewTimer(x.f.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg, ok := x.f.Fail[op]; ok {
		return fmt.Errorf("%w: %s", ErrInjected, msg)
	}
	return nil
}

func (x *Fixture) monitor(ctx context.Context, op string) (*MonitorSection, error) {
	if err := x.call(ctx, op); err != nil {
		return nil, err
	}
	if x.f.Monitor == nil {
		return nil, fmt.Errorf("fixture has no monitor section")
	}
	return x.f.Monitor, nil
}

func (x *Fixture) CPUTemperature(ctx context.Context) (float64, error) {
	m, err := x.monitor(ctx, "cpu_temperature")
	if err != nil {
		return 0, err
	}
	if m.CPUTempC == nil {
		return 0, ports.ErrSensorUnavailable
	}
	return *m.CPUTempC, nil
}

func (x *Fixture) GPUTemperature(ctx context.Context) (float64, error) {
	m, err := x.monitor(ctx, "gpu_temperature")
	if err != nil {
		return 0, err
	}
	if m.GPUTempC == nil {
		return 0, ports.ErrSensorUnavailable
	}
	return *m.GPUTempC, nil
}

func (x *Fixture) CPUUsage(ctx context.Context) (float64, error) {
	m, err := x.monitor(ctx, "cpu_usage")
	if err != nil {
		return 0, err
	}
	return m.CPUUsagePercent, nil
}

func (x *Fixture) MemoryInfo(ctx context.Context) (ports.MemoryInfo, error) {
	m, err := x.monitor(ctx, "memory_info")
	if err != nil {
		return ports.MemoryInfo{}, err
	}
	return m.Memory, nil
}

func (x *Fixture) DiskSpace(ctx context.Context) (ports.DiskInfo, error) {
	m, err := x.monitor(ctx, "disk_space")
	if err != nil {
		return ports.DiskInfo{}, err
	}
	return m.Disk, nil
}

func (x *Fixture) Stats(ctx context.Context) (ports.AppStats, error) {
	if err := x.call(ctx, "stats"); err != nil {
		return ports.AppStats{}, err
	}
	return x.f.App.Stats, nil
}

// Scenes returns a copy so callers cannot mutate the fixture.
func (x *Fixture) Scenes(ctx context.Context) ([]ports.Scene, error) {
	if err := x.call(ctx, "scenes"); err != nil {
		return nil, err
	}
	out := make([]ports.Scene, len(x.f.App.Scenes))
	for i, s := range x.f.App.Scenes {
		out[i] = ports.Scene{Name: s.Name, Sources: append([]ports.Source(nil), s.Sources...)}
	}
	return out, nil
}

var (
	_ ports.Monitor     = (*Fixture)(nil)
	_ ports.Application = (*Fixture)(nil)
)
