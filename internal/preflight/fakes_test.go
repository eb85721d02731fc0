// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package preflight

import (
	"context"
	"sync/atomic"

	"github.com/ManuGH/preflight/internal/ports"
)

type fakeMonitor struct {
	cpuTemp, gpuTemp, cpuUsage float64
	cpuTempErr, gpuTempErr     error
	cpuUsageErr                error
	memory                     ports.MemoryInfo
	memoryErr                  error
	disk                       ports.DiskInfo
	diskErr                    error
}

func healthyMonitor() *fakeMonitor {
	return &fakeMonitor{
		cpuTemp:  55,
		gpuTemp:  60,
		cpuUsage: 20,
		memory:   ports.MemoryInfo{TotalGB: 32, AvailableGB: 16, UsedPercent: 50},
		disk:     ports.DiskInfo{TotalGB: 1000, FreeGB: 400, UsedPercent: 60},
	}
}

func (m *fakeMonitor) CPUTemperature(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return m.cpuTemp, m.cpuTempErr
}

func (m *fakeMonitor) GPUTemperature(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return m.gpuTemp, m.gpuTempErr
}

func (m *fakeMonitor) CPUUsage(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return m.cpuUsage, m.cpuUsageErr
}

func (m *fakeMonitor) MemoryInfo(ctx context.Context) (ports.MemoryInfo, error) {
	if err := ctx.Err(); err != nil {
		return ports.MemoryInfo{}, err
	}
	return m.memory, m.memoryErr
}

func (m *fakeMonitor) DiskSpace(ctx context.Context) (ports.DiskInfo, error) {
	if err := ctx.Err(); err != nil {
		return ports.DiskInfo{}, err
	}
	return m.disk, m.diskErr
}

type fakeApp struct {
	stats     ports.AppStats
	statsErr  error
	scenes    []ports.Scene
	scenesErr error
	// block makes Stats wait for cancellation.
	block bool
	calls atomic.Int32
}

func healthyApp() *fakeApp {
	return &fakeApp{
		stats: ports.AppStats{CPUUsage: 12, ActiveFPS: 60, OutputTotalFrames: 10000, OutputSkippedFrames: 10},
		scenes: []ports.Scene{
			{Name: "Main", Sources: []ports.Source{{Name: "Cam", Available: true}, {Name: "Mic", Available: true}}},
		},
	}
}

func (a *fakeApp) Stats(ctx context.Context) (ports.AppStats, error) {
	a.calls.Add(1)
	if a.block {
		<-ctx.Done()
		return ports.AppStats{}, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return ports.AppStats{}, err
	}
	return a.stats, a.statsErr
}

func (a *fakeApp) Scenes(ctx context.Context) ([]ports.Scene, error) {
	a.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.scenes, a.scenesErr
}
