// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux

package hostmon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/procfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/preflight/internal/ports"
)

const meminfo = `MemTotal:       16777216 kB
MemFree:         1048576 kB
MemAvailable:    4194304 kB
Buffers:          262144 kB
Cached:          2097152 kB
`

const procStat = `cpu  1000 0 500 8000 100 0 0 0 0 0
cpu0 1000 0 500 8000 100 0 0 0 0 0
intr 0
ctxt 0
btime 1700000000
processes 10
procs_running 1
procs_blocked 0
`

type zone struct {
	typ  string
	temp string
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestMonitor(t *testing.T, zones ...zone) *Monitor {
	t.Helper()
	root := t.TempDir()
	proc := filepath.Join(root, "proc")
	sys := filepath.Join(root, "sys")
	writeFile(t, filepath.Join(proc, "meminfo"), meminfo)
	writeFile(t, filepath.Join(proc, "stat"), procStat)
	require.NoError(t, os.MkdirAll(filepath.Join(sys, "class"), 0o755))
	for i, z := range zones {
		dir := filepath.Join(sys, "class", "thermal", "thermal_zone"+string(rune('0'+i)))
		writeFile(t, filepath.Join(dir, "type"), z.typ+"\n")
		writeFile(t, filepath.Join(dir, "temp"), z.temp+"\n")
		writeFile(t, filepath.Join(dir, "policy"), "step_wise\n")
	}

	m, err := New(Config{ProcRoot: proc, SysRoot: sys, DiskPath: root, SampleInterval: time.Millisecond})
	require.NoError(t, err)
	return m
}

func TestCPUTemperature_PrefersPackageZone(t *testing.T) {
	m := newTestMonitor(t,
		zone{"acpitz", "40000"},
		zone{"x86_pkg_temp", "72500"},
	)
	temp, err := m.CPUTemperature(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 72.5, temp, 0.001)
}

func TestCPUTemperature_FallsBackToACPI(t *testing.T) {
	m := newTestMonitor(t, zone{"acpitz", "41000"})
	temp, err := m.CPUTemperature(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 41.0, temp, 0.001)
}

func TestTemperatures_NoZones(t *testing.T) {
	m := newTestMonitor(t)
	_, err := m.CPUTemperature(context.Background())
	assert.True(t, errors.Is(err, ports.ErrSensorUnavailable))
	_, err = m.GPUTemperature(context.Background())
	assert.True(t, errors.Is(err, ports.ErrSensorUnavailable))
}

func TestGPUTemperature_Hottest(t *testing.T) {
	m := newTestMonitor(t,
		zone{"gpu-thermal", "61000"},
		zone{"x86_pkg_temp", "50000"},
		zone{"GPU1", "83000"},
	)
	temp, err := m.GPUTemperature(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 83.0, temp, 0.001)
}

func TestMemoryInfo(t *testing.T) {
	m := newTestMonitor(t)
	mi, err := m.MemoryInfo(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 16.0, mi.TotalGB, 0.001)
	assert.InDelta(t, 4.0, mi.AvailableGB, 0.001)
	assert.InDelta(t, 75.0, mi.UsedPercent, 0.001)
}

func TestCPUUsage_TwoSamples(t *testing.T) {
	m := newTestMonitor(t)
	samples := []procfs.CPUStat{
		{User: 100, System: 50, Idle: 800, Iowait: 50},
		{User: 160, System: 70, Idle: 900, Iowait: 70},
	}
	i := 0
	m.readCPU = func() (procfs.CPUStat, error) {
		s := samples[i]
		i++
		return s, nil
	}
	usage, err := m.CPUUsage(context.Background())
	require.NoError(t, err)
	// busy delta 80 over total delta 200
	assert.InDelta(t, 40.0, usage, 0.001)
}

func TestCPUUsage_FromProcStat(t *testing.T) {
	m := newTestMonitor(t)
	usage, err := m.CPUUsage(context.Background())
	require.NoError(t, err)
	assert.Zero(t, usage)
}

func TestCPUUsage_Cancelled(t *testing.T) {
	m := newTestMonitor(t)
	m.interval = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.CPUUsage(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBusyPercent_Bounds(t *testing.T) {
	a := procfs.CPUStat{User: 10, Idle: 10}
	assert.Zero(t, busyPercent(a, a))
	assert.Zero(t, busyPercent(procfs.CPUStat{User: 20, Idle: 10}, a))
}

func TestDiskSpace(t *testing.T) {
	m := newTestMonitor(t)
	d, err := m.DiskSpace(context.Background())
	require.NoError(t, err)
	assert.Greater(t, d.TotalGB, 0.0)
	assert.LessOrEqual(t, d.FreeGB, d.TotalGB)
	assert.GreaterOrEqual(t, d.UsedPercent, 0.0)
}

func TestDiskSpace_MissingPath(t *testing.T) {
	m := newTestMonitor(t)
	m.diskPath = filepath.Join(t.TempDir(), "absent")
	_, err := m.DiskSpace(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ports.ErrSensorUnavailable))
}
