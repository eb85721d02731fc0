// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux

// Package hostmon implements the host Monitor port on Linux from /proc and
// /sys.
package hostmon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/procfs"
	"github.com/prometheus/procfs/sysfs"
	"golang.org/x/sys/unix"

	"github.com/ManuGH/preflight/internal/ports"
)

const (
	defaultSampleInterval = 250 * time.Millisecond
	bytesPerGB            = 1 << 30
	kBPerGB               = 1 << 20
)

// cpuZoneTypes lists thermal zone types that report the CPU package, most
// specific first.
var cpuZoneTypes = []string{"x86_pkg_temp", "coretemp", "k10temp", "cpu", "soc", "acpitz"}

// Config locates the host filesystems. Empty roots mean /proc and /sys.
type Config struct {
	ProcRoot       string        `yaml:"proc_root"`
	SysRoot        string        `yaml:"sys_root"`
	DiskPath       string        `yaml:"disk_path"`
	SampleInterval time.Duration `yaml:"sample_interval"`
}

// Monitor reads host telemetry. It keeps no state between calls and is safe
// for concurrent use.
type Monitor struct {
	proc     procfs.FS
	sys      sysfs.FS
	diskPath string
	interval time.Duration

	readCPU func() (procfs.CPUStat, error)
}

// New opens the proc and sys filesystems described by cfg.
func New(cfg Config) (*Monitor, error) {
	procRoot := cfg.ProcRoot
	if procRoot == "" {
		procRoot = procfs.DefaultMountPoint
	}
	sysRoot := cfg.SysRoot
	if sysRoot == "" {
		sysRoot = sysfs.DefaultMountPoint
	}
	proc, err := procfs.NewFS(procRoot)
	if err != nil {
		return nil, fmt.Errorf("open procfs %s: %w", procRoot, err)
	}
	sys, err := sysfs.NewFS(sysRoot)
	if err != nil {
		return nil, fmt.Errorf("open sysfs %s: %w", sysRoot, err)
	}

	m := &Monitor{
		proc:     proc,
		sys:      sys,
		diskPath: cfg.DiskPath,
		interval: cfg.SampleInterval,
	}
	if m.diskPath == "" {
		m.diskPath = "/"
	}
	if m.interval <= 0 {
		m.interval = defaultSampleInterval
	}
	m.readCPU = func() (procfs.CPUStat, error) {
		st, err := m.proc.Stat()
		if err != nil {
			return procfs.CPUStat{}, err
		}
		return st.CPUTotal, nil
	}
	return m, nil
}

// CPUTemperature returns the temperature of the most specific CPU zone.
func (m *Monitor) CPUTemperature(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	zones, err := m.zones()
	if err != nil {
		return 0, err
	}
	for _, want := range cpuZoneTypes {
		for _, z := range zones {
			if strings.HasPrefix(strings.ToLower(z.Type), want) {
				return milliToC(z.Temp), nil
			}
		}
	}
	return 0, fmt.Errorf("no cpu thermal zone: %w", ports.ErrSensorUnavailable)
}

// GPUTemperature returns the hottest zone whose type mentions a GPU.
func (m *Monitor) GPUTemperature(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	zones, err := m.zones()
	if err != nil {
		return 0, err
	}
	found := false
	var hottest int64
	for _, z := range zones {
		if !strings.Contains(strings.ToLower(z.Type), "gpu") {
			continue
		}
		if !found || z.Temp > hottest {
			hottest = z.Temp
		}
		found = true
	}
	if !found {
		return 0, fmt.Errorf("no gpu thermal zone: %w", ports.ErrSensorUnavailable)
	}
	return milliToC(hottest), nil
}

func (m *Monitor) zones() ([]sysfs.ClassThermalZoneStats, error) {
	zones, err := m.sys.ClassThermalZoneStats()
	if err != nil {
		// Hosts without a thermal class (containers, VMs) have nothing to read.
		return nil, fmt.Errorf("read thermal zones: %v: %w", err, ports.ErrSensorUnavailable)
	}
	return zones, nil
}

// CPUUsage samples /proc/stat twice, SampleInterval apart, and returns the
// busy share of the interval in percent.
func (m *Monitor) CPUUsage(ctx context.Context) (float64, error) {
	first, err := m.readCPU()
	if err != nil {
		return 0, fmt.Errorf("read cpu stat: %w", err)
	}

	timer := time.NewTimer(m.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-timer.C:
	}

	second, err := m.readCPU()
	if err != nil {
		return 0, fmt.Errorf("read cpu stat: %w", err)
	}
	return busyPercent(first, second), nil
}

func busyPercent(a, b procfs.CPUStat) float64 {
	idle := (b.Idle + b.Iowait) - (a.Idle + a.Iowait)
	total := cpuTotal(b) - cpuTotal(a)
	if total <= 0 {
		return 0
	}
	busy := (total - idle) / total * 100
	switch {
	case busy < 0:
		return 0
	case busy > 100:
		return 100
	default:
		return busy
	}
}

// cpuTotal excludes guest time, which the kernel already counts in user.
func cpuTotal(c procfs.CPUStat) float64 {
	return c.User + c.Nice + c.System + c.Idle + c.Iowait + c.IRQ + c.SoftIRQ + c.Steal
}

// MemoryInfo reads /proc/meminfo.
func (m *Monitor) MemoryInfo(ctx context.Context) (ports.MemoryInfo, error) {
	if err := ctx.Err(); err != nil {
		return ports.MemoryInfo{}, err
	}
	mi, err := m.proc.Meminfo()
	if err != nil {
		return ports.MemoryInfo{}, fmt.Errorf("read meminfo: %w", err)
	}
	if mi.MemTotal == nil || *mi.MemTotal == 0 {
		return ports.MemoryInfo{}, fmt.Errorf("read meminfo: MemTotal missing")
	}
	total := *mi.MemTotal
	var available uint64
	switch {
	case mi.MemAvailable != nil:
		available = *mi.MemAvailable
	case mi.MemFree != nil:
		// Kernels before 3.14 lack MemAvailable.
		available = *mi.MemFree
		if mi.Buffers != nil {
			available += *mi.Buffers
		}
		if mi.Cached != nil {
			available += *mi.Cached
		}
	}
	if available > total {
		available = total
	}
	return ports.MemoryInfo{
		TotalGB:     float64(total) / kBPerGB,
		AvailableGB: float64(available) / kBPerGB,
		UsedPercent: float64(total-available) / float64(total) * 100,
	}, nil
}

// DiskSpace reports the filesystem holding DiskPath. Free space counts only
// blocks available to unprivileged users.
func (m *Monitor) DiskSpace(ctx context.Context) (ports.DiskInfo, error) {
	if err := ctx.Err(); err != nil {
		return ports.DiskInfo{}, err
	}
	var st unix.Statfs_t
	if err := unix.Statfs(m.diskPath, &st); err != nil {
		return ports.DiskInfo{}, fmt.Errorf("statfs %s: %w", m.diskPath, err)
	}
	bsize := uint64(st.Bsize)
	total := st.Blocks * bsize
	free := st.Bavail * bsize
	info := ports.DiskInfo{
		TotalGB: float64(total) / bytesPerGB,
		FreeGB:  float64(free) / bytesPerGB,
	}
	if total > 0 {
		info.UsedPercent = float64(total-st.Bfree*bsize) / float64(total) * 100
	}
	return info, nil
}

func milliToC(v int64) float64 {
	return float64(v) / 1000
}

var _ ports.Monitor = (*Monitor)(nil)
