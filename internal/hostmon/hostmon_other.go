// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !linux

// Package hostmon implements the host Monitor port on Linux from /proc and
// /sys.
package hostmon

import (
	"errors"
	"runtime"
	"time"

	"github.com/ManuGH/preflight/internal/ports"
)

// Config locates the host filesystems. Empty roots mean /proc and /sys.
type Config struct {
	ProcRoot       string        `yaml:"proc_root"`
	SysRoot        string        `yaml:"sys_root"`
	DiskPath       string        `yaml:"disk_path"`
	SampleInterval time.Duration `yaml:"sample_interval"`
}

// New fails on platforms without procfs; use a fixture monitor instead.
func New(Config) (ports.Monitor, error) {
	return nil, errors.New("host monitor is not supported on " + runtime.GOOS)
}
