// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package preflight

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/preflight/internal/anomaly"
	"github.com/ManuGH/preflight/internal/ports"
)

func TestBuildReport_Partition(t *testing.T) {
	list := []anomaly.Anomaly{
		anomaly.New(anomaly.KindHighCPUTemp, anomaly.Critical, "cpu hot"),
		anomaly.New(anomaly.KindDroppedFrames, anomaly.Warning, "frames"),
		anomaly.New(anomaly.KindBitrateIssue, anomaly.Info, "fyi"),
	}
	r := buildReport(list, 16, DefaultMinRecordMemoryGB, fixedNow)

	assert.Equal(t, []string{"cpu hot"}, r.CriticalIssues)
	assert.Equal(t, []string{"frames"}, r.Warnings)
	assert.Len(t, r.Anomalies, 3)
	assert.False(t, r.CanStream)
	assert.False(t, r.CanRecord)
	assert.False(t, r.IsHealthy)
}

func TestBuildReport_InfoOnlyIsHealthy(t *testing.T) {
	r := buildReport([]anomaly.Anomaly{anomaly.New(anomaly.KindBitrateIssue, anomaly.Info, "fyi")}, 16, 2, fixedNow)
	assert.True(t, r.IsHealthy)
	assert.True(t, r.CanRecord)
	assert.Empty(t, r.Warnings)
	assert.Empty(t, r.CriticalIssues)
}

func TestBuildReport_Invariants(t *testing.T) {
	severities := []anomaly.Severity{anomaly.Info, anomaly.Warning, anomaly.Critical}
	for mask := 0; mask < 1<<len(severities); mask++ {
		var list []anomaly.Anomaly
		for i, sev := range severities {
			if mask&(1<<i) != 0 {
				list = append(list, anomaly.New(anomaly.KindPluginFailure, sev, sev.String()))
			}
		}
		for _, mem := range []float64{1, 2, 3} {
			r := buildReport(list, mem, 2, fixedNow)
			if r.IsHealthy {
				assert.Empty(t, r.CriticalIssues)
				assert.Empty(t, r.Warnings)
			}
			assert.Equal(t, len(r.CriticalIssues) == 0, r.CanStream)
			if r.CanRecord {
				assert.True(t, r.CanStream)
			}
		}
	}
}

func TestUnavailableSources_SortedSet(t *testing.T) {
	scenes := []ports.Scene{
		{Name: "Z", Sources: []ports.Source{{Name: "b"}, {Name: "a", Available: true}}},
		{Name: "A", Sources: []ports.Source{{Name: "x"}}},
		{Name: "Z", Sources: []ports.Source{{Name: "b"}}},
		{Name: "Empty"},
	}
	want := []string{"A:x", "Z:b"}
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(want, unavailableSources(scenes)); diff != "" {
			t.Fatalf("unexpected sources (-want +got):\n%s", diff)
		}
	}
	assert.Equal(t, []string{}, unavailableSources(nil))
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	report := buildReport([]anomaly.Anomaly{
		anomaly.New(anomaly.KindDroppedFrames, anomaly.Warning, "Dropping 2.0% of frames"),
	}, 8, 2, fixedNow)

	require.NoError(t, WriteReport(context.Background(), path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, false, decoded["is_healthy"])
	assert.Equal(t, true, decoded["can_stream"])
	assert.Equal(t, []any{"Dropping 2.0% of frames"}, decoded["warnings"])
	assert.Equal(t, []any{}, decoded["critical_issues"])
	assert.Len(t, decoded["anomalies"], 1)
}

func TestWriteReport_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "report.json")
	err := WriteReport(context.Background(), path, HealthReport{})
	assert.Error(t, err)
}
