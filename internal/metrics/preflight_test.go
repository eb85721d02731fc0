// SPDX-License-Identifier: MIT
package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to get metric value from a gauge
func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	err := gauge.Write(metric)
	require.NoError(t, err)
	return metric.GetGauge().GetValue()
}

// Helper function to get metric value from a labeled counter
func getCounterVecValue(t *testing.T, counterVec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counterVec.WithLabelValues(labels...).Write(metric))
	return metric.GetCounter().GetValue()
}

func TestRecordCheck_NormalizesLabels(t *testing.T) {
	initial := getCounterVecValue(t, checksTotal, "full", "healthy")
	RecordCheck(" FULL ", "Healthy", 0.12)
	assert.Equal(t, initial+1, getCounterVecValue(t, checksTotal, "full", "healthy"))

	initialUnknown := getCounterVecValue(t, checksTotal, "unknown", "unknown")
	RecordCheck("sideways", "maybe", 0.01)
	assert.Equal(t, initialUnknown+1, getCounterVecValue(t, checksTotal, "unknown", "unknown"))
}

func TestRecordAnomaly(t *testing.T) {
	initial := getCounterVecValue(t, anomaliesTotal, "disk_space_low", "critical")
	RecordAnomaly("disk_space_low", "CRITICAL")
	assert.Equal(t, initial+1, getCounterVecValue(t, anomaliesTotal, "disk_space_low", "critical"))
}

func TestRecordPortFailure(t *testing.T) {
	initial := getCounterVecValue(t, portFailuresTotal, "app_scenes")
	RecordPortFailure("app_scenes")
	assert.Equal(t, initial+1, getCounterVecValue(t, portFailuresTotal, "app_scenes"))

	initialUnknown := getCounterVecValue(t, portFailuresTotal, "unknown")
	RecordPortFailure("gpu-driver")
	assert.Equal(t, initialUnknown+1, getCounterVecValue(t, portFailuresTotal, "unknown"))
}

func TestSetLastCheckHealthy(t *testing.T) {
	SetLastCheckHealthy(true)
	assert.Equal(t, 1.0, getGaugeValue(t, lastCheckHealthy))
	SetLastCheckHealthy(false)
	assert.Equal(t, 0.0, getGaugeValue(t, lastCheckHealthy))
}

func TestRecordConfigReload(t *testing.T) {
	ok := getCounterVecValue(t, configReloadsTotal, "success")
	fail := getCounterVecValue(t, configReloadsTotal, "failure")
	RecordConfigReload(true)
	RecordConfigReload(false)
	assert.Equal(t, ok+1, getCounterVecValue(t, configReloadsTotal, "success"))
	assert.Equal(t, fail+1, getCounterVecValue(t, configReloadsTotal, "failure"))
}

func TestRecordRulePanic(t *testing.T) {
	initial := getCounterVecValue(t, rulePanicsTotal, "Broken")
	RecordRulePanic("Broken")
	assert.Equal(t, initial+1, getCounterVecValue(t, rulePanicsTotal, "Broken"))
}

func TestRecordEvents(t *testing.T) {
	initial := getCounterVecValue(t, eventsPublishedTotal, "anomaly.detected")
	RecordEventPublished("anomaly.detected")
	assert.Equal(t, initial+1, getCounterVecValue(t, eventsPublishedTotal, "anomaly.detected"))

	initialDrop := getCounterVecValue(t, eventsDroppedTotal, "anomaly.detected", "timeout")
	RecordEventDropped("anomaly.detected", "timeout")
	assert.Equal(t, initialDrop+1, getCounterVecValue(t, eventsDroppedTotal, "anomaly.detected", "timeout"))
}
