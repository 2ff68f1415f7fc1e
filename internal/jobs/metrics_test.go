package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("analytics:warmup").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("analytics:warmup").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("analytics:warmup", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("analytics:warmup", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("analytics:warmup")))
}

func TestAddWarmedIgnoresNonPositive(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddWarmed("ok", 36)
	m.AddWarmed("ok", 0)
	m.AddWarmed("failed", -1)

	assert.Equal(t, 36.0, testutil.ToFloat64(m.warmed.WithLabelValues("ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.warmed.WithLabelValues("failed")))
}

func TestNilMetricsTrackerPassesErrorThrough(t *testing.T) {
	var m *Metrics
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("x").End(boom), boom)
	m.AddWarmed("ok", 1)
}
