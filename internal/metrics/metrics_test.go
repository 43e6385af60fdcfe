package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybersentinel/pkg/models"
)

func TestObservers(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRun("fetch-intel", nil, 600*time.Millisecond)
	m.ObserveRun("fetch-intel", errors.New("boom"), time.Millisecond)
	m.ObserveRejected("parse-logs")
	m.ObserveSource("api", false)
	m.ObserveSource("fallback", true)
	m.ObserveMissing([]string{"intel-table", "intel-table"})
	m.ObserveCommand("dispatched")
	m.SetKPIs(models.KPIs{IntelCount: 128, Alerts: 13})

	assert.Equal(t, 1.0, value(t, m.RunsTotal.WithLabelValues("fetch-intel", "success")))
	assert.Equal(t, 1.0, value(t, m.RunsTotal.WithLabelValues("fetch-intel", "failure")))
	assert.Equal(t, 1.0, value(t, m.RejectedTotal.WithLabelValues("parse-logs")))
	assert.Equal(t, 1.0, value(t, m.BootstrapSources.WithLabelValues("api", "failure")))
	assert.Equal(t, 2.0, value(t, m.MissingTargets.WithLabelValues("intel-table")))
	assert.Equal(t, 1.0, value(t, m.CommandsTotal.WithLabelValues("dispatched")))
	assert.Equal(t, 128.0, value(t, m.KPI.WithLabelValues("intel_count")))
	assert.Equal(t, 13.0, value(t, m.KPI.WithLabelValues("alerts")))
}

func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, c.Write(&out))
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	}
	t.Fatalf("unsupported metric type")
	return 0
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRun("x", nil, 0)
	m.ObserveRejected("x")
	m.ObserveSource("x", true)
	m.ObserveMissing([]string{"x"})
	m.ObserveCommand("x")
	m.SetKPIs(models.KPIs{})
}
