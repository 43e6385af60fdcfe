// Package metrics holds the Prometheus collectors for the dashboard engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"cybersentinel/pkg/models"
)

// Metrics holds all the Prometheus metrics for the engine.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RejectedTotal    *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	BootstrapSources *prometheus.CounterVec
	MissingTargets   *prometheus.CounterVec
	CommandsTotal    *prometheus.CounterVec
	KPI              *prometheus.GaugeVec
}

// New registers the collectors with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cybersentinel_workflow_runs_total",
			Help: "Workflow steps completed, by action and outcome",
		}, []string{"action", "outcome"}),
		RejectedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cybersentinel_workflow_rejected_total",
			Help: "Triggers rejected because a step was in flight",
		}, []string{"action"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cybersentinel_workflow_duration_seconds",
			Help:    "Wall time of workflow steps including the simulated delay",
			Buckets: []float64{0.01, 0.1, 0.25, 0.5, 0.75, 1, 1.5, 2.5, 5},
		}, []string{"action"}),
		BootstrapSources: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cybersentinel_bootstrap_source_attempts_total",
			Help: "Bootstrap source attempts, by source and outcome",
		}, []string{"source", "outcome"}),
		MissingTargets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cybersentinel_render_missing_targets_total",
			Help: "Render targets skipped because no sink had them",
		}, []string{"target"}),
		CommandsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cybersentinel_commands_total",
			Help: "Queued commands processed, by outcome",
		}, []string{"outcome"}),
		KPI: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cybersentinel_kpi",
			Help: "Current dataset KPI counters",
		}, []string{"kpi"}),
	}
}

// ObserveRun records one finished step.
func (m *Metrics) ObserveRun(action string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(action, outcome(err == nil)).Inc()
	m.RunDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// ObserveRejected records a trigger refused by the busy gate.
func (m *Metrics) ObserveRejected(action string) {
	if m == nil {
		return
	}
	m.RejectedTotal.WithLabelValues(action).Inc()
}

// ObserveSource records one bootstrap source attempt.
func (m *Metrics) ObserveSource(source string, ok bool) {
	if m == nil {
		return
	}
	m.BootstrapSources.WithLabelValues(source, outcome(ok)).Inc()
}

// ObserveMissing records skipped render targets.
func (m *Metrics) ObserveMissing(ids []string) {
	if m == nil {
		return
	}
	for _, id := range ids {
		m.MissingTargets.WithLabelValues(id).Inc()
	}
}

// ObserveCommand records one queued command by outcome.
func (m *Metrics) ObserveCommand(result string) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(result).Inc()
}

// SetKPIs publishes the dataset counters.
func (m *Metrics) SetKPIs(k models.KPIs) {
	if m == nil {
		return
	}
	m.KPI.WithLabelValues("intel_count").Set(float64(k.IntelCount))
	m.KPI.WithLabelValues("ssh_events").Set(float64(k.SSHEvents))
	m.KPI.WithLabelValues("apache_events").Set(float64(k.ApacheEvents))
	m.KPI.WithLabelValues("alerts").Set(float64(k.Alerts))
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
