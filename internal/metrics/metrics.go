// Package metrics counts project-creation outcomes with Prometheus collectors.
//
// deskboard is a short-lived process, so metrics are not scraped; they are
// written in text exposition format for the node_exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "deskboard"

// Run outcomes.
const (
	OutcomeCreated   = "created"
	OutcomeFailed    = "failed"
	OutcomeInvalid   = "invalid"
	OutcomeCancelled = "cancelled"
)

// Metrics holds the workflow collectors on a private registry.
// A nil *Metrics ignores every observation.
type Metrics struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	items         *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "project_create_runs_total",
			Help:      "Project creation attempts by outcome.",
		}, []string{"outcome"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "project_dependent_items_total",
			Help:      "Dependent resource submissions by phase and result.",
		}, []string{"phase", "result"}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "project_create_phase_seconds",
			Help:      "Wall time of each project creation phase.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
	}
	m.registry.MustRegister(m.runs, m.items, m.phaseDuration)
	return m
}

// Registry exposes the registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun counts one workflow run.
func (m *Metrics) ObserveRun(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

// ObserveItems counts the submissions of one phase.
func (m *Metrics) ObserveItems(phase string, succeeded, failed int) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(phase, "ok").Add(float64(succeeded))
	m.items.WithLabelValues(phase, "failed").Add(float64(failed))
}

// ObservePhase records how long a phase took.
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// WriteTextfile writes all metrics to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
