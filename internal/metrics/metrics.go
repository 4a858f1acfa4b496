// Package metrics exposes lernpack run counters as Prometheus collectors.
// The CLI is short lived, so counters are written to a node-exporter
// textfile instead of being scraped.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the run collectors. It implements lernpack.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal         *prometheus.CounterVec
	PromptsTotal      *prometheus.CounterVec
	GateFailuresTotal *prometheus.CounterVec
	PacksTotal        *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg gets a fresh registry.
//
// Metrics:
//   - lernpack_runs_total{outcome}
//   - lernpack_prompts_generated_total{scenario}
//   - lernpack_gate_failures_total{rule}
//   - lernpack_packs_total{result}
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lernpack_runs_total",
				Help: "Ingestion runs by outcome",
			},
			[]string{"outcome"},
		),
		PromptsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lernpack_prompts_generated_total",
				Help: "Draft prompts generated",
			},
			[]string{"scenario"},
		),
		GateFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lernpack_gate_failures_total",
				Help: "Quality gate failures by rule",
			},
			[]string{"rule"},
		),
		PacksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lernpack_packs_total",
				Help: "Gated packs by result",
			},
			[]string{"result"},
		),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RunFinished(outcome string) {
	m.RunsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PromptsGenerated(scenario string, n int) {
	m.PromptsTotal.WithLabelValues(scenario).Add(float64(n))
}

func (m *Metrics) GateFailure(rule string) {
	m.GateFailuresTotal.WithLabelValues(rule).Inc()
}

func (m *Metrics) PackGated(passed bool) {
	result := "failed"
	if passed {
		result = "passed"
	}
	m.PacksTotal.WithLabelValues(result).Inc()
}

// WriteFile writes all collectors in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
