// Package metrics exposes Prometheus metrics of lint runs.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CZERTAINLY/golinter/internal/model"
)

const namespace = "golinter"

const (
	OutcomeOK        = "ok"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeSkipped   = "skipped"
)

type Metrics struct {
	registry   *prometheus.Registry
	runs       *prometheus.CounterVec
	superseded prometheus.Counter
	findings   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Lint runs by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		superseded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_superseded_total",
				Help:      "Lint runs cancelled because a newer run started",
			},
		),
		findings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "findings_total",
				Help:      "Findings reported by lint tools",
			},
			[]string{"tool", "severity"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of lint tool executions",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"tool"},
		),
	}
	m.registry.MustRegister(
		m.runs,
		m.superseded,
		m.findings,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Superseded() {
	if m == nil {
		return
	}
	m.superseded.Inc()
}

func (m *Metrics) Skipped(tool string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(tool, OutcomeSkipped).Inc()
}

// Finished records a run which reached the tool.
func (m *Metrics) Finished(tool, outcome string, elapsed time.Duration, findings []model.Finding) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(tool, outcome).Inc()
	m.duration.WithLabelValues(tool).Observe(elapsed.Seconds())
	for _, f := range findings {
		m.findings.WithLabelValues(tool, string(f.Severity)).Inc()
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
