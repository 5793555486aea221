// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors used across the service. Components receive
// the pieces they need rather than reaching for globals.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	AuditWriteFailures  prometheus.Counter
	TATBreaches         prometheus.Gauge
	SpecimenTransitions *prometheus.CounterVec
	CriticalResults     prometheus.Counter
	QCOutcomes          *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lims_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lims_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuditWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lims_audit_write_failures_total",
			Help: "Audit entries that could not be persisted",
		}),
		TATBreaches: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lims_tat_breaches",
			Help: "Specimens past their turnaround deadline and not yet approved",
		}),
		SpecimenTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lims_specimen_transitions_total",
				Help: "Specimen status changes by target status",
			},
			[]string{"status"},
		),
		CriticalResults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lims_critical_results_total",
			Help: "Results saved with at least one critical parameter",
		}),
		QCOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lims_qc_outcomes_total",
				Help: "QC measurements by outcome",
			},
			[]string{"status"},
		),
	}

	m.registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.AuditWriteFailures,
		m.TATBreaches,
		m.SpecimenTransitions,
		m.CriticalResults,
		m.QCOutcomes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
