// Package metrics exposes log store activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alfredjeanlab/guardian/internal/model"
)

const namespace = "guardian"

// Metrics records store and feed activity on its own registry. It satisfies
// logstore.Recorder and feed.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	ingested *prometheus.CounterVec
	rejected *prometheus.CounterVec
	evicted  prometheus.Counter
	entries  prometheus.Gauge
}

// New creates the metric set and registers it, together with the Go runtime
// and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.ingested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_ingested_total",
		Help:      "Classification events accepted into the log, by severity",
	}, []string{"severity"})
	m.rejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_rejected_total",
		Help:      "Classification events dropped before ingestion, by reason",
	}, []string{"reason"})
	m.evicted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entries_evicted_total",
		Help:      "Log entries dropped from the tail when the cap was exceeded",
	})
	m.entries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "log_entries",
		Help:      "Entries currently held in the log",
	})

	// Pre-create the severity series so both appear at zero.
	for _, sev := range []model.Severity{model.SeverityInfo, model.SeverityWarning} {
		m.ingested.WithLabelValues(sev.String())
	}

	m.registry.MustRegister(
		m.ingested, m.rejected, m.evicted, m.entries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Ingested(sev model.Severity) {
	m.ingested.WithLabelValues(sev.String()).Inc()
}

func (m *Metrics) Rejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) Evicted(n int) {
	m.evicted.Add(float64(n))
}

func (m *Metrics) Size(n int) {
	m.entries.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
