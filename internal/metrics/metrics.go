// Package metrics exposes bee's Prometheus instruments.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds one registry and the instruments bee updates.
type Metrics struct {
	registry *prometheus.Registry

	Produced       prometheus.Counter
	Consumed       prometheus.Counter
	Flagged        prometheus.Counter
	EmptyPolls     prometheus.Counter
	StaleProduces  prometheus.Counter
	Drained        prometheus.Counter
	RoleChanges    *prometheus.CounterVec
	Leader         prometheus.Gauge
	StoreReadBytes prometheus.Counter
	StoreCommits   prometheus.Histogram
}

// New registers all instruments on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Produced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bee", Name: "messages_produced_total",
			Help: "Messages pushed onto the work queue by this process.",
		}),
		Consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bee", Name: "messages_consumed_total",
			Help: "Messages popped from the work queue by this process.",
		}),
		Flagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bee", Name: "messages_flagged_total",
			Help: "Consumed messages routed to the error queue.",
		}),
		EmptyPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bee", Name: "empty_polls_total",
			Help: "Reader cycles that found the work queue empty.",
		}),
		StaleProduces: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bee", Name: "stale_produces_total",
			Help: "Writer cycles skipped because the lease was lost.",
		}),
		Drained: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bee", Name: "errors_drained_total",
			Help: "Messages removed from the error queue by drains.",
		}),
		RoleChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bee", Name: "role_changes_total",
			Help: "Transitions into each role.",
		}, []string{"role"}),
		Leader: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bee", Name: "leader",
			Help: "1 while this process holds the writer lease.",
		}),
		StoreReadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bee", Subsystem: "pebble", Name: "read_bytes_total",
			Help: "Bytes read from the embedded store.",
		}),
		StoreCommits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bee", Subsystem: "pebble", Name: "commit_seconds",
			Help:    "Embedded store batch commit latency.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	reg.MustRegister(
		m.Produced, m.Consumed, m.Flagged, m.EmptyPolls, m.StaleProduces,
		m.Drained, m.RoleChanges, m.Leader, m.StoreReadBytes, m.StoreCommits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveRead implements pebblestore.MetricsHook.
func (m *Metrics) ObserveRead(_ time.Duration, bytes int) {
	m.StoreReadBytes.Add(float64(bytes))
}

// ObserveBatchCommit implements pebblestore.MetricsHook.
func (m *Metrics) ObserveBatchCommit(elapsed time.Duration, _ int, _ int) {
	m.StoreCommits.Observe(elapsed.Seconds())
}

// SetLeader records the current role.
func (m *Metrics) SetLeader(leader bool) {
	if leader {
		m.Leader.Set(1)
		m.RoleChanges.WithLabelValues("writer").Inc()
		return
	}
	m.Leader.Set(0)
	m.RoleChanges.WithLabelValues("reader").Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
