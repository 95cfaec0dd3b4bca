package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SearchMetrics holds the Prometheus instruments updated by the worker pool.
// Each instance owns its registry, so several searches (or tests) never
// collide on global registration.
type SearchMetrics struct {
	registry       *prometheus.Registry
	chunks         prometheus.Counter
	pairs          prometheus.Counter
	workerFailures prometheus.Counter
	activeWorkers  prometheus.Gauge
	searchDuration prometheus.Histogram
}

// NewSearchMetrics creates and registers the search instruments together
// with the Go runtime and process collectors.
func NewSearchMetrics() *SearchMetrics {
	m := &SearchMetrics{
		registry: prometheus.NewRegistry(),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "factorcalc_chunks_processed_total",
			Help: "Number of work items scanned by workers.",
		}),
		pairs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "factorcalc_factor_pairs_found_total",
			Help: "Number of factor pairs found.",
		}),
		workerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "factorcalc_worker_failures_total",
			Help: "Number of workers that stopped on an unexpected failure.",
		}),
		activeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "factorcalc_active_workers",
			Help: "Number of workers currently running.",
		}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "factorcalc_search_duration_seconds",
			Help:    "Wall-clock duration of factor searches, including interrupted and partial ones.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
	}
	m.registry.MustRegister(
		m.chunks,
		m.pairs,
		m.workerFailures,
		m.activeWorkers,
		m.searchDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *SearchMetrics) Registry() *prometheus.Registry { return m.registry }

// ChunkProcessed records one scanned work item and the pairs it yielded.
func (m *SearchMetrics) ChunkProcessed(pairs int) {
	if m == nil {
		return
	}
	m.chunks.Inc()
	m.pairs.Add(float64(pairs))
}

// WorkerStarted increments the active worker gauge.
func (m *SearchMetrics) WorkerStarted() {
	if m == nil {
		return
	}
	m.activeWorkers.Inc()
}

// WorkerStopped decrements the active worker gauge, counting a failure when
// failed is true.
func (m *SearchMetrics) WorkerStopped(failed bool) {
	if m == nil {
		return
	}
	m.activeWorkers.Dec()
	if failed {
		m.workerFailures.Inc()
	}
}

// ObserveSearch records the duration of a search, whether it scanned every
// work item or was cut short by cancellation, timeout or a worker failure.
func (m *SearchMetrics) ObserveSearch(d time.Duration) {
	if m == nil {
		return
	}
	m.searchDuration.Observe(d.Seconds())
}

// Handler returns an http.Handler serving the registry in the Prometheus
// exposition format.
func (m *SearchMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
