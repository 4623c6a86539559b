package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics bundles Prometheus collectors for the HTTP server. All methods are
// no-ops on a nil receiver.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RankDuration    *prometheus.HistogramVec
	CacheLookups    *prometheus.CounterVec
	CatalogBooks    prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nextbook_http_requests_total",
			Help: "HTTP requests served, by route and status code.",
		}, []string{"route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nextbook_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		RankDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nextbook_rank_duration_seconds",
			Help:    "Time spent ranking the catalog, by mode.",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"by"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nextbook_recommendation_cache_lookups_total",
			Help: "Recommendation cache lookups by result.",
		}, []string{"result"}),
		CatalogBooks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nextbook_catalog_books",
			Help: "Books held in the loaded catalog.",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDuration,
		m.RankDuration,
		m.CacheLookups,
		m.CatalogBooks,
	)
	return m
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, status).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveRank records the duration of one ranking call.
func (m *Metrics) ObserveRank(by string, d time.Duration) {
	if m == nil {
		return
	}
	m.RankDuration.WithLabelValues(by).Observe(d.Seconds())
}

// CacheHit counts a recommendation served from the cache.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("hit").Inc()
}

// CacheMiss counts a recommendation that had to be ranked.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// SetCatalogSize records the number of books served.
func (m *Metrics) SetCatalogSize(n int) {
	if m == nil {
		return
	}
	m.CatalogBooks.Set(float64(n))
}
