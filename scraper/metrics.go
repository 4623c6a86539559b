package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the harvester. All methods are
// no-ops on a nil receiver.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	RecordsTotal    prometheus.Counter
	PagesTotal      prometheus.Counter
	RetriesTotal    prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nextbook_harvest_requests_total",
			Help: "HTTP requests issued by the harvester, by phase.",
		}, []string{"phase"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nextbook_harvest_request_duration_seconds",
			Help:    "Latency of harvester requests.",
			Buckets: prometheus.DefBuckets,
		}),
		RecordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nextbook_harvest_records_total",
			Help: "Catalog records extracted and sent to the pipeline.",
		}),
		PagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nextbook_harvest_pages_total",
			Help: "Listing pages followed through pagination links.",
		}),
		RetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nextbook_harvest_retries_total",
			Help: "Retry attempts scheduled.",
		}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nextbook_harvest_errors_total",
			Help: "Harvester errors by type.",
		}, []string{"error_type"}),
	}

	m.Registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RecordsTotal,
		m.PagesTotal,
		m.RetriesTotal,
		m.ErrorsTotal,
	)
	return m
}

// IncRequest increments the requests counter for a phase.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncItems counts one extracted record.
func (m *Metrics) IncItems() {
	if m == nil {
		return
	}
	m.RecordsTotal.Inc()
}

// IncPages counts one followed pagination link.
func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.PagesTotal.Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
