package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry           *prometheus.Registry
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    prometheus.Histogram
	RetriesTotal       prometheus.Counter
	ErrorsTotal        *prometheus.CounterVec
	PagesTotal         *prometheus.CounterVec
	ItemsTotal         *prometheus.CounterVec
	FallbackTotal      prometheus.Counter
	PersistErrorsTotal prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total HTTP attempts issued by the scraper, by outcome.",
		},
		[]string{"outcome"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP attempt latency, pacing delay excluded.",
			Buckets: prometheus.DefBuckets,
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of attempts beyond the first for a URL.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of failed attempts by error type.",
		},
		[]string{"error_type"},
	)
	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_pages_total",
			Help: "Listing pages processed, by status (ok, empty, fallback, failed).",
		},
		[]string{"status"},
	)
	items := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_items_total",
			Help: "Records emitted, by kind (real, synthetic).",
		},
		[]string{"kind"},
	)
	fallback := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_fallback_batches_total",
			Help: "Pages answered with a synthetic placeholder batch.",
		},
	)
	persistErrors := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_persist_errors_total",
			Help: "Records dropped because the store write failed.",
		},
	)

	registry.MustRegister(requests, requestDuration, retries, errorsTotal, pages, items, fallback, persistErrors)

	return &Metrics{
		Registry:           registry,
		RequestsTotal:      requests,
		RequestDuration:    requestDuration,
		RetriesTotal:       retries,
		ErrorsTotal:        errorsTotal,
		PagesTotal:         pages,
		ItemsTotal:         items,
		FallbackTotal:      fallback,
		PersistErrorsTotal: persistErrors,
	}
}

// IncRequest increments the requests counter for an outcome.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records an HTTP attempt duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
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

// IncPage counts one processed page.
func (m *Metrics) IncPage(status string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(status).Inc()
}

// AddItems counts emitted records.
func (m *Metrics) AddItems(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ItemsTotal.WithLabelValues(kind).Add(float64(n))
}

// IncFallback counts one synthetic batch.
func (m *Metrics) IncFallback() {
	if m == nil {
		return
	}
	m.FallbackTotal.Inc()
}

// IncPersistError counts one dropped record.
func (m *Metrics) IncPersistError() {
	if m == nil {
		return
	}
	m.PersistErrorsTotal.Inc()
}
