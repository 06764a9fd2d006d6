package scraper

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles Prometheus collectors for the scrape service.
type Metrics struct {
	Registry             *prometheus.Registry
	RequestsTotal        *prometheus.CounterVec
	FetchDuration        prometheus.Histogram
	ItemsExtractedTotal  prometheus.Counter
	ItemsSkippedTotal    prometheus.Counter
	ErrorsTotal          *prometheus.CounterVec
	PersistFailuresTotal prometheus.Counter
	MirrorFailuresTotal  prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Scrape requests handled, by outcome.",
		},
		[]string{"outcome"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_fetch_duration_seconds",
			Help:    "Latency of outbound page fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	extracted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_items_extracted_total",
			Help: "Book records extracted from fetched pages.",
		},
	)
	skipped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_items_skipped_total",
			Help: "Malformed book entries skipped during extraction.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Fetch errors by type.",
		},
		[]string{"error_type"},
	)
	persistFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_persist_failures_total",
			Help: "Batches that could not be written to the CSV store.",
		},
	)
	mirrorFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_mirror_failures_total",
			Help: "Mirror sink writes that failed.",
		},
	)

	registry.MustRegister(requests, fetchDuration, extracted, skipped, errorsTotal, persistFailures, mirrorFailures)

	return &Metrics{
		Registry:             registry,
		RequestsTotal:        requests,
		FetchDuration:        fetchDuration,
		ItemsExtractedTotal:  extracted,
		ItemsSkippedTotal:    skipped,
		ErrorsTotal:          errorsTotal,
		PersistFailuresTotal: persistFailures,
		MirrorFailuresTotal:  mirrorFailures,
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// IncRequest counts a finished request under its outcome label.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records a fetch duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// AddItems adds to the extracted and skipped counters.
func (m *Metrics) AddItems(extracted, skipped int) {
	if m == nil {
		return
	}
	m.ItemsExtractedTotal.Add(float64(extracted))
	m.ItemsSkippedTotal.Add(float64(skipped))
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncPersistFailure counts a batch the store could not save.
func (m *Metrics) IncPersistFailure() {
	if m == nil {
		return
	}
	m.PersistFailuresTotal.Inc()
}

// AddMirrorFailures counts failed mirror writes.
func (m *Metrics) AddMirrorFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.MirrorFailuresTotal.Add(float64(n))
}
