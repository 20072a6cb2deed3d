// Package metrics defines the Prometheus metric collectors used by the
// scoring service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Score outcomes recorded on ScoresTotal.
const (
	OutcomeScored     = "scored"
	OutcomeCommonWord = "common_word"
	OutcomeShortTerm  = "short_term"
	OutcomeError      = "error"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal       *prometheus.CounterVec
	HTTPRequestDuration     *prometheus.HistogramVec
	HTTPRequestsInFlight    prometheus.Gauge
	ScoresTotal             *prometheus.CounterVec
	ScoreLatency            prometheus.Histogram
	StatsCacheHitsTotal     *prometheus.CounterVec
	StatsCacheMissesTotal   *prometheus.CounterVec
	DocFrequencyDuration    prometheus.Histogram
	ScoreCacheHitsTotal     prometheus.Counter
	ScoreCacheMissesTotal   prometheus.Counter
	DocumentsIngestedTotal  *prometheus.CounterVec
	CollectionDocumentCount *prometheus.GaugeVec
}

// New creates all metrics and registers them with the default registerer.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		ScoresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tfidf_scores_total",
				Help: "Total score computations by outcome (scored, common_word, short_term, error).",
			},
			[]string{"outcome"},
		),
		ScoreLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tfidf_score_latency_seconds",
				Help:    "Score computation latency in seconds.",
				Buckets: []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		StatsCacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statistics_cache_hits_total",
				Help: "Statistics cache hits by family (n, df, f, wc).",
			},
			[]string{"family"},
		),
		StatsCacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statistics_cache_misses_total",
				Help: "Statistics cache misses by family (n, df, f, wc).",
			},
			[]string{"family"},
		),
		DocFrequencyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "document_frequency_duration_seconds",
				Help:    "Time spent enumerating a collection to compute a document frequency.",
				Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		ScoreCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "score_cache_hits_total",
				Help: "Total number of score cache hits.",
			},
		),
		ScoreCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "score_cache_misses_total",
				Help: "Total number of score cache misses.",
			},
		),
		DocumentsIngestedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_ingested_total",
				Help: "Total documents ingested by status.",
			},
			[]string{"status"},
		),
		CollectionDocumentCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "collection_document_count",
				Help: "Number of documents per collection.",
			},
			[]string{"collection_id"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ScoresTotal,
		m.ScoreLatency,
		m.StatsCacheHitsTotal,
		m.StatsCacheMissesTotal,
		m.DocFrequencyDuration,
		m.ScoreCacheHitsTotal,
		m.ScoreCacheMissesTotal,
		m.DocumentsIngestedTotal,
		m.CollectionDocumentCount,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
