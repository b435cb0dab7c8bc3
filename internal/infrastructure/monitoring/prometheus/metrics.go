// Package prometheus registers the application metrics and serves the
// scrape endpoint.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service exports.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ValuationRunsTotal   *prometheus.CounterVec
	ValuationRunDuration prometheus.Histogram
	ComparablesSelected  prometheus.Histogram
	ValuationConfidence  *prometheus.CounterVec

	FlipAnalysesTotal *prometheus.CounterVec
	DealScores        prometheus.Histogram

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	EventsPublishedTotal *prometheus.CounterVec
	EventsConsumedTotal  *prometheus.CounterVec

	DBQueryDuration *prometheus.HistogramVec
}

var httpDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// NewMetrics builds and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "propsignal_http_requests_total",
		Help: "Total HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "propsignal_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: httpDurationBuckets,
	}, []string{"method", "route"})

	m.ValuationRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "propsignal_valuation_runs_total",
		Help: "Valuation engine runs by outcome.",
	}, []string{"outcome"})

	m.ValuationRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "propsignal_valuation_run_duration_seconds",
		Help:    "End-to-end valuation run latency including pool load.",
		Buckets: httpDurationBuckets,
	})

	m.ComparablesSelected = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "propsignal_comparables_selected",
		Help:    "Comparables selected per valuation run.",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 10, 15, 20},
	})

	m.ValuationConfidence = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "propsignal_valuation_confidence_total",
		Help: "Valuation runs by confidence level.",
	}, []string{"level"})

	m.FlipAnalysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "propsignal_flip_analyses_total",
		Help: "Flip analyses by verdict.",
	}, []string{"verdict"})

	m.DealScores = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "propsignal_deal_scores",
		Help:    "Composite deal score distribution.",
		Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	m.CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "propsignal_cache_hits_total",
		Help: "Report cache hits.",
	})

	m.CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "propsignal_cache_misses_total",
		Help: "Report cache misses.",
	})

	m.EventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "propsignal_events_published_total",
		Help: "Events published by type and outcome.",
	}, []string{"event_type", "outcome"})

	m.EventsConsumedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "propsignal_events_consumed_total",
		Help: "Events consumed by type and outcome.",
	}, []string{"event_type", "outcome"})

	m.DBQueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "propsignal_db_query_duration_seconds",
		Help:    "Database query latency by operation.",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
	}, []string{"operation"})

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ValuationRunsTotal,
		m.ValuationRunDuration,
		m.ComparablesSelected,
		m.ValuationConfidence,
		m.FlipAnalysesTotal,
		m.DealScores,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.EventsPublishedTotal,
		m.EventsConsumedTotal,
		m.DBQueryDuration,
	)
	return m
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one completed HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, route, status string, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveValuationRun records one valuation run.
func (m *Metrics) ObserveValuationRun(outcome, confidence string, selected int, elapsed time.Duration) {
	m.ValuationRunsTotal.WithLabelValues(outcome).Inc()
	m.ValuationRunDuration.Observe(elapsed.Seconds())
	m.ComparablesSelected.Observe(float64(selected))
	if confidence != "" {
		m.ValuationConfidence.WithLabelValues(confidence).Inc()
	}
}

// ObserveFlipAnalysis records one flip analysis.
func (m *Metrics) ObserveFlipAnalysis(verdict string, score float64) {
	m.FlipAnalysesTotal.WithLabelValues(verdict).Inc()
	m.DealScores.Observe(score)
}
