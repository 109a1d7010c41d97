// Package metrics exposes Prometheus collectors for the supervisor service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchRequestsTotal        *prometheus.CounterVec
	fetchDurationSeconds      prometheus.Histogram
	categoriesTotal           prometheus.Counter
	storiesTotal              *prometheus.CounterVec
	pipelineActiveWorkers     prometheus.Gauge
	httpRequestsTotal         *prometheus.CounterVec
	httpRequestDurationSecond *prometheus.HistogramVec
	schedulerSweepsTotal      *prometheus.CounterVec
	schedulerEventsTotal      prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supervisor_fetch_requests_total",
				Help: "Total number of fetch pipeline runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "supervisor_fetch_duration_seconds",
				Help:    "Histogram of end-to-end fetch pipeline latencies.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		)

		categoriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "supervisor_categories_total",
				Help: "Total number of categories produced by grouping rounds.",
			},
		)

		storiesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supervisor_stories_total",
				Help: "Total number of stories produced, labeled by kind (clustered or noise).",
			},
			[]string{"kind"},
		)

		pipelineActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "supervisor_pipeline_active_workers",
				Help: "Number of fan-out workers currently processing a category.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSecond = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		schedulerSweepsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supervisor_scheduler_sweeps_total",
				Help: "Total number of scheduler sweep attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		schedulerEventsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "supervisor_scheduler_events_published_total",
				Help: "Total number of schedule entries published to the broadcast channel.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one completed fetch run.
func ObserveFetch(outcome string, duration time.Duration) {
	fetchRequestsTotal.WithLabelValues(outcome).Inc()
	fetchDurationSeconds.Observe(duration.Seconds())
}

// ObserveCategories adds to the produced-category counter.
func ObserveCategories(n int) {
	categoriesTotal.Add(float64(n))
}

// ObserveStories adds to the produced-story counter for the given kind.
func ObserveStories(kind string, n int) {
	storiesTotal.WithLabelValues(kind).Add(float64(n))
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	pipelineActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	pipelineActiveWorkers.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSecond.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveSweep increments the scheduler sweep counter for the given outcome.
func ObserveSweep(outcome string) {
	schedulerSweepsTotal.WithLabelValues(outcome).Inc()
}

// ObserveEventPublished increments the published-events counter.
func ObserveEventPublished() {
	schedulerEventsTotal.Inc()
}
