package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	validationsTotal      *prometheus.CounterVec
	validationCacheEvents *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "habitloop_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "habitloop_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "habitloop_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		validationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "habitloop_validations_total",
			Help: "Validation attempts by proof type and outcome.",
		}, []string{"validation_type", "outcome"})

		validationCacheEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "habitloop_validation_cache_events_total",
			Help: "Validation cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			validationsTotal,
			validationCacheEvents,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// ValidationsTotal exposes the validation outcome counter. Outcomes are
// "approved", "rejected" and "failed".
func ValidationsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return validationsTotal
}

// ValidationCacheEvents exposes the cache lookup counter. Results are "hit"
// and "miss".
func ValidationCacheEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return validationCacheEvents
}
