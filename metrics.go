package frappekit

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the transport, the query
// cache, mutations and redirects. Every method is a no-op on a nil
// collector. It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	errorsTotal *prometheus.CounterVec

	rateLimiterTokens *prometheus.GaugeVec

	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	cacheSize         prometheus.Gauge
	deduplicationHits *prometheus.CounterVec
	queryRetries      *prometheus.CounterVec

	mutationsTotal *prometheus.CounterVec

	redirectsTotal *prometheus.CounterVec

	registerer prometheus.Registerer
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(registry)
	return &MetricsCollector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frappekit_requests_total",
				Help: "Total number of backend requests made",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "frappekit_request_duration_seconds",
				Help:    "Duration of backend requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "frappekit_requests_in_flight",
				Help: "Number of backend requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frappekit_errors_total",
				Help: "Total number of request errors by kind",
			},
			[]string{"kind", "method", "endpoint"},
		),
		rateLimiterTokens: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "frappekit_rate_limiter_tokens",
				Help: "Current number of available rate limiter tokens",
			},
			[]string{"name"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frappekit_query_cache_hits_total",
				Help: "Observations served from fresh cached data",
			},
			[]string{"resource", "op"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frappekit_query_cache_misses_total",
				Help: "Observations that started a fetch",
			},
			[]string{"resource", "op"},
		),
		cacheSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "frappekit_query_cache_entries",
				Help: "Current number of query cache entries",
			},
		),
		deduplicationHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frappekit_query_deduplication_hits_total",
				Help: "Callers that joined a fetch already in flight",
			},
			[]string{"resource", "op"},
		),
		queryRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frappekit_query_retries_total",
				Help: "Total number of query fetch retries",
			},
			[]string{"resource", "op"},
		),
		mutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frappekit_mutations_total",
				Help: "Total number of mutation runs by outcome",
			},
			[]string{"name", "outcome"},
		),
		redirectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frappekit_redirects_total",
				Help: "Total number of session redirects",
			},
			[]string{"source", "target"},
		),
		registerer: registry,
	}
}

// RecordRequest records request count and duration.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	statusCodeStr := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, statusCodeStr, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, statusCodeStr, endpoint).Observe(duration.Seconds())
}

// RecordRequestStart increments in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordError increments error counter by kind.
func (mc *MetricsCollector) RecordError(kind, method, endpoint string) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(kind, method, endpoint).Inc()
}

// RecordRateLimiterTokens sets available token gauge.
func (mc *MetricsCollector) RecordRateLimiterTokens(name string, tokens float64) {
	if mc == nil {
		return
	}

	mc.rateLimiterTokens.WithLabelValues(name).Set(tokens)
}

// RecordCacheHit increments cache hit counter.
func (mc *MetricsCollector) RecordCacheHit(resource, op string) {
	if mc == nil {
		return
	}

	mc.cacheHits.WithLabelValues(resource, op).Inc()
}

// RecordCacheMiss increments cache miss counter.
func (mc *MetricsCollector) RecordCacheMiss(resource, op string) {
	if mc == nil {
		return
	}

	mc.cacheMisses.WithLabelValues(resource, op).Inc()
}

// RecordCacheSize sets cache size gauge.
func (mc *MetricsCollector) RecordCacheSize(size int) {
	if mc == nil {
		return
	}

	mc.cacheSize.Set(float64(size))
}

// RecordDeduplicationHit increments de-dup hit counter.
func (mc *MetricsCollector) RecordDeduplicationHit(resource, op string) {
	if mc == nil {
		return
	}

	mc.deduplicationHits.WithLabelValues(resource, op).Inc()
}

// RecordQueryRetry increments the retry counter.
func (mc *MetricsCollector) RecordQueryRetry(resource, op string) {
	if mc == nil {
		return
	}

	mc.queryRetries.WithLabelValues(resource, op).Inc()
}

// RecordMutation counts a finished mutation run.
func (mc *MetricsCollector) RecordMutation(name, outcome string) {
	if mc == nil {
		return
	}

	mc.mutationsTotal.WithLabelValues(name, outcome).Inc()
}

// RecordRedirect counts a session redirect.
func (mc *MetricsCollector) RecordRedirect(source, target string) {
	if mc == nil {
		return
	}

	mc.redirectsTotal.WithLabelValues(source, target).Inc()
}

// Registerer exposes the registerer the metrics were created on.
func (mc *MetricsCollector) Registerer() prometheus.Registerer {
	if mc == nil {
		return nil
	}
	return mc.registerer
}
