// Package monitoring provides Prometheus metrics and health endpoints for
// programs built on the Nominatim client.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/NERVsystems/nominatim/pkg/nominatim"
)

const (
	// Service name for metrics
	ServiceName = "nominatim"
)

var (
	// Request metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nominatim_requests_total",
			Help: "Total number of Nominatim API requests",
		},
		[]string{"operation", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nominatim_request_duration_seconds",
			Help:    "Nominatim API request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"operation"},
	)

	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nominatim_requests_in_flight",
			Help: "Number of Nominatim API requests currently in flight",
		},
	)

	// Rate limiting metrics
	RateLimitWaitTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nominatim_rate_limit_wait_duration_seconds",
			Help:    "Time spent waiting for rate limits",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"service"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nominatim_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nominatim_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)
)

// Helper functions for common metric updates

// RecordRequest records one completed API round trip.
func RecordRequest(operation string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	RequestsTotal.WithLabelValues(operation, status).Inc()
	RequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit for the given cache type.
func RecordCacheHit(cacheType string) {
	CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss for the given cache type.
func RecordCacheMiss(cacheType string) {
	CacheMisses.WithLabelValues(cacheType).Inc()
}

// ObserveRateLimitWait records time spent blocked on a rate limiter.
func ObserveRateLimitWait(service string, wait time.Duration) {
	RateLimitWaitTime.WithLabelValues(service).Observe(wait.Seconds())
}

// Hooks returns client monitoring hooks backed by the Prometheus metrics
// above, suitable for nominatim.Client.SetMonitoringHooks.
func Hooks() *nominatim.MonitoringHooks {
	return &nominatim.MonitoringHooks{
		OnRequest: func(operation string) {
			RequestsInFlight.Inc()
		},
		OnResponse: func(operation string, duration time.Duration, success bool) {
			RequestsInFlight.Dec()
			RecordRequest(operation, duration, success)
		},
	}
}
