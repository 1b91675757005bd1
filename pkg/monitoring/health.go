package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Probe checks whether an upstream dependency is reachable.
type Probe func(ctx context.Context) error

// HealthChecker manages service health reporting.
type HealthChecker struct {
	serviceName string
	version     string
	startTime   time.Time

	mu     sync.RWMutex
	probes map[string]Probe
}

// ServiceHealth is the health endpoint response body.
type ServiceHealth struct {
	Service       string                 `json:"service"`
	Version       string                 `json:"version"`
	Status        string                 `json:"status"` // "healthy" or "degraded"
	UptimeSeconds int64                  `json:"uptime_seconds"`
	StartTime     time.Time              `json:"start_time"`
	Connections   map[string]ConnStatus  `json:"connections,omitempty"`
	Metrics       map[string]interface{} `json:"metrics,omitempty"`
}

// ConnStatus is the reported state of one upstream dependency.
type ConnStatus struct {
	Status    string `json:"status"` // "connected" or "error"
	LatencyMs int64  `json:"latency_ms,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// NewHealthChecker creates a new health checker instance.
func NewHealthChecker(serviceName, version string) *HealthChecker {
	return &HealthChecker{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
		probes:      make(map[string]Probe),
	}
}

// AddProbe registers a named upstream probe, run on each health request.
func (h *HealthChecker) AddProbe(name string, probe Probe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes[name] = probe
}

// GetHealth runs all probes and returns the current health status.
func (h *HealthChecker) GetHealth(ctx context.Context) ServiceHealth {
	h.mu.RLock()
	probes := make(map[string]Probe, len(h.probes))
	for name, probe := range h.probes {
		probes[name] = probe
	}
	h.mu.RUnlock()

	status := "healthy"
	connections := make(map[string]ConnStatus, len(probes))

	for name, probe := range probes {
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		start := time.Now()
		err := probe(probeCtx)
		cancel()

		conn := ConnStatus{
			Status:    "connected",
			LatencyMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			conn.Status = "error"
			conn.LastError = err.Error()
			status = "degraded"
		}
		connections[name] = conn
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return ServiceHealth{
		Service:       h.serviceName,
		Version:       h.version,
		Status:        status,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		StartTime:     h.startTime,
		Connections:   connections,
		Metrics: map[string]interface{}{
			"goroutines":      runtime.NumGoroutine(),
			"memory_alloc_mb": m.Alloc / 1024 / 1024,
			"gc_runs":         m.NumGC,
		},
	}
}

// HealthHandler returns an HTTP handler for health checks.
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.GetHealth(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "healthy" {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		if err := json.NewEncoder(w).Encode(health); err != nil {
			http.Error(w, fmt.Sprintf("Failed to encode health response: %v", err), http.StatusInternalServerError)
		}
	}
}

// ReadinessHandler returns a simple readiness check.
func (h *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "ready"}); err != nil {
			http.Error(w, fmt.Sprintf("Failed to encode readiness response: %v", err), http.StatusInternalServerError)
		}
	}
}

// LivenessHandler returns a simple liveness check.
func (h *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "alive"}); err != nil {
			http.Error(w, fmt.Sprintf("Failed to encode liveness response: %v", err), http.StatusInternalServerError)
		}
	}
}

// NewServer builds an HTTP server exposing Prometheus metrics and the
// health endpoints on addr. The caller is responsible for ListenAndServe
// and Shutdown.
func NewServer(addr string, hc *HealthChecker, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", hc.HealthHandler())
	mux.HandleFunc("/ready", hc.ReadinessHandler())
	mux.HandleFunc("/live", hc.LivenessHandler())

	logger.Info("monitoring endpoints configured",
		"addr", addr,
		"endpoints", []string{"/metrics", "/health", "/ready", "/live"},
	)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
