package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/taskdeck/taskdeck/internal/backend"
)

// Health status constants for health check responses.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusDegraded     = "degraded"
	healthStatusShuttingDown = "shutting down"
)

// HealthChecker provides health check endpoints for the metrics listener.
type HealthChecker struct {
	// ready indicates whether the server is ready to receive traffic
	ready atomic.Bool
	// serverContext provides access to dependencies for health checks
	serverContext *ServerContext
	// startTime tracks when the server started
	startTime time.Time
}

// NewHealthChecker creates a new HealthChecker.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

func (h *HealthChecker) isServerShuttingDown() bool {
	return h.serverContext != nil && h.serverContext.IsShutdown()
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Uptime string            `json:"uptime,omitempty"`
}

// LivenessHandler returns an HTTP handler for the /healthz endpoint.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler returns an HTTP handler for the /readyz endpoint. The
// per-transport backend health is reported as informational checks; a
// degraded backend does not fail readiness because the access layer keeps
// serving through fallback or substitute data.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		checks := make(map[string]string)
		allOk := true

		if !h.ready.Load() {
			checks["ready"] = healthStatusNotReady
			allOk = false
		} else {
			checks["ready"] = healthStatusOK
		}

		if h.isServerShuttingDown() {
			checks["shutdown"] = healthStatusShuttingDown
			allOk = false
		} else {
			checks["shutdown"] = healthStatusOK
		}

		if inv := h.invoker(); inv != nil {
			for _, t := range []backend.Transport{backend.TransportModern, backend.TransportLegacy} {
				if inv.Health(t).Healthy {
					checks[string(t)] = healthStatusOK
				} else {
					checks[string(t)] = healthStatusDegraded
				}
			}
		}

		response := HealthResponse{
			Checks: checks,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		}

		if allOk {
			response.Status = healthStatusOK
			w.WriteHeader(http.StatusOK)
		} else {
			response.Status = healthStatusNotReady
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}

func (h *HealthChecker) invoker() *backend.Invoker {
	if h.serverContext == nil {
		return nil
	}
	return h.serverContext.Invoker()
}

// RegisterHealthEndpoints registers health check endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
}
