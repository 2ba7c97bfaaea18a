package backend

import (
	"sync"
	"time"
)

// Transport identifies which backend served a call.
type Transport string

const (
	// TransportModern is the resource-oriented REST backend.
	TransportModern Transport = "modern"
	// TransportLegacy is the single-endpoint script backend.
	TransportLegacy Transport = "legacy"
	// TransportDegraded marks substitute data served without any backend.
	TransportDegraded Transport = "degraded"
)

// Health is the sticky health record of one transport.
type Health struct {
	Transport     Transport
	Healthy       bool
	LastFailureAt time.Time
}

// healthTracker guards the per-transport health records. Only the Invoker
// mutates them, after a call succeeds or exhausts its attempts.
type healthTracker struct {
	mu      sync.Mutex
	records map[Transport]*Health
	now     func() time.Time
}

func newHealthTracker(now func() time.Time) *healthTracker {
	return &healthTracker{
		records: map[Transport]*Health{
			TransportModern: {Transport: TransportModern, Healthy: true},
			TransportLegacy: {Transport: TransportLegacy, Healthy: true},
		},
		now: now,
	}
}

func (h *healthTracker) markHealthy(t Transport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.records[t]; ok {
		r.Healthy = true
	}
}

func (h *healthTracker) markUnhealthy(t Transport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.records[t]; ok {
		r.Healthy = false
		r.LastFailureAt = h.now()
	}
}

// shouldAttempt reports whether a call should try the transport. Healthy
// transports are always attempted; unhealthy ones are skipped until the
// probe cooldown has elapsed, after which the next request acts as the
// re-probe.
func (h *healthTracker) shouldAttempt(t Transport, cooldown time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.records[t]
	if !ok {
		return false
	}
	if r.Healthy {
		return true
	}
	return h.now().Sub(r.LastFailureAt) >= cooldown
}

// snapshot returns a copy of the health record for observability.
func (h *healthTracker) snapshot(t Transport) Health {
	h.mu.Lock()
	defer h.mu.Unlock()

	if r, ok := h.records[t]; ok {
		return *r
	}
	return Health{Transport: t}
}
