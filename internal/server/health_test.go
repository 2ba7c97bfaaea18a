package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(nil)

	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHealthChecker_ReadinessNotReady(t *testing.T) {
	h := NewHealthChecker(nil)
	h.SetReady(false)

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not ready", resp.Status)
	assert.Equal(t, "not ready", resp.Checks["ready"])
}

func TestHealthChecker_ReadinessAfterShutdown(t *testing.T) {
	sc := NewServerContext(t.Context(), Services{})
	h := NewHealthChecker(sc)
	require.NoError(t, sc.Shutdown())

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "shutting down", resp.Checks["shutdown"])
}
