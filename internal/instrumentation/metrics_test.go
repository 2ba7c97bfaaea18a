package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func collectedMetricNames(t *testing.T, reader *sdkmetric.ManualReader) map[string]bool {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	return names
}

func TestMetrics_RecordAll(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordBackendCall(ctx, "modern", "tasks.list", ResultSuccess, 42*time.Millisecond)
	m.RecordFallback(ctx, "tasks.list")
	m.RecordDegradedResponse(ctx, "tasks.list")
	m.RecordTokenRefresh(ctx, ResultSuccess)
	m.RecordAuthExpired(ctx)
	m.RecordRollback(ctx, "task")
	m.RecordCacheInvalidation(ctx, "tasks", ResultSuccess)
	m.RecordToolInvocation(ctx, "tasks_list", "success", 10*time.Millisecond)

	names := collectedMetricNames(t, reader)
	for _, want := range []string{
		"backend_calls_total",
		"backend_call_duration_seconds",
		"transport_fallbacks_total",
		"degraded_responses_total",
		"token_refresh_total",
		"auth_expired_total",
		"optimistic_rollbacks_total",
		"cache_invalidations_total",
		"mcp_tool_invocations_total",
		"mcp_tool_duration_seconds",
	} {
		assert.True(t, names[want], "expected metric %s to be recorded", want)
	}
}

func TestMetrics_ZeroValueIsNoOp(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	// None of these may panic on a nil or uninitialized recorder.
	m.RecordBackendCall(ctx, "legacy", "tasks.list", ResultFailure, time.Second)
	m.RecordFallback(ctx, "tasks.list")
	m.RecordTokenRefresh(ctx, ResultFailure)
	m.RecordAuthExpired(ctx)

	empty := &Metrics{}
	empty.RecordBackendCall(ctx, "legacy", "tasks.list", ResultFailure, time.Second)
	empty.RecordRollback(ctx, "task")
}
