package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrTransport = "transport"
	attrOperation = "operation"
	attrResult    = "result"
	attrResource  = "resource"
	attrTool      = "tool"
	attrStatus    = "status"
)

// Result values for metric labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultExpired = "expired"
)

// Metrics provides methods for recording observability metrics.
// A zero-value Metrics records nothing; all methods are no-ops until the
// recorder is initialized through NewMetrics.
type Metrics struct {
	backendCallsTotal   metric.Int64Counter
	backendCallDuration metric.Float64Histogram

	fallbacksTotal         metric.Int64Counter
	degradedResponsesTotal metric.Int64Counter

	tokenRefreshTotal metric.Int64Counter
	authExpiredTotal  metric.Int64Counter

	rollbacksTotal          metric.Int64Counter
	cacheInvalidationsTotal metric.Int64Counter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.backendCallsTotal, err = meter.Int64Counter(
		"backend_calls_total",
		metric.WithDescription("Total number of backend calls by transport and operation"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend_calls_total counter: %w", err)
	}

	m.backendCallDuration, err = meter.Float64Histogram(
		"backend_call_duration_seconds",
		metric.WithDescription("Backend call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend_call_duration_seconds histogram: %w", err)
	}

	m.fallbacksTotal, err = meter.Int64Counter(
		"transport_fallbacks_total",
		metric.WithDescription("Total number of modern-to-legacy transport fallbacks"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport_fallbacks_total counter: %w", err)
	}

	m.degradedResponsesTotal, err = meter.Int64Counter(
		"degraded_responses_total",
		metric.WithDescription("Total number of degraded-mode substitute responses"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create degraded_responses_total counter: %w", err)
	}

	m.tokenRefreshTotal, err = meter.Int64Counter(
		"token_refresh_total",
		metric.WithDescription("Total number of access token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_refresh_total counter: %w", err)
	}

	m.authExpiredTotal, err = meter.Int64Counter(
		"auth_expired_total",
		metric.WithDescription("Total number of authentication-expired terminations"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth_expired_total counter: %w", err)
	}

	m.rollbacksTotal, err = meter.Int64Counter(
		"optimistic_rollbacks_total",
		metric.WithDescription("Total number of optimistic mutations rolled back"),
		metric.WithUnit("{rollback}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create optimistic_rollbacks_total counter: %w", err)
	}

	m.cacheInvalidationsTotal, err = meter.Int64Counter(
		"cache_invalidations_total",
		metric.WithDescription("Total number of server cache invalidation calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache_invalidations_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordBackendCall records one backend call with transport, operation,
// result and duration.
func (m *Metrics) RecordBackendCall(ctx context.Context, transport, operation, result string, duration time.Duration) {
	if m == nil || m.backendCallsTotal == nil || m.backendCallDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTransport, transport),
		attribute.String(attrOperation, operation),
		attribute.String(attrResult, result),
	}

	m.backendCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.backendCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordFallback records a fallback from the modern to the legacy transport
// for the given operation.
func (m *Metrics) RecordFallback(ctx context.Context, operation string) {
	if m == nil || m.fallbacksTotal == nil {
		return
	}
	m.fallbacksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOperation, operation)))
}

// RecordDegradedResponse records a substitute response served because no
// transport was reachable.
func (m *Metrics) RecordDegradedResponse(ctx context.Context, operation string) {
	if m == nil || m.degradedResponsesTotal == nil {
		return
	}
	m.degradedResponsesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOperation, operation)))
}

// RecordTokenRefresh records a token refresh attempt.
// Result should be one of: ResultSuccess, ResultFailure, ResultExpired.
func (m *Metrics) RecordTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.tokenRefreshTotal == nil {
		return
	}
	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordAuthExpired records a terminal authentication failure.
func (m *Metrics) RecordAuthExpired(ctx context.Context) {
	if m == nil || m.authExpiredTotal == nil {
		return
	}
	m.authExpiredTotal.Add(ctx, 1)
}

// RecordRollback records an optimistic mutation rolled back after a failed
// network call.
func (m *Metrics) RecordRollback(ctx context.Context, entityKind string) {
	if m == nil || m.rollbacksTotal == nil {
		return
	}
	m.rollbacksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResource, entityKind)))
}

// RecordCacheInvalidation records a cache invalidation call for a resource
// class with its result.
func (m *Metrics) RecordCacheInvalidation(ctx context.Context, resource, result string) {
	if m == nil || m.cacheInvalidationsTotal == nil {
		return
	}
	m.cacheInvalidationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResource, resource),
		attribute.String(attrResult, result),
	))
}

// RecordToolInvocation records an MCP tool invocation with its status and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
