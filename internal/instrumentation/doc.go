// Package instrumentation provides OpenTelemetry metrics and tracing for the
// access layer.
//
// The Provider wires exporters (prometheus, otlp, stdout) based on
// environment-driven configuration. The Metrics recorder exposes typed
// methods for the events the access layer cares about: backend calls per
// transport, fallbacks, degraded responses, token refreshes, optimistic
// rollbacks, cache invalidations and MCP tool invocations.
//
// All recording methods are safe to call on a zero-value Metrics, so
// components can be constructed without instrumentation in tests.
package instrumentation
