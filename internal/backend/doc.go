// Package backend routes domain operations across the two backend
// transports.
//
// The Invoker tries the modern REST transport first (when enabled and
// believed healthy), falls back to the legacy script transport on
// transport-level failure, and serves deterministic substitute data when
// neither backend is reachable so the caller never deadlocks on startup.
// Every Result carries the transport that served it and an explicit
// Degraded flag; substitute data is never silently indistinguishable from
// real data.
//
// Health per transport is sticky: a transport stays marked unhealthy until
// a call on it succeeds. An unhealthy transport is skipped for the probe
// cooldown window and then re-probed by the next request.
package backend
