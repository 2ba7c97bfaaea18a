// Package transport performs the outbound HTTP calls of the access layer.
//
// The Executor wraps every request with bearer authentication, a proactive
// expiry check, and a bounded 401 refresh-and-retry (two attempts total,
// structurally incapable of looping). On top of it sit the two backend
// clients: the legacy single-endpoint client that multiplexes operations
// through an action field, and the modern resource-oriented REST client.
//
// The package also defines the access layer's error taxonomy. Callers
// classify failures with errors.Is / errors.As; transport-level trouble
// (UnreachableError, HTTPError) is what the invoker falls back on, while
// BusinessError and ErrAuthExpired always propagate.
package transport
