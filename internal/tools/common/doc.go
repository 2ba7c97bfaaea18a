// Package common provides shared helpers for MCP tool handlers:
// instrumentation wrapping, result rendering with the degraded-data
// notice, and error mapping from the access-layer taxonomy to tool
// error messages.
package common
