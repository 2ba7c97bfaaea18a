// Package server holds the shared state of the MCP server: the wired
// domain services, the optional metrics listener, and health endpoints
// that report per-transport backend health.
package server
