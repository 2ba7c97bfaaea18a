// Package logging provides structured logging helpers built on log/slog.
//
// It defines the canonical attribute keys used across the access layer
// (operation, transport, entity, status) plus helpers that keep credentials
// and user identifiers out of log output. All components receive a
// *slog.Logger through their constructor; nothing logs through a global.
package logging
