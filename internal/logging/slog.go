package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation  = "operation"
	KeyService    = "service"
	KeyTransport  = "transport"
	KeyEntity     = "entity"
	KeyEntityKind = "entity_kind"
	KeyUserHash   = "user_hash"
	KeyStatus     = "status"
	KeyError      = "error"
	KeyTool       = "tool"
)

// Status values for consistent logging.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusFallback = "fallback"
	StatusDegraded = "degraded"
)

// WithService returns a logger with the service attribute set.
func WithService(logger *slog.Logger, svc string) *slog.Logger {
	return logger.With(slog.String(KeyService, svc))
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Service returns a slog attribute for the service name.
func Service(svc string) slog.Attr {
	return slog.String(KeyService, svc)
}

// Transport returns a slog attribute naming the backend transport that
// served (or failed to serve) a call.
func Transport(name string) slog.Attr {
	return slog.String(KeyTransport, name)
}

// Entity returns a slog attribute for a domain entity id.
func Entity(id string) slog.Attr {
	return slog.String(KeyEntity, id)
}

// EntityKind returns a slog attribute for a domain entity kind.
func EntityKind(kind string) slog.Attr {
	return slog.String(KeyEntityKind, kind)
}

// Tool returns a slog attribute for an MCP tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that slog omits from
// output, so Err(maybeNilErr) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a hashed representation of an email for logging.
// This allows correlation of log entries without exposing PII.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns a slog attribute with the anonymized user email.
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// SanitizeToken returns a masked version of a credential for logging.
// Only a length indicator is exposed; even partial token prefixes can aid
// attacks.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
