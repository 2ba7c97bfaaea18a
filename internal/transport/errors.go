package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrAuthExpired marks a terminally failed authentication: a 401 that
// survived the single built-in refresh-and-retry, or a refresh the server
// rejected. It always ends in a forced logout and is never retried.
var ErrAuthExpired = errors.New("session expired, please sign in again")

// UnreachableError reports that an endpoint could not be reached at all:
// connection failure, DNS trouble, or a timed-out call. Timeouts are treated
// identically to unreachable endpoints for fallback purposes.
type UnreachableError struct {
	Endpoint string
	Err      error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("backend unreachable at %s: %v", e.Endpoint, e.Err)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// HTTPError reports a non-2xx response that did not carry a usable business
// envelope.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend returned HTTP %d", e.StatusCode)
}

// BusinessError carries a well-formed success:false response from either
// backend. It is never retried, never swallowed, and never triggers a
// transport fallback.
type BusinessError struct {
	Message string
}

func (e *BusinessError) Error() string {
	return e.Message
}

// ValidationError reports arguments rejected before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsTransportFailure reports whether err is transport-level trouble that
// should trigger a fallback rather than surface to the user.
func IsTransportFailure(err error) bool {
	var unreachable *UnreachableError
	if errors.As(err, &unreachable) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
