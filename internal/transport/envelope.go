package transport

import "encoding/json"

// Envelope is the response body shape shared by both backends.
// The legacy backend reports failures through Message, the modern one
// through Error.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// FailureMessage returns the failure text regardless of which backend shape
// produced the envelope.
func (e *Envelope) FailureMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Error != "" {
		return e.Error
	}
	return "backend reported failure without a message"
}
