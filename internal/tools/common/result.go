package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/taskdeck/taskdeck/internal/backend"
	"github.com/taskdeck/taskdeck/internal/optimistic"
	"github.com/taskdeck/taskdeck/internal/transport"
)

// DegradedNotice is prepended to tool output when the access layer served
// substitute data because no backend was reachable. Substitute data must
// never be indistinguishable from real data.
const DegradedNotice = "WARNING: no backend reachable, showing substitute data\n\n"

// EntityResult renders an entity as indented JSON, prefixed with the
// degraded notice when applicable.
func EntityResult(v interface{}, meta backend.Meta) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to render result: %v", err)), nil
	}

	text := string(data)
	if meta.Degraded {
		text = DegradedNotice + text
	}
	return mcp.NewToolResultText(text), nil
}

// ErrorResult maps an access-layer error to a tool error message. Business
// failures keep their message intact; expired sessions tell the user to
// sign in again.
func ErrorResult(action string, err error) *mcp.CallToolResult {
	var businessErr *transport.BusinessError
	if errors.As(err, &businessErr) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", action, businessErr.Message))
	}
	if errors.Is(err, transport.ErrAuthExpired) {
		return mcp.NewToolResultError("Session expired, please sign in again (taskdeck auth signin)")
	}

	var validationErr *transport.ValidationError
	if errors.As(err, &validationErr) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", action, validationErr.Message))
	}
	if errors.Is(err, optimistic.ErrStillCreating) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: the entity is still being created, retry once the create has settled", action))
	}

	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", action, err))
}
