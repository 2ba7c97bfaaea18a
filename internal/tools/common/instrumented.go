package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskdeck/taskdeck/internal/instrumentation"
	"github.com/taskdeck/taskdeck/internal/server"
)

// ToolHandler is the mcp-go tool handler signature.
type ToolHandler = mcpserver.ToolHandlerFunc

// InstrumentedToolHandler wraps a tool handler with invocation metrics and
// a span per call.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics := sc.Metrics()
		if metrics == nil {
			return handler(ctx, request)
		}

		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		start := time.Now()
		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.ResultSuccess
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.ResultFailure
			if err != nil {
				instrumentation.SetSpanError(span, err)
			}
		} else {
			instrumentation.SetSpanSuccess(span)
		}

		metrics.RecordToolInvocation(ctx, toolName, status, duration)
		return result, err
	}
}
