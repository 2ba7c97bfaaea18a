package bridge_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskdeck/taskdeck/internal/server"
	"github.com/taskdeck/taskdeck/internal/tools/common"
)

// RegisterBridgeTools registers the cross-surface tools with the MCP server:
// converting mail messages into tasks, syncing tasks to the calendar, and
// surfacing calendar conflicts.
func RegisterBridgeTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	conflictsTool := mcp.NewTool("calendar_conflicts",
		mcp.WithDescription("List calendar events that overlap within a time range"),
		mcp.WithString("from",
			mcp.Required(),
			mcp.Description("Range start in RFC3339 format"),
		),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Range end in RFC3339 format"),
		),
	)

	s.AddTool(conflictsTool, common.InstrumentedToolHandler("calendar_conflicts", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		from, errResult := timeFromArgs(args, "from")
		if errResult != nil {
			return errResult, nil
		}
		to, errResult := timeFromArgs(args, "to")
		if errResult != nil {
			return errResult, nil
		}

		conflicts, meta, err := sc.Bridge().ListCalendarConflicts(ctx, from, to)
		if err != nil {
			return common.ErrorResult("Failed to list calendar conflicts", err), nil
		}
		return common.EntityResult(conflicts, meta)
	}))

	if readOnly {
		return nil
	}

	convertTool := mcp.NewTool("mail_convert_to_task",
		mcp.WithDescription("Convert a mail message into a task"),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the mail message to convert"),
		),
	)

	s.AddTool(convertTool, common.InstrumentedToolHandler("mail_convert_to_task", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		messageID, ok := args["messageId"].(string)
		if !ok || messageID == "" {
			return mcp.NewToolResultError("messageId is required"), nil
		}

		task, meta, err := sc.Bridge().ConvertMailToTask(ctx, messageID)
		if err != nil {
			return common.ErrorResult("Failed to convert mail to task", err), nil
		}
		return common.EntityResult(task, meta)
	}))

	syncTool := mcp.NewTool("tasks_sync_calendar",
		mcp.WithDescription("Create or update the calendar event for a task's due date"),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("The ID of the task to sync"),
		),
	)

	s.AddTool(syncTool, common.InstrumentedToolHandler("tasks_sync_calendar", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		taskID, ok := args["taskId"].(string)
		if !ok || taskID == "" {
			return mcp.NewToolResultError("taskId is required"), nil
		}

		event, meta, err := sc.Bridge().SyncTaskToCalendar(ctx, taskID)
		if err != nil {
			return common.ErrorResult("Failed to sync task to calendar", err), nil
		}
		return common.EntityResult(event, meta)
	}))

	return nil
}

func timeFromArgs(args map[string]interface{}, key string) (time.Time, *mcp.CallToolResult) {
	raw, ok := args[key].(string)
	if !ok || raw == "" {
		return time.Time{}, mcp.NewToolResultError(fmt.Sprintf("%s is required", key))
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, mcp.NewToolResultError(fmt.Sprintf("%s must be RFC3339, got %q", key, raw))
	}
	return parsed, nil
}
