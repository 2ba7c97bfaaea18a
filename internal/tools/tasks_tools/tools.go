package tasks_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskdeck/taskdeck/internal/backend"
	"github.com/taskdeck/taskdeck/internal/optimistic"
	"github.com/taskdeck/taskdeck/internal/server"
	"github.com/taskdeck/taskdeck/internal/tasks"
	"github.com/taskdeck/taskdeck/internal/tools/common"
)

// RegisterTasksTools registers all task-related tools with the MCP server.
func RegisterTasksTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	registerReadTools(s, sc)
	if !readOnly {
		registerWriteTools(s, sc)
	}
	return nil
}

func registerReadTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	listTool := mcp.NewTool("tasks_list",
		mcp.WithDescription("List tasks, optionally filtered by project"),
		mcp.WithString("projectId",
			mcp.Description("Only list tasks belonging to this project"),
		),
	)

	s.AddTool(listTool, common.InstrumentedToolHandler("tasks_list", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		projectID, _ := args["projectId"].(string)

		list, meta, err := sc.Tasks().List(ctx, projectID)
		if err != nil {
			return common.ErrorResult("Failed to list tasks", err), nil
		}
		return common.EntityResult(list, meta)
	}))

	getTool := mcp.NewTool("tasks_get",
		mcp.WithDescription("Get a single task by id"),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("The ID of the task to retrieve"),
		),
	)

	s.AddTool(getTool, common.InstrumentedToolHandler("tasks_get", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		taskID, ok := args["taskId"].(string)
		if !ok || taskID == "" {
			return mcp.NewToolResultError("taskId is required"), nil
		}

		task, meta, err := sc.Tasks().Get(ctx, taskID)
		if err != nil {
			return common.ErrorResult("Failed to get task", err), nil
		}
		return common.EntityResult(task, meta)
	}))
}

func registerWriteTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	createTool := mcp.NewTool("tasks_create",
		mcp.WithDescription("Create a new task"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("The task title"),
		),
		mcp.WithString("notes",
			mcp.Description("Free-form notes"),
		),
		mcp.WithString("projectId",
			mcp.Description("The project the task belongs to"),
		),
		mcp.WithString("due",
			mcp.Description("Due date in RFC3339 format, e.g. 2026-09-01T09:00:00Z"),
		),
	)

	s.AddTool(createTool, common.InstrumentedToolHandler("tasks_create", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, errResult := taskInputFromArgs(request.GetArguments())
		if errResult != nil {
			return errResult, nil
		}

		task, meta, err := applyTaskMutation(ctx, sc, "", input, func(ctx context.Context) (*tasks.Task, backend.Meta, error) {
			return sc.Tasks().Create(ctx, input)
		})
		if err != nil {
			return common.ErrorResult("Failed to create task", err), nil
		}
		return common.EntityResult(task, meta)
	}))

	updateTool := mcp.NewTool("tasks_update",
		mcp.WithDescription("Update a task's title, notes, project, or due date"),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("The ID of the task to update"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("The new task title"),
		),
		mcp.WithString("notes",
			mcp.Description("Free-form notes"),
		),
		mcp.WithString("projectId",
			mcp.Description("The project the task belongs to"),
		),
		mcp.WithString("due",
			mcp.Description("Due date in RFC3339 format"),
		),
	)

	s.AddTool(updateTool, common.InstrumentedToolHandler("tasks_update", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		taskID, ok := args["taskId"].(string)
		if !ok || taskID == "" {
			return mcp.NewToolResultError("taskId is required"), nil
		}

		input, errResult := taskInputFromArgs(args)
		if errResult != nil {
			return errResult, nil
		}

		task, meta, err := applyTaskMutation(ctx, sc, taskID, input, func(ctx context.Context) (*tasks.Task, backend.Meta, error) {
			return sc.Tasks().Update(ctx, taskID, input)
		})
		if err != nil {
			return common.ErrorResult("Failed to update task", err), nil
		}
		return common.EntityResult(task, meta)
	}))

	completeTool := mcp.NewTool("tasks_complete",
		mcp.WithDescription("Mark a task as completed"),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("The ID of the task to complete"),
		),
	)

	s.AddTool(completeTool, common.InstrumentedToolHandler("tasks_complete", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		taskID, ok := args["taskId"].(string)
		if !ok || taskID == "" {
			return mcp.NewToolResultError("taskId is required"), nil
		}

		proposed := tasks.Task{ID: taskID, Completed: true}
		task, meta, err := applyTaskMutation(ctx, sc, taskID, proposed, func(ctx context.Context) (*tasks.Task, backend.Meta, error) {
			return sc.Tasks().Complete(ctx, taskID)
		})
		if err != nil {
			return common.ErrorResult("Failed to complete task", err), nil
		}
		return common.EntityResult(task, meta)
	}))

	deleteTool := mcp.NewTool("tasks_delete",
		mcp.WithDescription("Delete a task"),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("The ID of the task to delete"),
		),
	)

	s.AddTool(deleteTool, common.InstrumentedToolHandler("tasks_delete", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		taskID, ok := args["taskId"].(string)
		if !ok || taskID == "" {
			return mcp.NewToolResultError("taskId is required"), nil
		}

		if _, err := sc.Tasks().Delete(ctx, taskID); err != nil {
			return common.ErrorResult("Failed to delete task", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %s deleted", taskID)), nil
	}))

	reorderTool := mcp.NewTool("tasks_reorder",
		mcp.WithDescription("Move a task to a new position within its project"),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("The ID of the task to move"),
		),
		mcp.WithString("position",
			mcp.Required(),
			mcp.Description("The new zero-based position"),
		),
	)

	s.AddTool(reorderTool, common.InstrumentedToolHandler("tasks_reorder", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		taskID, ok := args["taskId"].(string)
		if !ok || taskID == "" {
			return mcp.NewToolResultError("taskId is required"), nil
		}

		posStr, ok := args["position"].(string)
		if !ok || posStr == "" {
			return mcp.NewToolResultError("position is required"), nil
		}
		position, err := strconv.Atoi(posStr)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("position must be a number, got %q", posStr)), nil
		}

		if _, err := sc.Tasks().Reorder(ctx, taskID, position); err != nil {
			return common.ErrorResult("Failed to reorder task", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %s moved to position %d", taskID, position)), nil
	}))
}

// applyTaskMutation routes a task write through the optimistic update
// coordinator: the local task cache shows the proposed value right away,
// adopts the authoritative server value on commit, and restores the
// pre-mutation snapshot when the call fails. Without a coordinator the
// write dispatches directly. An empty taskID means a create.
func applyTaskMutation(ctx context.Context, sc *server.ServerContext, taskID string, proposed interface{}, dispatch func(ctx context.Context) (*tasks.Task, backend.Meta, error)) (*tasks.Task, backend.Meta, error) {
	coord := sc.Coordinator()
	if coord == nil {
		return dispatch(ctx)
	}

	proposedJSON, err := json.Marshal(proposed)
	if err != nil {
		return nil, backend.Meta{}, fmt.Errorf("encoding proposed task: %w", err)
	}

	var (
		task *tasks.Task
		meta backend.Meta
	)
	pending, err := coord.Apply(ctx, optimistic.Mutation{
		EntityKind: "tasks",
		EntityID:   taskID,
		Proposed:   proposedJSON,
		Dispatch: func(ctx context.Context) ([]byte, error) {
			var err error
			task, meta, err = dispatch(ctx)
			if err != nil {
				return nil, err
			}
			return json.Marshal(task)
		},
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}

	if _, err := pending.Wait(ctx); err != nil {
		return nil, backend.Meta{}, err
	}
	return task, meta, nil
}

// taskInputFromArgs builds a TaskInput from tool arguments. Returns a tool
// error result on an unparsable due date.
func taskInputFromArgs(args map[string]interface{}) (tasks.TaskInput, *mcp.CallToolResult) {
	input := tasks.TaskInput{}
	input.Title, _ = args["title"].(string)
	input.Notes, _ = args["notes"].(string)
	input.ProjectID, _ = args["projectId"].(string)

	if dueStr, ok := args["due"].(string); ok && dueStr != "" {
		due, err := time.Parse(time.RFC3339, dueStr)
		if err != nil {
			return input, mcp.NewToolResultError(fmt.Sprintf("due must be RFC3339, got %q", dueStr))
		}
		input.Due = due
	}

	return input, nil
}
