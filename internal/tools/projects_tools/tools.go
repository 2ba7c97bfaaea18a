package projects_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskdeck/taskdeck/internal/projects"
	"github.com/taskdeck/taskdeck/internal/server"
	"github.com/taskdeck/taskdeck/internal/tools/common"
)

// RegisterProjectsTools registers project and area tools with the MCP server.
func RegisterProjectsTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listProjectsTool := mcp.NewTool("projects_list",
		mcp.WithDescription("List all projects"),
	)

	s.AddTool(listProjectsTool, common.InstrumentedToolHandler("projects_list", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, meta, err := sc.Projects().ListProjects(ctx)
		if err != nil {
			return common.ErrorResult("Failed to list projects", err), nil
		}
		return common.EntityResult(list, meta)
	}))

	listAreasTool := mcp.NewTool("areas_list",
		mcp.WithDescription("List all areas"),
	)

	s.AddTool(listAreasTool, common.InstrumentedToolHandler("areas_list", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, meta, err := sc.Projects().ListAreas(ctx)
		if err != nil {
			return common.ErrorResult("Failed to list areas", err), nil
		}
		return common.EntityResult(list, meta)
	}))

	if readOnly {
		return nil
	}

	createProjectTool := mcp.NewTool("projects_create",
		mcp.WithDescription("Create a new project"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The project name"),
		),
		mcp.WithString("areaId",
			mcp.Description("The area the project belongs to"),
		),
		mcp.WithString("notes",
			mcp.Description("Free-form notes"),
		),
	)

	s.AddTool(createProjectTool, common.InstrumentedToolHandler("projects_create", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		input := projects.ProjectInput{}
		input.Name, _ = args["name"].(string)
		input.AreaID, _ = args["areaId"].(string)
		input.Notes, _ = args["notes"].(string)

		project, meta, err := sc.Projects().CreateProject(ctx, input)
		if err != nil {
			return common.ErrorResult("Failed to create project", err), nil
		}
		return common.EntityResult(project, meta)
	}))

	updateProjectTool := mcp.NewTool("projects_update",
		mcp.WithDescription("Update a project's name, area, or notes"),
		mcp.WithString("projectId",
			mcp.Required(),
			mcp.Description("The ID of the project to update"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The new project name"),
		),
		mcp.WithString("areaId",
			mcp.Description("The area the project belongs to"),
		),
		mcp.WithString("notes",
			mcp.Description("Free-form notes"),
		),
	)

	s.AddTool(updateProjectTool, common.InstrumentedToolHandler("projects_update", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		projectID, ok := args["projectId"].(string)
		if !ok || projectID == "" {
			return mcp.NewToolResultError("projectId is required"), nil
		}

		input := projects.ProjectInput{}
		input.Name, _ = args["name"].(string)
		input.AreaID, _ = args["areaId"].(string)
		input.Notes, _ = args["notes"].(string)

		project, meta, err := sc.Projects().UpdateProject(ctx, projectID, input)
		if err != nil {
			return common.ErrorResult("Failed to update project", err), nil
		}
		return common.EntityResult(project, meta)
	}))

	deleteProjectTool := mcp.NewTool("projects_delete",
		mcp.WithDescription("Delete a project. Fails if the project still has open tasks."),
		mcp.WithString("projectId",
			mcp.Required(),
			mcp.Description("The ID of the project to delete"),
		),
	)

	s.AddTool(deleteProjectTool, common.InstrumentedToolHandler("projects_delete", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		projectID, ok := args["projectId"].(string)
		if !ok || projectID == "" {
			return mcp.NewToolResultError("projectId is required"), nil
		}

		if _, err := sc.Projects().DeleteProject(ctx, projectID); err != nil {
			return common.ErrorResult("Failed to delete project", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Project %s deleted", projectID)), nil
	}))

	createAreaTool := mcp.NewTool("areas_create",
		mcp.WithDescription("Create a new area"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The area name"),
		),
	)

	s.AddTool(createAreaTool, common.InstrumentedToolHandler("areas_create", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		name, _ := args["name"].(string)

		area, meta, err := sc.Projects().CreateArea(ctx, projects.AreaInput{Name: name})
		if err != nil {
			return common.ErrorResult("Failed to create area", err), nil
		}
		return common.EntityResult(area, meta)
	}))

	deleteAreaTool := mcp.NewTool("areas_delete",
		mcp.WithDescription("Delete an area"),
		mcp.WithString("areaId",
			mcp.Required(),
			mcp.Description("The ID of the area to delete"),
		),
	)

	s.AddTool(deleteAreaTool, common.InstrumentedToolHandler("areas_delete", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		areaID, ok := args["areaId"].(string)
		if !ok || areaID == "" {
			return mcp.NewToolResultError("areaId is required"), nil
		}

		if _, err := sc.Projects().DeleteArea(ctx, areaID); err != nil {
			return common.ErrorResult("Failed to delete area", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Area %s deleted", areaID)), nil
	}))

	return nil
}
