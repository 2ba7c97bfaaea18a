package drive_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskdeck/taskdeck/internal/drive"
	"github.com/taskdeck/taskdeck/internal/server"
	"github.com/taskdeck/taskdeck/internal/tools/common"
)

// RegisterDriveTools registers file and document tools with the MCP server.
func RegisterDriveTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listTool := mcp.NewTool("files_list",
		mcp.WithDescription("List files and folders, optionally within a folder"),
		mcp.WithString("folderId",
			mcp.Description("Only list entries inside this folder"),
		),
	)

	s.AddTool(listTool, common.InstrumentedToolHandler("files_list", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		folderID, _ := args["folderId"].(string)

		list, meta, err := sc.Drive().ListFiles(ctx, folderID)
		if err != nil {
			return common.ErrorResult("Failed to list files", err), nil
		}
		return common.EntityResult(list, meta)
	}))

	if readOnly {
		return nil
	}

	createFolderTool := mcp.NewTool("files_create_folder",
		mcp.WithDescription("Create a folder"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The folder name"),
		),
		mcp.WithString("parentId",
			mcp.Description("The parent folder to create it under"),
		),
	)

	s.AddTool(createFolderTool, common.InstrumentedToolHandler("files_create_folder", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		name, _ := args["name"].(string)
		parentID, _ := args["parentId"].(string)

		folder, meta, err := sc.Drive().CreateFolder(ctx, name, parentID)
		if err != nil {
			return common.ErrorResult("Failed to create folder", err), nil
		}
		return common.EntityResult(folder, meta)
	}))

	ensureFolderTool := mcp.NewTool("projects_ensure_folder",
		mcp.WithDescription("Get or create the dedicated folder for a project"),
		mcp.WithString("projectId",
			mcp.Required(),
			mcp.Description("The project the folder belongs to"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The folder name to use when creating it"),
		),
	)

	s.AddTool(ensureFolderTool, common.InstrumentedToolHandler("projects_ensure_folder", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		projectID, ok := args["projectId"].(string)
		if !ok || projectID == "" {
			return mcp.NewToolResultError("projectId is required"), nil
		}
		name, _ := args["name"].(string)

		folder, meta, err := sc.Drive().EnsureProjectFolder(ctx, projectID, name)
		if err != nil {
			return common.ErrorResult("Failed to ensure project folder", err), nil
		}
		return common.EntityResult(folder, meta)
	}))

	generateDocTool := mcp.NewTool("documents_generate",
		mcp.WithDescription("Generate a document for a project from a template. Requires a reachable backend."),
		mcp.WithString("projectId",
			mcp.Required(),
			mcp.Description("The project to generate the document for"),
		),
		mcp.WithString("template",
			mcp.Required(),
			mcp.Description("The template to generate from"),
		),
		mcp.WithString("title",
			mcp.Description("The document title; defaults to the project name"),
		),
	)

	s.AddTool(generateDocTool, common.InstrumentedToolHandler("documents_generate", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		req := drive.DocumentRequest{}
		req.ProjectID, _ = args["projectId"].(string)
		req.Template, _ = args["template"].(string)
		req.Title, _ = args["title"].(string)

		doc, meta, err := sc.Drive().GenerateDocument(ctx, req)
		if err != nil {
			return common.ErrorResult("Failed to generate document", err), nil
		}
		return common.EntityResult(doc, meta)
	}))

	deleteTool := mcp.NewTool("files_delete",
		mcp.WithDescription("Delete a file or folder"),
		mcp.WithString("fileId",
			mcp.Required(),
			mcp.Description("The ID of the file to delete"),
		),
	)

	s.AddTool(deleteTool, common.InstrumentedToolHandler("files_delete", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		fileID, ok := args["fileId"].(string)
		if !ok || fileID == "" {
			return mcp.NewToolResultError("fileId is required"), nil
		}

		if _, err := sc.Drive().DeleteFile(ctx, fileID); err != nil {
			return common.ErrorResult("Failed to delete file", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("File %s deleted", fileID)), nil
	}))

	return nil
}
