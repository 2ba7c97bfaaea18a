// Package drive_tools registers the file and document MCP tools: listing
// files, creating folders, resolving per-project folders, generating
// documents from templates, and deleting files.
package drive_tools
