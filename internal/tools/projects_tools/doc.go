// Package projects_tools registers the project and area MCP tools.
package projects_tools
