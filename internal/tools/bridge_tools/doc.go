// Package bridge_tools registers the MCP tools that cross surfaces:
// mail-to-task conversion, task-to-calendar sync, and calendar conflict
// detection.
package bridge_tools
