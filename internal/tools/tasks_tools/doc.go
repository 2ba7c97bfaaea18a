// Package tasks_tools registers the task MCP tools: listing, retrieval,
// creation, updates, completion, deletion, and reordering. Write tools are
// only registered when the server runs with write operations enabled.
package tasks_tools
