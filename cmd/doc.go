// Package cmd implements the command-line interface for taskdeck.
//
// This package provides the following commands:
//   - auth: Sign in, sign out, and inspect the persisted session
//   - tasks: List and mutate tasks from the terminal
//   - projects: List and mutate projects and areas
//   - serve: Start the MCP server to provide tools for AI assistants
//   - version: Display version information
package cmd
