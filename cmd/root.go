package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the taskdeck application
var rootCmd = &cobra.Command{
	Use:   "taskdeck",
	Short: "Resilient access layer for a spreadsheet-backed task manager",
	Long: `taskdeck talks to the task manager backend for you. It prefers the
modern REST backend, falls back to the legacy script endpoint when the modern
one is unreachable, and keeps working with clearly flagged substitute data
when neither answers.

It can run as:
  - A CLI for tasks and projects (taskdeck tasks, taskdeck projects)
  - An MCP (Model Context Protocol) server for AI assistants (taskdeck serve)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "taskdeck version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newTasksCmd())
	rootCmd.AddCommand(newProjectsCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the taskdeck version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("taskdeck version %s\n", version)
		},
	}
}
