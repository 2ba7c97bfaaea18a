package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/backend"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/server"
	"github.com/taskdeck/taskdeck/internal/tasks"
)

// cliServices wires the access layer for one-shot CLI commands. Metrics are
// not collected in CLI mode.
func cliServices() (server.Services, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return server.Services{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return buildServices(cfg, newLogger(false), nil)
}

// warnDegraded tells the user on stderr when a command answered with
// substitute data.
func warnDegraded(meta backend.Meta) {
	if meta.Degraded {
		fmt.Fprintln(os.Stderr, "WARNING: no backend reachable, showing substitute data")
	}
}

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and mutate tasks",
	}

	cmd.AddCommand(newTasksListCmd())
	cmd.AddCommand(newTasksAddCmd())
	cmd.AddCommand(newTasksDoneCmd())
	cmd.AddCommand(newTasksRmCmd())
	cmd.AddCommand(newTasksMvCmd())
	return cmd
}

func newTasksListCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally filtered by project",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := cliServices()
			if err != nil {
				return err
			}

			list, meta, err := services.Tasks.List(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			warnDegraded(meta)

			if len(list) == 0 {
				fmt.Println("No tasks")
				return nil
			}
			for _, task := range list {
				printTaskLine(task)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Only list tasks belonging to this project")
	return cmd
}

func printTaskLine(task tasks.Task) {
	mark := "[ ]"
	if task.Completed {
		mark = "[x]"
	}
	line := fmt.Sprintf("%s %s  %s", mark, task.ID, task.Title)
	if !task.Due.IsZero() {
		line += "  (due " + task.Due.Format("2006-01-02") + ")"
	}
	fmt.Println(line)
}

func newTasksAddCmd() *cobra.Command {
	var (
		notes     string
		projectID string
		due       string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := tasks.TaskInput{
				Title:     args[0],
				Notes:     notes,
				ProjectID: projectID,
			}
			if due != "" {
				parsed, err := time.Parse(time.RFC3339, due)
				if err != nil {
					return fmt.Errorf("due must be RFC3339, got %q", due)
				}
				input.Due = parsed
			}

			services, err := cliServices()
			if err != nil {
				return err
			}

			task, meta, err := services.Tasks.Create(cmd.Context(), input)
			if err != nil {
				return err
			}
			warnDegraded(meta)

			fmt.Printf("Created task %s\n", task.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	cmd.Flags().StringVar(&projectID, "project", "", "The project the task belongs to")
	cmd.Flags().StringVar(&due, "due", "", "Due date in RFC3339 format, e.g. 2026-09-01T09:00:00Z")
	return cmd
}

func newTasksDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := cliServices()
			if err != nil {
				return err
			}

			task, meta, err := services.Tasks.Complete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			warnDegraded(meta)

			fmt.Printf("Completed %s\n", task.Title)
			return nil
		},
	}
}

func newTasksRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := cliServices()
			if err != nil {
				return err
			}

			if _, err := services.Tasks.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted task %s\n", args[0])
			return nil
		},
	}
}

func newTasksMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <id> <position>",
		Short: "Move a task to a new position within its project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("position must be a number, got %q", args[1])
			}

			services, err := cliServices()
			if err != nil {
				return err
			}

			if _, err := services.Tasks.Reorder(cmd.Context(), args[0], position); err != nil {
				return err
			}
			fmt.Printf("Moved task %s to position %d\n", args[0], position)
			return nil
		},
	}
}
