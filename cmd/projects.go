package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/projects"
)

func newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List and mutate projects and areas",
	}

	cmd.AddCommand(newProjectsListCmd())
	cmd.AddCommand(newProjectsAddCmd())
	cmd.AddCommand(newProjectsRmCmd())
	cmd.AddCommand(newAreasCmd())
	return cmd
}

func newProjectsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := cliServices()
			if err != nil {
				return err
			}

			list, meta, err := services.Projects.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			warnDegraded(meta)

			if len(list) == 0 {
				fmt.Println("No projects")
				return nil
			}
			for _, project := range list {
				line := fmt.Sprintf("%s  %s", project.ID, project.Name)
				if project.Archived {
					line += "  (archived)"
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func newProjectsAddCmd() *cobra.Command {
	var (
		areaID string
		notes  string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := cliServices()
			if err != nil {
				return err
			}

			project, meta, err := services.Projects.CreateProject(cmd.Context(), projects.ProjectInput{
				Name:   args[0],
				AreaID: areaID,
				Notes:  notes,
			})
			if err != nil {
				return err
			}
			warnDegraded(meta)

			fmt.Printf("Created project %s\n", project.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&areaID, "area", "", "The area the project belongs to")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	return cmd
}

func newProjectsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a project. Fails if the project still has open tasks.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := cliServices()
			if err != nil {
				return err
			}

			if _, err := services.Projects.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted project %s\n", args[0])
			return nil
		},
	}
}

func newAreasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "areas",
		Short: "List and mutate areas",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all areas",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := cliServices()
			if err != nil {
				return err
			}

			list, meta, err := services.Projects.ListAreas(cmd.Context())
			if err != nil {
				return err
			}
			warnDegraded(meta)

			if len(list) == 0 {
				fmt.Println("No areas")
				return nil
			}
			for _, area := range list {
				fmt.Printf("%s  %s\n", area.ID, area.Name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create an area",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := cliServices()
			if err != nil {
				return err
			}

			area, meta, err := services.Projects.CreateArea(cmd.Context(), projects.AreaInput{Name: args[0]})
			if err != nil {
				return err
			}
			warnDegraded(meta)

			fmt.Printf("Created area %s\n", area.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an area",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := cliServices()
			if err != nil {
				return err
			}

			if _, err := services.Projects.DeleteArea(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted area %s\n", args[0])
			return nil
		},
	})

	return cmd
}
