package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lochist/internal/ui"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List every project with a history store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := newManager()
		if err != nil {
			return err
		}
		projects, err := m.ListTrackedProjects()
		if err != nil {
			return err
		}
		printer := ui.New()
		if len(projects) == 0 {
			printer.Info("no tracked projects")
			return nil
		}
		printer.Lines(projects)
		return nil
	},
}

var trackCmd = &cobra.Command{
	Use:   "track PATH",
	Short: "Show which history a file belongs to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := newManager()
		if err != nil {
			return err
		}
		mode, err := m.DetectTrackingMode(args[0])
		if err != nil {
			return err
		}
		repo, err := m.RepoPath(mode.Path())
		if err != nil {
			return err
		}
		ui.New().Lines([]string{mode.String(), "store " + repo})
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename OLD NEW",
	Short: "Carry a project's history over to its new location",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := newManager()
		if err != nil {
			return err
		}
		if err := m.HandleProjectRename(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		ui.New().Success(fmt.Sprintf("history moved to %s", args[1]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(renameCmd)
}
