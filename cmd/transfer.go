package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lochist/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:   "export DEST",
	Short: "Write the project's history to a new git repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := newManager()
		if err != nil {
			return err
		}
		root, err := projectRoot(cmd, m)
		if err != nil {
			return err
		}
		if err := m.ExportHistory(cmd.Context(), root, args[0]); err != nil {
			return err
		}
		ui.New().Success(fmt.Sprintf("exported history to %s", args[0]))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import SRC",
	Short: "Append the commits of a git repository to the project's history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := newManager()
		if err != nil {
			return err
		}
		root, err := projectRoot(cmd, m)
		if err != nil {
			return err
		}
		n, err := m.ImportHistory(cmd.Context(), root, args[0])
		if err != nil {
			return err
		}
		ui.New().Success(fmt.Sprintf("imported %d commit(s) from %s", n, args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
