package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lochist/internal/ui"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, list, or delete store backups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := newManager()
		if err != nil {
			return err
		}
		root, err := projectRoot(cmd, m)
		if err != nil {
			return err
		}
		printer := ui.New()

		if name, _ := cmd.Flags().GetString("delete"); name != "" {
			if err := m.DeleteBackup(root, name); err != nil {
				return err
			}
			printer.Success(fmt.Sprintf("deleted %s", name))
			return nil
		}
		if list, _ := cmd.Flags().GetBool("list"); list {
			backups, err := m.ListBackups(root)
			if err != nil {
				return err
			}
			printer.Backups(backups)
			return nil
		}
		name, err := m.CreateBackup(root)
		if err != nil {
			return err
		}
		printer.Success(fmt.Sprintf("created %s", name))
		return nil
	},
}

func init() {
	backupCmd.Flags().Bool("list", false, "list backups, newest first")
	backupCmd.Flags().String("delete", "", "delete the named backup")
	backupCmd.MarkFlagsMutuallyExclusive("list", "delete")

	rootCmd.AddCommand(backupCmd)
}
