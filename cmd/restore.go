package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lochist/internal/ui"
)

var restoreCmd = &cobra.Command{
	Use:   "restore COMMIT",
	Short: "Restore files from a snapshot",
	Long: "Restore overwrites the project's files with their content at COMMIT. " +
		"With --file only that file is read; it is printed unless --output names a destination.",
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().String("file", "", "restore a single file")
	restoreCmd.Flags().StringP("output", "o", "", "write the single file here instead of stdout")

	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	m, _, err := newManager()
	if err != nil {
		return err
	}
	root, err := projectRoot(cmd, m)
	if err != nil {
		return err
	}
	printer := ui.New()
	ctx := cmd.Context()

	file, _ := cmd.Flags().GetString("file")
	output, _ := cmd.Flags().GetString("output")
	if file == "" {
		if output != "" {
			return fmt.Errorf("--output requires --file")
		}
		res, err := m.RestoreCommit(ctx, root, args[0])
		if err != nil {
			return err
		}
		printer.Restore(res)
		return nil
	}

	data, err := m.RestoreFile(ctx, root, file, args[0])
	if err != nil {
		return err
	}
	if output == "" {
		printer.Raw(string(data))
		return nil
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	printer.Success(fmt.Sprintf("wrote %s", output))
	return nil
}
