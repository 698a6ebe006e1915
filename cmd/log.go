package cmd

import (
	"github.com/spf13/cobra"

	"github.com/papapumpkin/lochist/internal/ui"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List snapshots, newest first",
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
		commits, err := m.ListCommits(cmd.Context(), root)
		if err != nil {
			return err
		}
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(commits) > limit {
			commits = commits[:limit]
		}
		ui.New().CommitLog(commits)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show COMMIT",
	Short: "Show one snapshot and the files it changed",
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
		ctx := cmd.Context()
		info, err := m.CommitDetails(ctx, root, args[0])
		if err != nil {
			return err
		}
		changes, err := m.FilesChanged(ctx, root, info.ID)
		if err != nil {
			return err
		}
		ui.New().CommitDetail(info, changes)
		return nil
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff FROM [TO]",
	Short: "Show the patch between two snapshots",
	Long:  "Diff prints the unified patch from FROM to TO. TO defaults to the latest snapshot.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := newManager()
		if err != nil {
			return err
		}
		root, err := projectRoot(cmd, m)
		if err != nil {
			return err
		}
		to := "HEAD"
		if len(args) == 2 {
			to = args[1]
		}
		file, _ := cmd.Flags().GetString("file")
		patch, err := m.DiffBetween(cmd.Context(), root, args[0], to, file)
		if err != nil {
			return err
		}
		printer := ui.New()
		if patch == "" {
			printer.Info("no differences")
			return nil
		}
		printer.Raw(patch)
		return nil
	},
}

func init() {
	logCmd.Flags().IntP("limit", "n", 0, "show at most this many snapshots")
	diffCmd.Flags().String("file", "", "limit the patch to one file")

	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(diffCmd)
}
