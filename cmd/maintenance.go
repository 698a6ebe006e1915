package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lochist/internal/ui"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Prune history according to the retention policy",
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
		printer.Info(fmt.Sprintf("retention: %s", m.RetentionPolicy()))
		stats, err := m.Cleanup(cmd.Context(), root)
		if err != nil {
			return err
		}
		printer.Cleanup(stats)
		return nil
	},
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Compact the history store",
	Long:  "GC repacks the store. With --auto it only runs when the configured thresholds are reached.",
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
		ctx := cmd.Context()

		if auto, _ := cmd.Flags().GetBool("auto"); auto {
			if m.AutoGCIfNeeded(ctx, root) {
				printer.Success("gc finished")
			} else {
				printer.Info("gc not needed")
			}
			return nil
		}
		aggressive, _ := cmd.Flags().GetBool("aggressive")
		if !cmd.Flags().Changed("aggressive") {
			aggressive = m.GCConfig().Aggressive
		}
		if err := m.RunGC(ctx, root, aggressive); err != nil {
			return err
		}
		printer.Success("gc finished")
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the history store for corruption",
	Long:  "Verify checks the store's structure and objects. With --repair a backup is taken first and restored if the store cannot be fixed.",
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
		ctx := cmd.Context()

		if repair, _ := cmd.Flags().GetBool("repair"); repair {
			backup, err := m.RepairRepository(ctx, root)
			if err != nil {
				return err
			}
			printer.Success(fmt.Sprintf("store verified, backup %s kept", backup))
			return nil
		}
		report, err := m.VerifyIntegrity(ctx, root)
		if err != nil {
			return err
		}
		printer.Integrity(report)
		if !report.Valid {
			return fmt.Errorf("history store for %s failed verification", root)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the project's history",
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
		stats, err := m.HistoryStats(cmd.Context(), root)
		if err != nil {
			return err
		}
		ui.New().Stats(stats)
		return nil
	},
}

func init() {
	gcCmd.Flags().Bool("aggressive", false, "spend more time for a smaller store")
	gcCmd.Flags().Bool("auto", false, "only run when the thresholds are reached")
	verifyCmd.Flags().Bool("repair", false, "back up the store and restore it if verification fails")

	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(statsCmd)
}
