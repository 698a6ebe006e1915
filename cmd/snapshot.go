package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lochist/internal/history"
	"github.com/papapumpkin/lochist/internal/ui"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot FILE...",
	Short: "Record the current content of files",
	Long: "Snapshot records the given files in their project's history. Files are " +
		"grouped by tracking root and each group becomes one commit.",
	Args: cobra.MinimumNArgs(1),
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	m, _, err := newManager()
	if err != nil {
		return err
	}
	printer := ui.New()
	ctx := cmd.Context()

	groups, err := groupByRoot(cmd, m, args)
	if err != nil {
		return err
	}
	roots := make([]string, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Strings(roots)

	for _, root := range roots {
		res, err := m.SnapshotFiles(ctx, root, groups[root])
		if err != nil {
			return fmt.Errorf("snapshot of %s: %w", root, err)
		}
		printer.Snapshot(res)
		if !res.Committed() {
			continue
		}
		stats, err := m.AutoCleanupIfNeeded(ctx, root)
		if err != nil {
			printer.Warn(fmt.Sprintf("auto cleanup: %v", err))
		} else if stats != nil {
			printer.Cleanup(stats)
		}
		m.AutoGCIfNeeded(ctx, root)
	}
	return nil
}

// groupByRoot maps each file to its tracking root. With --project every
// file goes to that project.
func groupByRoot(cmd *cobra.Command, m *history.Manager, files []string) (map[string][]string, error) {
	groups := make(map[string][]string)
	if dir, _ := cmd.Flags().GetString("project"); dir != "" {
		root, err := m.TrackingPath(dir)
		if err != nil {
			return nil, err
		}
		groups[root] = files
		return groups, nil
	}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		root, err := m.TrackingPath(abs)
		if err != nil {
			return nil, err
		}
		groups[root] = append(groups[root], abs)
	}
	return groups, nil
}
