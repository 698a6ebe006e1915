package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/lochist/internal/telemetry"
	"github.com/papapumpkin/lochist/internal/ui"
	"github.com/papapumpkin/lochist/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Snapshot files as they are saved",
	Long: "Watch follows the project directory and snapshots every file that is " +
		"written, once it has been quiet for the debounce interval. Stop with Ctrl-C.",
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("debounce", 0, "quiet period before a written file is snapshotted (default from config)")
	watchCmd.Flags().StringSlice("ignore", nil, "additional glob patterns to ignore")
	watchCmd.Flags().String("journal", "", "append activity to this JSONL journal (default from config)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	m, cfg, err := newManager()
	if err != nil {
		return err
	}
	root, err := projectRoot(cmd, m)
	if err != nil {
		return err
	}
	printer := ui.New()

	wcfg := watch.Config{
		Debounce: cfg.Watch.Debounce,
		Ignore:   cfg.Watch.Ignore,
		Logger:   log.Logger,
	}
	if d, _ := cmd.Flags().GetDuration("debounce"); d > 0 {
		wcfg.Debounce = d
	}
	extra, _ := cmd.Flags().GetStringSlice("ignore")
	wcfg.Ignore = append(wcfg.Ignore, extra...)

	journalPath := cfg.Watch.Journal
	if p, _ := cmd.Flags().GetString("journal"); p != "" {
		journalPath = p
	}
	if journalPath != "" {
		journal, err := telemetry.NewEmitter(journalPath)
		if err != nil {
			return err
		}
		defer journal.Close()
		wcfg.Journal = journal
	}

	w, err := watch.NewWatcher(root, m, wcfg)
	if err != nil {
		return err
	}
	ctx, cancel := setupSignalContext(cmd.Context(), printer)
	defer cancel()

	// Stop flushes pending files after ctx is cancelled; those snapshots
	// must still run.
	if err := w.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	printer.Info(fmt.Sprintf("watching %s", w.Root))

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			for e := range w.Events {
				reportEvent(printer, e)
			}
			return nil
		case e := <-w.Events:
			reportEvent(printer, e)
		}
	}
}

func reportEvent(printer *ui.Printer, e watch.Event) {
	if e.Err != nil {
		printer.Error(e.Err.Error())
		return
	}
	printer.Snapshot(e.Result)
}

// setupSignalContext returns a context cancelled on SIGINT or SIGTERM.
func setupSignalContext(parent context.Context, printer *ui.Printer) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			printer.Info("\nshutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
