package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/lochist/internal/config"
	"github.com/papapumpkin/lochist/internal/history"
)

// managerOptions converts the loaded configuration into history options.
func managerOptions(cfg config.Config) ([]history.Option, error) {
	retention, err := history.ParseRetentionPolicy(cfg.Retention.Policy, cfg.Retention.Value)
	if err != nil {
		return nil, err
	}
	strategy, err := history.ParseLargeFileStrategy(cfg.LargeFiles.Strategy)
	if err != nil {
		return nil, err
	}
	opts := []history.Option{
		history.WithLogger(log.Logger),
		history.WithGit(cfg.GitPath),
		history.WithRetentionPolicy(retention),
		history.WithAutoCleanup(cfg.AutoCleanup),
		history.WithGCConfig(history.GCConfig{
			Enabled:          cfg.GC.Enabled,
			CommitsThreshold: cfg.GC.CommitsThreshold,
			SizeThresholdMB:  cfg.GC.SizeThresholdMB,
			Aggressive:       cfg.GC.Aggressive,
		}),
		history.WithLargeFileConfig(history.LargeFileConfig{
			ThresholdMB:        cfg.LargeFiles.ThresholdMB,
			Strategy:           strategy,
			ExcludeFromHistory: cfg.LargeFiles.ExcludeFromHistory,
		}),
	}
	if cfg.StorageRoot != "" {
		opts = append(opts, history.WithStorageRoot(cfg.StorageRoot))
	}
	return opts, nil
}

// newManager loads configuration and builds a history manager from it.
func newManager() (*history.Manager, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	opts, err := managerOptions(cfg)
	if err != nil {
		return nil, config.Config{}, err
	}
	m, err := history.New(opts...)
	if err != nil {
		return nil, config.Config{}, err
	}
	return m, cfg, nil
}

// projectRoot resolves the project a command operates on: --project when
// given, otherwise the tracking root of the working directory.
func projectRoot(cmd *cobra.Command, m *history.Manager) (string, error) {
	dir, _ := cmd.Flags().GetString("project")
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}
	return m.TrackingPath(dir)
}
