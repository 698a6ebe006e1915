package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RetentionConfig selects how much history a cleanup keeps. Value is days,
// commits, or megabytes depending on Policy, and is ignored for "forever".
type RetentionConfig struct {
	Policy string `mapstructure:"policy"`
	Value  uint64 `mapstructure:"value"`
}

// GCConfig holds the thresholds that trigger automatic garbage collection.
type GCConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	CommitsThreshold int    `mapstructure:"commits_threshold"`
	SizeThresholdMB  uint64 `mapstructure:"size_threshold_mb"`
	Aggressive       bool   `mapstructure:"aggressive"`
}

// LargeFilesConfig controls how oversized files are treated when snapshotting.
type LargeFilesConfig struct {
	ThresholdMB        uint64 `mapstructure:"threshold_mb"`
	Strategy           string `mapstructure:"strategy"`
	ExcludeFromHistory bool   `mapstructure:"exclude_from_history"`
}

// WatchConfig holds settings for the file watcher.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	Ignore   []string      `mapstructure:"ignore"`
	Journal  string        `mapstructure:"journal"` // JSONL activity journal; empty disables it
}

// Config holds all runtime configuration for lochist.
// Values are populated from .lochist.yaml, LOCHIST_* env vars, and CLI flags.
type Config struct {
	StorageRoot string           `mapstructure:"storage_root"`
	GitPath     string           `mapstructure:"git_path"`
	Verbose     bool             `mapstructure:"verbose"`
	AutoCleanup bool             `mapstructure:"auto_cleanup"`
	Retention   RetentionConfig  `mapstructure:"retention"`
	GC          GCConfig         `mapstructure:"gc"`
	LargeFiles  LargeFilesConfig `mapstructure:"large_files"`
	Watch       WatchConfig      `mapstructure:"watch"`
}

// Retention policy names accepted in configuration.
const (
	PolicyForever = "forever"
	PolicyDays    = "days"
	PolicyCommits = "commits"
	PolicySize    = "size"
)

// Large-file strategy names accepted in configuration.
const (
	StrategyWarn  = "warn"
	StrategySkip  = "skip"
	StrategyError = "error"
	StrategyLFS   = "lfs"
)

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags. An empty StorageRoot
// means the history engine's default location.
func Load() (Config, error) {
	viper.SetDefault("storage_root", "")
	viper.SetDefault("git_path", "git")
	viper.SetDefault("verbose", false)
	viper.SetDefault("auto_cleanup", false)
	viper.SetDefault("retention.policy", PolicyForever)
	viper.SetDefault("retention.value", 0)
	viper.SetDefault("gc.enabled", true)
	viper.SetDefault("gc.commits_threshold", 1000)
	viper.SetDefault("gc.size_threshold_mb", 100)
	viper.SetDefault("gc.aggressive", false)
	viper.SetDefault("large_files.threshold_mb", 50)
	viper.SetDefault("large_files.strategy", StrategyWarn)
	viper.SetDefault("large_files.exclude_from_history", false)
	viper.SetDefault("watch.debounce", 500*time.Millisecond)
	viper.SetDefault("watch.ignore", []string{})
	viper.SetDefault("watch.journal", "")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Retention.Policy = strings.ToLower(cfg.Retention.Policy)
	cfg.LargeFiles.Strategy = strings.ToLower(cfg.LargeFiles.Strategy)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings and numeric ranges.
func (c Config) Validate() error {
	switch c.Retention.Policy {
	case PolicyForever, PolicyDays, PolicyCommits, PolicySize:
	default:
		return fmt.Errorf("retention.policy: unknown policy %q (want forever, days, commits, or size)", c.Retention.Policy)
	}
	if c.Retention.Policy != PolicyForever && c.Retention.Value == 0 {
		return fmt.Errorf("retention.value: must be positive for policy %q", c.Retention.Policy)
	}
	switch c.LargeFiles.Strategy {
	case StrategyWarn, StrategySkip, StrategyError, StrategyLFS:
	default:
		return fmt.Errorf("large_files.strategy: unknown strategy %q (want warn, skip, error, or lfs)", c.LargeFiles.Strategy)
	}
	if c.GC.CommitsThreshold < 0 {
		return fmt.Errorf("gc.commits_threshold: must not be negative")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce: must not be negative")
	}
	return nil
}

// EnvKeyReplacer maps nested config keys to environment variable names, so
// gc.commits_threshold is read from LOCHIST_GC_COMMITS_THRESHOLD.
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}
