package cmd

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"github.com/papapumpkin/lochist/internal/config"
	"github.com/papapumpkin/lochist/internal/history"
)

func TestCommandsRegistered(t *testing.T) {
	t.Parallel()

	want := []string{
		"snapshot", "log", "show", "diff", "restore", "annotate",
		"cleanup", "gc", "verify", "stats", "backup",
		"projects", "track", "rename", "export", "import", "watch",
	}
	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("expected %q subcommand to be registered on rootCmd", name)
		}
	}
}

func TestCommandFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cmd  string
		flag string
	}{
		{"log", "limit"},
		{"diff", "file"},
		{"restore", "file"},
		{"restore", "output"},
		{"annotate", "remove"},
		{"gc", "aggressive"},
		{"gc", "auto"},
		{"verify", "repair"},
		{"backup", "list"},
		{"backup", "delete"},
		{"watch", "debounce"},
		{"watch", "ignore"},
		{"watch", "journal"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.cmd+"/"+tt.flag, func(t *testing.T) {
			t.Parallel()
			c, _, err := rootCmd.Find([]string{tt.cmd})
			if err != nil {
				t.Fatal(err)
			}
			if c.Flags().Lookup(tt.flag) == nil {
				t.Errorf("expected flag %q on %s", tt.flag, tt.cmd)
			}
		})
	}
}

func TestManagerOptions(t *testing.T) {
	t.Parallel()

	storage := t.TempDir()
	cfg := config.Config{
		StorageRoot: storage,
		GitPath:     "git",
		AutoCleanup: true,
		Retention:   config.RetentionConfig{Policy: config.PolicySize, Value: 10},
		GC:          config.GCConfig{Enabled: true, CommitsThreshold: 7, SizeThresholdMB: 3, Aggressive: true},
		LargeFiles:  config.LargeFilesConfig{ThresholdMB: 2, Strategy: config.StrategySkip, ExcludeFromHistory: true},
	}
	opts, err := managerOptions(cfg)
	if err != nil {
		t.Fatalf("managerOptions: %v", err)
	}
	m, err := history.New(opts...)
	if err != nil {
		t.Fatalf("history.New: %v", err)
	}

	if m.StorageRoot() != storage {
		t.Errorf("StorageRoot = %q, want %q", m.StorageRoot(), storage)
	}
	if got, want := m.RetentionPolicy(), history.MaxSize(10*1024*1024); got != want {
		t.Errorf("RetentionPolicy = %v, want %v", got, want)
	}
	if !m.AutoCleanupEnabled() {
		t.Error("AutoCleanupEnabled = false")
	}
	if got := m.GCConfig(); got.CommitsThreshold != 7 || got.SizeThresholdMB != 3 || !got.Aggressive {
		t.Errorf("GCConfig = %+v", got)
	}
	lf := m.LargeFileConfig()
	if lf.ThresholdMB != 2 || lf.Strategy != history.StrategySkip || !lf.ExcludeFromHistory {
		t.Errorf("LargeFileConfig = %+v", lf)
	}
}

func TestManagerOptions_BadStrategy(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Retention:  config.RetentionConfig{Policy: config.PolicyForever},
		LargeFiles: config.LargeFilesConfig{Strategy: "shred"},
	}
	if _, err := managerOptions(cfg); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func TestSnapshotLogRestore_EndToEnd(t *testing.T) {
	// Not parallel: drives the shared rootCmd and global viper state.
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	viper.Reset()
	t.Cleanup(viper.Reset)

	storage := t.TempDir()
	project := t.TempDir()
	if err := os.WriteFile(filepath.Join(project, "go.mod"), []byte("module x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(project, "main.go")
	if err := os.WriteFile(file, []byte("v1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := execute(t, "--storage-root", storage, "snapshot", file); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := os.WriteFile(file, []byte("v2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := execute(t, "--storage-root", storage, "snapshot", file); err != nil {
		t.Fatalf("second snapshot: %v", err)
	}

	m, err := history.New(history.WithStorageRoot(storage))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	root, err := m.TrackingPath(project)
	if err != nil {
		t.Fatal(err)
	}
	commits, err := m.ListCommits(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 2 {
		t.Fatalf("got %d commits, want 2", len(commits))
	}

	if err := execute(t, "--storage-root", storage, "-C", project, "restore", commits[1].ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v1\n" {
		t.Errorf("restored content = %q, want %q", data, "v1\n")
	}

	if err := execute(t, "--storage-root", storage, "-C", project, "annotate", commits[0].ID, "before", "refactor"); err != nil {
		t.Fatalf("annotate: %v", err)
	}
	note, err := m.Annotation(ctx, root, commits[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if note != "before refactor" {
		t.Errorf("annotation = %q", note)
	}

	if err := execute(t, "--storage-root", storage, "-C", project, "restore", "--output", "x", commits[0].ID); err == nil {
		t.Error("expected error for --output without --file")
	}
}
