package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/papapumpkin/lochist/internal/gitcli"
)

// testClock advances by step on every reading so consecutive commits get
// distinct timestamps.
type testClock struct {
	t    time.Time
	step time.Duration
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), step: time.Minute}
}

func (c *testClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func requireGit(t *testing.T) {
	t.Helper()
	if !gitcli.Available("") {
		t.Skip("git not available")
	}
}

// newTestManager returns a Manager rooted in a temp storage root and an
// empty project directory.
func newTestManager(t *testing.T, opts ...Option) (*Manager, string) {
	t.Helper()
	requireGit(t)
	clock := newTestClock()
	base := []Option{
		WithStorageRoot(t.TempDir()),
		WithLogger(zerolog.Nop()),
		WithClock(clock.now),
	}
	m, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	project, err := canonicalPath(t.TempDir())
	if err != nil {
		t.Fatalf("canonicalPath: %v", err)
	}
	return m, project
}

// writeFile writes content to rel under dir and returns the absolute path.
func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	return path
}

// save writes rel and snapshots it, failing the test if no commit results.
func save(t *testing.T, m *Manager, project, rel, content string) string {
	t.Helper()
	path := writeFile(t, project, rel, content)
	res, err := m.Snapshot(context.Background(), project, path)
	if err != nil {
		t.Fatalf("Snapshot(%s): %v", rel, err)
	}
	if !res.Committed() {
		t.Fatalf("Snapshot(%s) made no commit; warnings: %v", rel, res.Warnings)
	}
	return res.CommitID
}

func commitCount(t *testing.T, m *Manager, project string) int {
	t.Helper()
	n, err := m.CommitCount(context.Background(), project)
	if err != nil {
		t.Fatalf("CommitCount: %v", err)
	}
	return n
}
