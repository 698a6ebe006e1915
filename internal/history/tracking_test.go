package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDetectTrackingMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		marker   string // created at the project root; empty for none
		file     string
		wantKind TrackingKind
		wantRoot string // relative to the temp dir
	}{
		{name: "go module", marker: "go.mod", file: "pkg/sub/x.go", wantKind: TrackProject, wantRoot: "."},
		{name: "git checkout", marker: ".git", file: "src/main.rs", wantKind: TrackProject, wantRoot: "."},
		{name: "gradle kotlin", marker: "build.gradle.kts", file: "app/Main.kt", wantKind: TrackProject, wantRoot: "."},
		{name: "loose file", file: "notes/todo.txt", wantKind: TrackSingleFile, wantRoot: "notes"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, dir := newTestManager(t)
			if tt.marker != "" {
				if err := os.MkdirAll(filepath.Join(dir, tt.marker), 0o755); err != nil {
					t.Fatal(err)
				}
			}
			file := writeFile(t, dir, tt.file, "x")

			mode, err := m.DetectTrackingMode(file)
			if err != nil {
				t.Fatalf("DetectTrackingMode: %v", err)
			}
			wantRoot := filepath.Join(dir, tt.wantRoot)
			if mode.Kind != tt.wantKind || mode.Path() != wantRoot {
				t.Errorf("mode = %v, want kind %v root %s", mode, tt.wantKind, wantRoot)
			}
			if mode.IsProject() == mode.IsSingleFile() {
				t.Errorf("IsProject and IsSingleFile agree for %v", mode)
			}
			if got, err := m.TrackingPath(file); err != nil || got != wantRoot {
				t.Errorf("TrackingPath = %s, %v", got, err)
			}
		})
	}
}

func TestDetectTrackingModeOnDirectory(t *testing.T) {
	t.Parallel()
	m, dir := newTestManager(t)
	writeFile(t, dir, "package.json", "{}")
	mode, err := m.DetectTrackingMode(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !mode.IsProject() || mode.Root != dir {
		t.Errorf("mode = %v", mode)
	}
}

func TestIsFileInProject(t *testing.T) {
	t.Parallel()
	dir, err := canonicalPath(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		file string
		want bool
	}{
		{file: filepath.Join(dir, "a.txt"), want: true},
		{file: filepath.Join(dir, "deep", "er", "b.txt"), want: true},
		{file: dir, want: false},
		{file: filepath.Join(filepath.Dir(dir), "sibling.txt"), want: false},
		{file: dir + "-suffix", want: false},
	}
	for _, tt := range tests {
		if got := IsFileInProject(tt.file, dir); got != tt.want {
			t.Errorf("IsFileInProject(%s) = %v, want %v", tt.file, got, tt.want)
		}
	}
}

func TestHandleFileMove(t *testing.T) {
	t.Parallel()
	m, dir := newTestManager(t)
	writeFile(t, dir, "one/go.mod", "module one")
	writeFile(t, dir, "two/go.mod", "module two")
	from := writeFile(t, dir, "one/a.go", "package a")
	within := filepath.Join(dir, "one", "sub", "a.go")
	across := filepath.Join(dir, "two", "a.go")

	if _, _, moved, err := m.HandleFileMove(from, within); err != nil || moved {
		t.Errorf("move within project: moved = %v, %v", moved, err)
	}
	oldRoot, newRoot, moved, err := m.HandleFileMove(from, across)
	if err != nil || !moved {
		t.Fatalf("move across projects: moved = %v, %v", moved, err)
	}
	if oldRoot != filepath.Join(dir, "one") || newRoot != filepath.Join(dir, "two") {
		t.Errorf("roots = %s -> %s", oldRoot, newRoot)
	}
}

func TestHandleProjectRename(t *testing.T) {
	t.Parallel()
	m, parent := newTestManager(t)
	ctx := context.Background()
	oldRoot := filepath.Join(parent, "old")
	newRoot := filepath.Join(parent, "new")
	save(t, m, parent, "old/a.txt", "x")
	save(t, m, oldRoot, "a.txt", "history")

	if err := os.Rename(oldRoot, newRoot); err != nil {
		t.Fatal(err)
	}
	if err := m.HandleProjectRename(ctx, oldRoot, newRoot); err != nil {
		t.Fatalf("HandleProjectRename: %v", err)
	}

	oldStore, _ := m.RepoPath(oldRoot)
	if _, err := os.Stat(oldStore); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("old store still present: %v", err)
	}
	if got := commitCount(t, m, newRoot); got != 1 {
		t.Errorf("commits under new root = %d, want 1", got)
	}
	meta, err := m.Metadata(newRoot)
	if err != nil {
		t.Fatal(err)
	}
	if meta.OriginalPath != newRoot || meta.RenamedFrom != oldRoot {
		t.Errorf("metadata = %+v", meta)
	}

	// A project with no store is left alone.
	if err := m.HandleProjectRename(ctx, filepath.Join(parent, "ghost"), filepath.Join(parent, "ghost2")); err != nil {
		t.Errorf("rename without store: %v", err)
	}
	// An existing target store is a conflict.
	if err := m.HandleProjectRename(ctx, newRoot, parent); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("rename onto tracked project err = %v, want ErrInvalidOperation", err)
	}
}

func TestTrackingModeString(t *testing.T) {
	t.Parallel()
	if got := (TrackingMode{Kind: TrackProject, Root: "/p"}).String(); got != "project /p" {
		t.Errorf("String = %q", got)
	}
	if got := (TrackingMode{Kind: TrackSingleFile, Root: "/d"}).String(); got != "single-file /d" {
		t.Errorf("String = %q", got)
	}
}
