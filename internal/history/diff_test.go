package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiffBetween(t *testing.T) {
	t.Parallel()
	m, project := newTestManager(t)
	ctx := context.Background()

	first := save(t, m, project, "test.txt", "Line 1\nLine 2\n")
	second := save(t, m, project, "test.txt", "Line 1\nLine 2 Modified\nLine 3\n")

	patch, err := m.DiffBetween(ctx, project, first, second, "")
	if err != nil {
		t.Fatalf("DiffBetween: %v", err)
	}
	for _, want := range []string{"-Line 2", "+Line 2 Modified", "+Line 3"} {
		if !strings.Contains(patch, want) {
			t.Errorf("patch missing %q:\n%s", want, patch)
		}
	}

	same, err := m.DiffBetween(ctx, project, second, second, "")
	if err != nil || same != "" {
		t.Errorf("identical trees diff = %q, %v", same, err)
	}
}

func TestDiffBetweenPathFilter(t *testing.T) {
	t.Parallel()
	m, project := newTestManager(t)
	ctx := context.Background()

	a := writeFile(t, project, "a.txt", "a1\n")
	b := writeFile(t, project, "b.txt", "b1\n")
	first, err := m.SnapshotFiles(ctx, project, []string{a, b})
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, project, "a.txt", "a2\n")
	writeFile(t, project, "b.txt", "b2\n")
	second, err := m.SnapshotFiles(ctx, project, []string{a, b})
	if err != nil {
		t.Fatal(err)
	}

	for _, filter := range []string{"a.txt", a} {
		patch, err := m.DiffBetween(ctx, project, first.CommitID, second.CommitID, filter)
		if err != nil {
			t.Fatalf("DiffBetween(%s): %v", filter, err)
		}
		if !strings.Contains(patch, "+a2") || strings.Contains(patch, "b.txt") {
			t.Errorf("filtered patch for %s:\n%s", filter, patch)
		}
	}

	outside := filepath.Join(t.TempDir(), "x.txt")
	if _, err := m.DiffBetween(ctx, project, first.CommitID, second.CommitID, outside); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("outside filter err = %v", err)
	}
	if _, err := m.DiffBetween(ctx, project, "deadbeef", second.CommitID, ""); !errors.Is(err, ErrGit) {
		t.Errorf("unknown commit err = %v", err)
	}
}

func TestFilesChanged(t *testing.T) {
	t.Parallel()
	m, project := newTestManager(t)
	ctx := context.Background()

	first := save(t, m, project, "a.txt", "one")
	second := save(t, m, project, "a.txt", "two")
	third := save(t, m, project, "dir/b.txt", "new")

	tests := []struct {
		id   string
		want []FileChange
	}{
		{id: first, want: []FileChange{{Path: "a.txt", Kind: ChangeAdded}}},
		{id: second, want: []FileChange{{Path: "a.txt", Kind: ChangeModified}}},
		{id: third, want: []FileChange{{Path: "dir/b.txt", Kind: ChangeAdded}}},
	}
	for _, tt := range tests {
		got, err := m.FilesChanged(ctx, project, tt.id)
		if err != nil {
			t.Fatalf("FilesChanged: %v", err)
		}
		if len(got) != len(tt.want) || got[0] != tt.want[0] {
			t.Errorf("FilesChanged(%s) = %+v, want %+v", tt.id[:7], got, tt.want)
		}
	}
}

func TestRestoreCommit(t *testing.T) {
	t.Parallel()
	m, project := newTestManager(t)
	ctx := context.Background()

	a := writeFile(t, project, "a.txt", "original a")
	b := writeFile(t, project, "nested/b.txt", "original b")
	res, err := m.SnapshotFiles(ctx, project, []string{a, b})
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, project, "a.txt", "edited a")
	if err := os.RemoveAll(filepath.Join(project, "nested")); err != nil {
		t.Fatal(err)
	}
	untracked := writeFile(t, project, "untracked.txt", "keep me")

	restored, err := m.RestoreCommit(ctx, project, res.CommitID[:10])
	if err != nil {
		t.Fatalf("RestoreCommit: %v", err)
	}
	if len(restored.Restored) != 2 || len(restored.Failed) != 0 {
		t.Errorf("result = %+v", restored)
	}
	for path, want := range map[string]string{a: "original a", b: "original b", untracked: "keep me"} {
		got, err := os.ReadFile(path)
		if err != nil || string(got) != want {
			t.Errorf("%s = %q, %v; want %q", path, got, err, want)
		}
	}
}

func TestRestoreCommitLeavesPointerFiles(t *testing.T) {
	t.Parallel()
	m, project := newTestManager(t, WithLargeFileConfig(LargeFileConfig{ThresholdMB: 1, Strategy: StrategyLFS}))
	ctx := context.Background()

	big := strings.Repeat("x", oneMB+1)
	large := writeFile(t, project, "large.bin", big)
	small := writeFile(t, project, "small.txt", "small")
	res, err := m.SnapshotFiles(ctx, project, []string{large, small})
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, project, "small.txt", "edited")

	restored, err := m.RestoreCommit(ctx, project, res.CommitID)
	if err != nil {
		t.Fatalf("RestoreCommit: %v", err)
	}
	if len(restored.Restored) != 1 || restored.Restored[0] != "small.txt" {
		t.Errorf("Restored = %v", restored.Restored)
	}
	if len(restored.Skipped) != 1 || restored.Skipped[0] != "large.bin" || len(restored.Failed) != 0 {
		t.Errorf("Skipped = %v, Failed = %v", restored.Skipped, restored.Failed)
	}
	got, err := os.ReadFile(large)
	if err != nil || len(got) != len(big) {
		t.Errorf("large.bin = %d bytes, %v; want %d untouched", len(got), err, len(big))
	}
	if got, _ := os.ReadFile(small); string(got) != "small" {
		t.Errorf("small.txt = %q", got)
	}
}

func TestRestoreFileAndEncoding(t *testing.T) {
	t.Parallel()
	m, project := newTestManager(t)
	ctx := context.Background()

	text := save(t, m, project, "a.txt", "text")
	binary := save(t, m, project, "blob.bin", string([]byte{0xff, 0xfe, 0x00, 0x01}))

	data, err := m.RestoreFile(ctx, project, filepath.Join(project, "a.txt"), text)
	if err != nil || string(data) != "text" {
		t.Errorf("RestoreFile(abs) = %q, %v", data, err)
	}
	if _, err := m.FileContentAtCommit(ctx, project, "blob.bin", binary); !errors.Is(err, ErrEncoding) {
		t.Errorf("binary content err = %v, want ErrEncoding", err)
	}
	if _, err := m.RestoreFile(ctx, project, "blob.bin", text); !errors.Is(err, ErrGit) {
		t.Errorf("file absent at commit err = %v, want ErrGit", err)
	}
	if _, err := m.RestoreFile(ctx, project, "a.txt", "0123456789abcdef0123456789abcdef01234567"); !errors.Is(err, ErrGit) {
		t.Errorf("unknown commit err = %v, want ErrGit", err)
	}
}

func TestAnnotations(t *testing.T) {
	t.Parallel()
	m, project := newTestManager(t)
	ctx := context.Background()

	first := save(t, m, project, "a.txt", "one")
	second := save(t, m, project, "a.txt", "two")

	if err := m.Annotate(ctx, project, first[:8], "before refactor"); err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if got, err := m.Annotation(ctx, project, first); err != nil || got != "before refactor" {
		t.Errorf("Annotation = %q, %v", got, err)
	}
	commits, err := m.ListCommits(ctx, project)
	if err != nil {
		t.Fatal(err)
	}
	if commits[0].ID != second || commits[0].Annotation != "" || commits[1].Annotation != "before refactor" {
		t.Errorf("ListCommits annotations = %q, %q", commits[0].Annotation, commits[1].Annotation)
	}
	info, err := m.CommitDetails(ctx, project, first)
	if err != nil || info.Annotation != "before refactor" {
		t.Errorf("CommitDetails = %+v, %v", info, err)
	}

	if err := m.RemoveAnnotation(ctx, project, first); err != nil {
		t.Fatalf("RemoveAnnotation: %v", err)
	}
	notes, err := m.LoadAnnotations(ctx, project)
	if err != nil || notes.Len() != 0 {
		t.Errorf("after remove: %v, %v", notes.IDs(), err)
	}
	if err := m.Annotate(ctx, project, "feedface", "nope"); !errors.Is(err, ErrGit) {
		t.Errorf("annotating unknown commit err = %v", err)
	}
}

func TestMalformedAnnotations(t *testing.T) {
	t.Parallel()
	m, project := newTestManager(t)
	ctx := context.Background()
	save(t, m, project, "a.txt", "one")

	s, err := m.Open(ctx, project)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, annotationsName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := m.LoadAnnotations(ctx, project); !errors.Is(err, ErrParse) {
		t.Errorf("LoadAnnotations err = %v, want ErrParse", err)
	}
	commits, err := m.ListCommits(ctx, project)
	if err != nil || len(commits) != 1 {
		t.Errorf("ListCommits with bad sidecar = %v, %v", commits, err)
	}
}

func TestAnnotationsSet(t *testing.T) {
	t.Parallel()
	a := NewAnnotations()
	a.Set("b", "second")
	a.Set("a", "first")
	a.Set("c", "")
	if a.Len() != 2 || strings.Join(a.IDs(), ",") != "a,b" {
		t.Errorf("IDs = %v", a.IDs())
	}
	if !a.Remove("a") || a.Remove("a") {
		t.Error("Remove did not report presence correctly")
	}
	var missing *Annotations
	if missing.Get("x") != "" || missing.Len() != 0 || missing.IDs() != nil {
		t.Error("nil Annotations is not empty")
	}
	if missing.Remove("x") {
		t.Error("Remove on nil Annotations reported a note")
	}
}
