package history

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

const oneMB = 1024 * 1024

func TestSnapshotSingleFile(t *testing.T) {
	t.Parallel()
	m, project := newTestManager(t)
	ctx := context.Background()

	id := save(t, m, project, "src/main.txt", "hello")
	commits, err := m.ListCommits(ctx, project)
	if err != nil {
		t.Fatalf("ListCommits: %v", err)
	}
	if len(commits) != 1 || commits[0].ID != id {
		t.Fatalf("ListCommits = %+v, want one commit %s", commits, id)
	}
	c := commits[0]
	if !strings.HasPrefix(c.Message, "Auto-save: src/main.txt at 2026-03-01 ") {
		t.Errorf("message = %q", c.Message)
	}
	if c.AuthorName != DefaultAuthorName || c.AuthorEmail != DefaultAuthorEmail {
		t.Errorf("author = %s <%s>", c.AuthorName, c.AuthorEmail)
	}
	got, err := m.FileContentAtCommit(ctx, project, "src/main.txt", id)
	if err != nil || got != "hello" {
		t.Errorf("FileContentAtCommit = %q, %v", got, err)
	}
}

func TestSnapshotBatchIsOneCommit(t *testing.T) {
	t.Parallel()
	m, project := newTestManager(t)
	ctx := context.Background()

	a := writeFile(t, project, "a.txt", "a")
	b := writeFile(t, project, "b.txt", "b")
	res, err := m.SnapshotFiles(ctx, project, []string{a, b, a})
	if err != nil {
		t.Fatalf("SnapshotFiles: %v", err)
	}
	if len(res.Files) != 2 {
		t.Errorf("Files = %v, want 2 entries", res.Files)
	}
	if got := commitCount(t, m, project); got != 1 {
		t.Errorf("commits = %d, want 1", got)
	}
	info, err := m.CommitDetails(ctx, project, res.CommitID)
	if err != nil {
		t.Fatalf("CommitDetails: %v", err)
	}
	if !strings.HasPrefix(info.Message, "Auto-save: 2 files at ") || !strings.Contains(info.Message, "  - b.txt") {
		t.Errorf("message = %q", info.Message)
	}

	// Later snapshots keep files they do not mention.
	id := save(t, m, project, "a.txt", "a2")
	if got, err := m.FileContentAtCommit(ctx, project, "b.txt", id); err != nil || got != "b" {
		t.Errorf("b.txt at latest = %q, %v", got, err)
	}
}

func TestSnapshotWarnsAndSkipsBadPaths(t *testing.T) {
	t.Parallel()
	m, project := newTestManager(t)
	ctx := context.Background()

	outside := writeFile(t, t.TempDir(), "x.txt", "x")
	res, err := m.SnapshotFiles(ctx, project, []string{outside, project + "/missing.txt", project})
	if err != nil {
		t.Fatalf("SnapshotFiles: %v", err)
	}
	if res.Committed() {
		t.Errorf("unexpected commit %s", res.CommitID)
	}
	if len(res.Warnings) != 3 {
		t.Errorf("warnings = %v, want 3", res.Warnings)
	}
	if got := commitCount(t, m, project); got != 0 {
		t.Errorf("commits = %d, want 0", got)
	}

	empty, err := m.SnapshotFiles(ctx, project, nil)
	if err != nil || empty.Committed() {
		t.Errorf("empty batch = %+v, %v", empty, err)
	}
}

func TestCheckFileSizeBoundary(t *testing.T) {
	t.Parallel()
	m, project := newTestManager(t, WithLargeFileConfig(LargeFileConfig{ThresholdMB: 1, Strategy: StrategyWarn}))

	exact := writeFile(t, project, "exact.bin", strings.Repeat("x", oneMB))
	over := writeFile(t, project, "over.bin", strings.Repeat("x", oneMB+1))

	info, err := m.CheckFileSize(exact)
	if err != nil {
		t.Fatal(err)
	}
	if info.ExceedsThreshold || info.SizeBytes != oneMB || info.ThresholdBytes != oneMB {
		t.Errorf("exact: %+v", info)
	}
	large, err := m.IsLargeFile(over)
	if err != nil || !large {
		t.Errorf("IsLargeFile(over) = %v, %v", large, err)
	}
}

func TestLargeFileStrategies(t *testing.T) {
	t.Parallel()
	big := strings.Repeat("x", oneMB+1)

	tests := []struct {
		name         string
		cfg          LargeFileConfig
		wantErr      error
		wantFiles    int
		wantSkipped  int
		wantWarnings bool
		wantPointer  bool
	}{
		{name: "warn", cfg: LargeFileConfig{ThresholdMB: 1, Strategy: StrategyWarn}, wantFiles: 2, wantWarnings: true},
		{name: "warn excluded", cfg: LargeFileConfig{ThresholdMB: 1, Strategy: StrategyWarn, ExcludeFromHistory: true},
			wantFiles: 2, wantWarnings: true, wantPointer: true},
		{name: "skip", cfg: LargeFileConfig{ThresholdMB: 1, Strategy: StrategySkip}, wantFiles: 1, wantSkipped: 1},
		{name: "lfs", cfg: LargeFileConfig{ThresholdMB: 1, Strategy: StrategyLFS}, wantFiles: 2, wantPointer: true},
		{name: "error", cfg: LargeFileConfig{ThresholdMB: 1, Strategy: StrategyError}, wantErr: ErrFileTooLarge},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, project := newTestManager(t, WithLargeFileConfig(tt.cfg))
			ctx := context.Background()
			small := writeFile(t, project, "small.txt", "small")
			large := writeFile(t, project, "large.bin", big)

			res, err := m.SnapshotFiles(ctx, project, []string{small, large})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				var tooLarge *FileTooLargeError
				if !errors.As(err, &tooLarge) || tooLarge.Size != oneMB+1 || tooLarge.Limit != oneMB {
					t.Errorf("err = %#v", err)
				}
				if got := commitCount(t, m, project); got != 0 {
					t.Errorf("commits after rejected batch = %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("SnapshotFiles: %v", err)
			}
			if len(res.Files) != tt.wantFiles || len(res.SkippedFiles) != tt.wantSkipped {
				t.Errorf("files = %v, skipped = %v", res.Files, res.SkippedFiles)
			}
			if (len(res.Warnings) > 0) != tt.wantWarnings {
				t.Errorf("warnings = %v", res.Warnings)
			}

			content, err := m.RestoreFile(ctx, project, "large.bin", res.CommitID)
			if tt.wantSkipped > 0 {
				if err == nil {
					t.Error("skipped file is present in the commit")
				}
				info, _ := m.CommitDetails(ctx, project, res.CommitID)
				if !strings.Contains(info.Message, "(1 large file excluded)\n  - large.bin") {
					t.Errorf("message = %q", info.Message)
				}
				return
			}
			if tt.wantPointer {
				if !errors.Is(err, ErrContentNotStored) {
					t.Errorf("RestoreFile err = %v, want ErrContentNotStored", err)
				}
				s, err := m.Open(ctx, project)
				if err != nil {
					t.Fatal(err)
				}
				blob, err := s.repo.CatBlob(ctx, res.CommitID+":large.bin")
				if err != nil || !IsPointer(blob) {
					t.Errorf("stored blob is not a pointer (len %d, err %v)", len(blob), err)
				}
				return
			}
			if err != nil {
				t.Fatalf("RestoreFile: %v", err)
			}
			if len(content) != oneMB+1 {
				t.Errorf("stored %d bytes, want %d", len(content), oneMB+1)
			}
		})
	}
}

func TestSkipKeepsFilesMatchingAsGlob(t *testing.T) {
	t.Parallel()
	m, project := newTestManager(t, WithLargeFileConfig(LargeFileConfig{ThresholdMB: 1, Strategy: StrategySkip}))
	ctx := context.Background()
	save(t, m, project, "data1.bin", "small data")

	large := writeFile(t, project, "data[1].bin", strings.Repeat("x", oneMB+1))
	notes := writeFile(t, project, "notes.txt", "notes")
	res, err := m.SnapshotFiles(ctx, project, []string{large, notes})
	if err != nil {
		t.Fatalf("SnapshotFiles: %v", err)
	}
	if len(res.SkippedFiles) != 1 {
		t.Errorf("skipped = %v", res.SkippedFiles)
	}
	if got, err := m.FileContentAtCommit(ctx, project, "data1.bin", res.CommitID); err != nil || got != "small data" {
		t.Errorf("data1.bin = %q, %v; want it kept", got, err)
	}
	if _, err := m.RestoreFile(ctx, project, "data[1].bin", res.CommitID); err == nil {
		t.Error("skipped data[1].bin is in the commit")
	}
}

func TestSnapshotMessage(t *testing.T) {
	t.Parallel()
	when := time.Date(2026, 3, 1, 9, 5, 7, 0, time.UTC)

	tests := []struct {
		name    string
		files   []string
		skipped []string
		want    string
	}{
		{name: "single", files: []string{"a.txt"}, want: "Auto-save: a.txt at 2026-03-01 09:05:07"},
		{name: "several", files: []string{"a.txt", "b.txt"},
			want: "Auto-save: 2 files at 2026-03-01 09:05:07\n\n  - a.txt\n  - b.txt"},
		{name: "skipped", files: []string{"a.txt"}, skipped: []string{"x.bin", "y.bin"},
			want: "Auto-save: a.txt at 2026-03-01 09:05:07\n\n(2 large files excluded)\n  - x.bin\n  - y.bin"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := snapshotMessage(tt.files, tt.skipped, when); got != tt.want {
				t.Errorf("snapshotMessage = %q, want %q", got, tt.want)
			}
		})
	}
}
