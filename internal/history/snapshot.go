package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type stageKind int

const (
	stageContent stageKind = iota
	stagePointer
	stageSkip
)

// stagedFile is one file of a snapshot batch after the large-file policy has
// been applied.
type stagedFile struct {
	abs  string
	rel  string
	kind stageKind
}

// Snapshot records the current content of one file in the project's store.
func (m *Manager) Snapshot(ctx context.Context, projectRoot, filePath string) (*SnapshotResult, error) {
	return m.SnapshotFiles(ctx, projectRoot, []string{filePath})
}

// SnapshotFiles records the current content of files as a single commit.
// Files that cannot be read or lie outside projectRoot are reported as
// warnings. No commit is made when nothing is left to stage. Under the Error
// strategy an oversized file fails the whole batch with a *FileTooLargeError
// before anything is staged.
func (m *Manager) SnapshotFiles(ctx context.Context, projectRoot string, files []string) (*SnapshotResult, error) {
	result := &SnapshotResult{}
	if len(files) == 0 {
		return result, nil
	}

	s, unlock, err := m.openLocked(ctx, projectRoot)
	if err != nil {
		return nil, err
	}
	defer unlock()

	batch, err := m.planSnapshot(s, files, result)
	if err != nil {
		return nil, err
	}
	if err := m.stage(ctx, s, batch); err != nil {
		return nil, err
	}
	if len(result.Files) == 0 {
		m.logger.Debug().Str("project", s.ProjectPath).Msg("nothing to snapshot")
		return result, nil
	}

	now := m.now()
	id, err := m.commitIndex(ctx, s, snapshotMessage(result.Files, result.SkippedFiles, now), now)
	if err != nil {
		return nil, err
	}
	result.CommitID = id
	m.logger.Debug().Str("project", s.ProjectPath).Str("commit", id).Int("files", len(result.Files)).Msg("snapshot recorded")
	return result, nil
}

// planSnapshot resolves each file against the project and applies the
// large-file policy.
func (m *Manager) planSnapshot(s *Store, files []string, result *SnapshotResult) ([]stagedFile, error) {
	cfg := m.largeFiles
	seen := make(map[string]bool, len(files))
	var batch []stagedFile

	for _, f := range files {
		abs, err := canonicalPath(f)
		if err != nil {
			result.warn(m, fmt.Sprintf("skipping %s: %v", f, err))
			continue
		}
		rel, ok := relativeTo(s.ProjectPath, abs)
		if !ok {
			result.warn(m, fmt.Sprintf("skipping %s: not inside %s", abs, s.ProjectPath))
			continue
		}
		if seen[rel] {
			continue
		}
		seen[rel] = true

		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			result.warn(m, fmt.Sprintf("skipping %s: is a directory", rel))
			continue
		}
		size, err := m.CheckFileSize(abs)
		if err != nil {
			result.warn(m, fmt.Sprintf("skipping %s: %v", rel, err))
			continue
		}

		sf := stagedFile{abs: abs, rel: rel, kind: stageContent}
		if size.ExceedsThreshold {
			switch cfg.Strategy {
			case StrategyError:
				return nil, &FileTooLargeError{Path: abs, Size: size.SizeBytes, Limit: size.ThresholdBytes}
			case StrategySkip:
				sf.kind = stageSkip
				result.SkippedFiles = append(result.SkippedFiles, rel)
				m.logger.Warn().Str("path", rel).Uint64("size_bytes", size.SizeBytes).
					Uint64("threshold_mb", cfg.ThresholdMB).Msg("skipping large file")
			case StrategyLFS:
				sf.kind = stagePointer
			default:
				result.warn(m, fmt.Sprintf("large file %s is %d bytes, over the %d MB threshold", rel, size.SizeBytes, cfg.ThresholdMB))
				if cfg.ExcludeFromHistory {
					sf.kind = stagePointer
				}
			}
		}
		if sf.kind != stageSkip {
			result.Files = append(result.Files, rel)
		}
		batch = append(batch, sf)
	}
	return batch, nil
}

// stage copies each file into the store's work tree and updates the index.
// Skipped paths are removed from the index so they are absent from the next
// tree. Copies are deleted once staged; the index holds their blobs.
func (m *Manager) stage(ctx context.Context, s *Store, batch []stagedFile) error {
	var add, remove []string
	for _, sf := range batch {
		dst := filepath.Join(s.WorkTree(), filepath.FromSlash(sf.rel))
		switch sf.kind {
		case stageSkip:
			remove = append(remove, sf.rel)
			continue
		case stagePointer:
			pointer, err := pointerFor(sf.abs)
			if err != nil {
				return fmt.Errorf("recording pointer for %s: %w", sf.rel, err)
			}
			if err := writeFileAtomic(dst, pointer); err != nil {
				return err
			}
		default:
			if err := copyFile(sf.abs, dst); err != nil {
				return fmt.Errorf("copying %s into store: %w", sf.rel, err)
			}
		}
		add = append(add, sf.rel)
	}

	if err := s.repo.Add(ctx, add...); err != nil {
		return gitErr("staging files", err)
	}
	if err := s.repo.RemoveCached(ctx, remove...); err != nil {
		return gitErr("unstaging skipped files", err)
	}
	for _, rel := range add {
		if err := os.Remove(filepath.Join(s.WorkTree(), filepath.FromSlash(rel))); err != nil {
			m.logger.Debug().Err(err).Str("path", rel).Msg("removing staged copy")
		}
	}
	return nil
}

// commitIndex writes the index as a commit on top of HEAD and advances HEAD.
func (m *Manager) commitIndex(ctx context.Context, s *Store, message string, when time.Time) (string, error) {
	tree, err := s.repo.WriteTree(ctx)
	if err != nil {
		return "", gitErr("writing tree", err)
	}
	var parents []string
	head, ok, err := s.repo.HeadCommit(ctx)
	if err != nil {
		return "", gitErr("resolving HEAD", err)
	}
	if ok {
		parents = []string{head}
	}
	id, err := s.repo.CommitTree(ctx, tree, parents, message, m.signature(when))
	if err != nil {
		return "", gitErr("creating commit", err)
	}
	if err := s.repo.UpdateRef(ctx, "HEAD", id); err != nil {
		return "", gitErr("advancing HEAD", err)
	}
	return id, nil
}

// snapshotMessage builds the commit message for a batch.
func snapshotMessage(files, skipped []string, when time.Time) string {
	ts := when.Format("2006-01-02 15:04:05")
	var b strings.Builder
	if len(files) == 1 {
		fmt.Fprintf(&b, "Auto-save: %s at %s", files[0], ts)
	} else {
		fmt.Fprintf(&b, "Auto-save: %d files at %s\n", len(files), ts)
		for _, f := range files {
			fmt.Fprintf(&b, "\n  - %s", f)
		}
	}
	if len(skipped) > 0 {
		plural := ""
		if len(skipped) > 1 {
			plural = "s"
		}
		fmt.Fprintf(&b, "\n\n(%d large file%s excluded)", len(skipped), plural)
		for _, f := range skipped {
			fmt.Fprintf(&b, "\n  - %s", f)
		}
	}
	return b.String()
}

// warn records a non-fatal snapshot problem and logs it.
func (r *SnapshotResult) warn(m *Manager, msg string) {
	r.Warnings = append(r.Warnings, msg)
	m.logger.Warn().Msg(msg)
}
