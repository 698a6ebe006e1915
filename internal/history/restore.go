package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// RestoreResult lists what RestoreCommit wrote.
type RestoreResult struct {
	Restored []string          // project-relative paths written
	Skipped  []string          // paths recorded only as large-file pointers
	Failed   map[string]string // project-relative path to error message
}

// storePath converts a path given by a caller into the slash-separated path
// used inside the store. Absolute paths must lie inside the project.
func storePath(s *Store, path string) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path)), nil
	}
	abs, err := canonicalPath(path)
	if err != nil {
		return "", err
	}
	rel, ok := relativeTo(s.ProjectPath, abs)
	if !ok {
		return "", fmt.Errorf("%s is not inside %s: %w", path, s.ProjectPath, ErrInvalidOperation)
	}
	return rel, nil
}

// RestoreCommit overwrites the project's files with their content at
// commitID, creating missing directories. A file that cannot be written is
// logged and recorded in the result without stopping the rest. Files absent
// from the commit are left alone, as are files the commit holds only as
// large-file pointers; those are listed in Skipped.
func (m *Manager) RestoreCommit(ctx context.Context, projectRoot, commitID string) (*RestoreResult, error) {
	s, unlock, err := m.openLocked(ctx, projectRoot)
	if err != nil {
		return nil, err
	}
	defer unlock()

	id, err := m.resolveCommit(ctx, s, commitID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListTree(ctx, id)
	if err != nil {
		return nil, gitErr("listing tree", err)
	}

	result := &RestoreResult{Failed: make(map[string]string)}
	for _, e := range entries {
		err := m.restoreEntry(ctx, s, e.ID, e.Path)
		switch {
		case errors.Is(err, ErrContentNotStored):
			m.logger.Warn().Str("path", e.Path).Str("commit", id).Msg("content not in history, leaving file untouched")
			result.Skipped = append(result.Skipped, e.Path)
		case err != nil:
			m.logger.Warn().Err(err).Str("path", e.Path).Str("commit", id).Msg("restore failed for file")
			result.Failed[e.Path] = err.Error()
		default:
			result.Restored = append(result.Restored, e.Path)
		}
	}
	m.logger.Info().Str("project", s.ProjectPath).Str("commit", id).Int("restored", len(result.Restored)).
		Int("skipped", len(result.Skipped)).Int("failed", len(result.Failed)).Msg("restored commit")
	return result, nil
}

func (m *Manager) restoreEntry(ctx context.Context, s *Store, blobID, rel string) error {
	data, err := s.repo.CatBlob(ctx, blobID)
	if err != nil {
		return gitErr("reading blob", err)
	}
	if IsPointer(data) {
		return ErrContentNotStored
	}
	dst := filepath.Join(s.ProjectPath, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// RestoreFile returns the bytes of path as recorded at commitID. path is
// project-relative or an absolute path inside the project. It fails with
// ErrContentNotStored when the commit holds only a large-file pointer.
func (m *Manager) RestoreFile(ctx context.Context, projectRoot, path, commitID string) ([]byte, error) {
	s, err := m.Open(ctx, projectRoot)
	if err != nil {
		return nil, err
	}
	id, err := m.resolveCommit(ctx, s, commitID)
	if err != nil {
		return nil, err
	}
	rel, err := storePath(s, path)
	if err != nil {
		return nil, err
	}
	data, err := s.repo.CatBlob(ctx, id+":"+rel)
	if err != nil {
		return nil, gitErr(fmt.Sprintf("reading %s at %s", rel, id), err)
	}
	if IsPointer(data) {
		return nil, fmt.Errorf("%s at %s: %w", rel, id, ErrContentNotStored)
	}
	return data, nil
}

// FileContentAtCommit returns path at commitID as text. It fails with
// ErrEncoding when the content is not valid UTF-8.
func (m *Manager) FileContentAtCommit(ctx context.Context, projectRoot, path, commitID string) (string, error) {
	data, err := m.RestoreFile(ctx, projectRoot, path, commitID)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s at %s: %w", path, commitID, ErrEncoding)
	}
	return string(data), nil
}
