package history

import (
	"context"
	"errors"

	"github.com/papapumpkin/lochist/internal/gitcli"
)

// ChangeKind classifies how a commit touched a path.
type ChangeKind string

// Change kinds reported by FilesChanged.
const (
	ChangeAdded    ChangeKind = "added"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeModified ChangeKind = "modified"
)

// FileChange is one path touched by a commit.
type FileChange struct {
	Path string
	Kind ChangeKind
}

// ListCommits returns the project's snapshots, newest first, with any
// annotations filled in.
func (m *Manager) ListCommits(ctx context.Context, projectRoot string) ([]CommitInfo, error) {
	s, err := m.Open(ctx, projectRoot)
	if err != nil {
		return nil, err
	}
	commits, err := m.listCommits(ctx, s)
	if err != nil {
		return nil, err
	}
	notes, err := loadAnnotations(s.Dir)
	if err != nil {
		m.logger.Warn().Err(err).Str("store", s.Dir).Msg("ignoring unreadable annotations")
		return commits, nil
	}
	for i := range commits {
		commits[i].Annotation = notes.Get(commits[i].ID)
	}
	return commits, nil
}

// listCommits returns the store's history without annotations.
func (m *Manager) listCommits(ctx context.Context, s *Store) ([]CommitInfo, error) {
	raw, err := s.repo.Log(ctx)
	if err != nil {
		return nil, gitErr("listing commits", err)
	}
	commits := make([]CommitInfo, 0, len(raw))
	for _, c := range raw {
		commits = append(commits, commitInfo(c))
	}
	return commits, nil
}

func commitInfo(c gitcli.Commit) CommitInfo {
	return CommitInfo{
		ID:          c.ID,
		AuthorName:  c.Author,
		AuthorEmail: c.Email,
		Timestamp:   c.Time,
		Message:     c.Message,
	}
}

// resolveCommit expands id to a full commit id in the store.
func (m *Manager) resolveCommit(ctx context.Context, s *Store, id string) (string, error) {
	full, ok, err := s.repo.ResolveCommit(ctx, id)
	if err != nil {
		return "", gitErr("resolving commit "+id, err)
	}
	if !ok {
		return "", gitErr("resolving commit "+id, errors.New("no such commit"))
	}
	return full, nil
}

// CommitDetails returns one commit with its annotation.
func (m *Manager) CommitDetails(ctx context.Context, projectRoot, commitID string) (CommitInfo, error) {
	s, err := m.Open(ctx, projectRoot)
	if err != nil {
		return CommitInfo{}, err
	}
	id, err := m.resolveCommit(ctx, s, commitID)
	if err != nil {
		return CommitInfo{}, err
	}
	raw, err := s.repo.CommitInfo(ctx, id)
	if err != nil {
		return CommitInfo{}, gitErr("reading commit", err)
	}
	info := commitInfo(raw)
	if notes, err := loadAnnotations(s.Dir); err == nil {
		info.Annotation = notes.Get(id)
	}
	return info, nil
}

// FilesChanged lists the paths a commit added, deleted, or modified relative
// to its parent.
func (m *Manager) FilesChanged(ctx context.Context, projectRoot, commitID string) ([]FileChange, error) {
	s, err := m.Open(ctx, projectRoot)
	if err != nil {
		return nil, err
	}
	id, err := m.resolveCommit(ctx, s, commitID)
	if err != nil {
		return nil, err
	}
	return m.filesChanged(ctx, s, id)
}

func (m *Manager) filesChanged(ctx context.Context, s *Store, id string) ([]FileChange, error) {
	raw, err := s.repo.ChangedFiles(ctx, id)
	if err != nil {
		return nil, gitErr("listing changed files", err)
	}
	changes := make([]FileChange, 0, len(raw))
	for _, c := range raw {
		kind := ChangeModified
		switch c.Status {
		case gitcli.ChangeAdded:
			kind = ChangeAdded
		case gitcli.ChangeDeleted:
			kind = ChangeDeleted
		}
		changes = append(changes, FileChange{Path: c.Path, Kind: kind})
	}
	return changes, nil
}

// DiffBetween returns the unified patch from one commit's tree to another's.
// A non-empty pathFilter limits the patch to that project-relative path.
// Identical trees yield an empty patch.
func (m *Manager) DiffBetween(ctx context.Context, projectRoot, fromCommit, toCommit, pathFilter string) (string, error) {
	s, err := m.Open(ctx, projectRoot)
	if err != nil {
		return "", err
	}
	from, err := m.resolveCommit(ctx, s, fromCommit)
	if err != nil {
		return "", err
	}
	to, err := m.resolveCommit(ctx, s, toCommit)
	if err != nil {
		return "", err
	}
	var paths []string
	if pathFilter != "" {
		rel, err := storePath(s, pathFilter)
		if err != nil {
			return "", err
		}
		paths = append(paths, rel)
	}
	patch, err := s.repo.DiffTrees(ctx, from, to, paths...)
	if err != nil {
		return "", gitErr("diffing commits", err)
	}
	return patch, nil
}
