package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/papapumpkin/lochist/internal/gitcli"
)

// replay copies commits, given newest first, onto parent in dst in
// chronological order. Trees, authors, timestamps, and messages are kept.
// It returns the new tip, which is parent when commits is empty.
func replay(ctx context.Context, src, dst *gitcli.Repo, commits []gitcli.Commit, parent string) (string, error) {
	for i := len(commits) - 1; i >= 0; i-- {
		c := commits[i]
		tree, err := src.CommitTreeID(ctx, c.ID)
		if err != nil {
			return "", gitErr("reading tree of "+c.ID, err)
		}
		parent, err = dst.ReplayCommit(ctx, c, tree, parent)
		if err != nil {
			return "", gitErr("replaying "+c.ID, err)
		}
	}
	return parent, nil
}

// ExportHistory writes the project's history to a new standalone repository
// at dest with a checked-out working tree. dest must not exist. The exported
// history is linear and oldest first, starting at the oldest retained
// snapshot.
func (m *Manager) ExportHistory(ctx context.Context, projectRoot, dest string) error {
	s, err := m.existing(ctx, projectRoot)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("export target %s already exists: %w", dest, ErrInvalidOperation)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking export target: %w", err)
	}

	if err := m.export(ctx, s, dest); err != nil {
		os.RemoveAll(dest)
		return err
	}
	m.logger.Info().Str("project", s.ProjectPath).Str("dest", dest).Msg("exported history")
	return nil
}

func (m *Manager) export(ctx context.Context, s *Store, dest string) error {
	dst, err := gitcli.Init(ctx, m.gitBinary, dest, dest)
	if err != nil {
		return gitErr("initializing export repository", err)
	}
	dst.Logger = &m.logger

	head, ok, err := s.repo.HeadCommit(ctx)
	if err != nil {
		return gitErr("reading HEAD", err)
	}
	if !ok {
		return nil
	}
	if err := s.repo.CopyObjects(ctx, dst, head); err != nil {
		return gitErr("copying objects", err)
	}
	commits, err := s.repo.Log(ctx)
	if err != nil {
		return gitErr("listing commits", err)
	}
	tip, err := replay(ctx, s.repo, dst, commits, "")
	if err != nil {
		return err
	}
	if err := dst.UpdateRef(ctx, "HEAD", tip); err != nil {
		return gitErr("updating HEAD", err)
	}
	if err := dst.ResetHard(ctx, tip); err != nil {
		return gitErr("checking out export", err)
	}
	return nil
}

// sourceRepo opens an existing repository at path, which is either a work
// tree containing .git or a bare repository.
func (m *Manager) sourceRepo(ctx context.Context, path string) (*gitcli.Repo, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("import source %s does not exist: %w", path, ErrInvalidOperation)
	}
	repo := &gitcli.Repo{GitDir: path, Binary: m.gitBinary, Logger: &m.logger}
	if info, err := os.Stat(filepath.Join(path, gitDirName)); err == nil && info.IsDir() {
		repo.GitDir = filepath.Join(path, gitDirName)
		repo.WorkTree = path
	}
	if err := repo.Validate(ctx); err != nil {
		return nil, gitErr("opening import source", err)
	}
	return repo, nil
}

// ImportHistory replays the history of the repository at src on top of the
// store's current HEAD and returns the number of commits added.
func (m *Manager) ImportHistory(ctx context.Context, projectRoot, src string) (int, error) {
	from, err := m.sourceRepo(ctx, src)
	if err != nil {
		return 0, err
	}
	s, unlock, err := m.openLocked(ctx, projectRoot)
	if err != nil {
		return 0, err
	}
	defer unlock()

	srcHead, ok, err := from.HeadCommit(ctx)
	if err != nil {
		return 0, gitErr("reading import HEAD", err)
	}
	if !ok {
		return 0, nil
	}
	if err := from.CopyObjects(ctx, s.repo, srcHead); err != nil {
		return 0, gitErr("copying objects", err)
	}
	commits, err := from.Log(ctx)
	if err != nil {
		return 0, gitErr("listing import commits", err)
	}
	parent, _, err := s.repo.HeadCommit(ctx)
	if err != nil {
		return 0, gitErr("reading HEAD", err)
	}
	tip, err := replay(ctx, from, s.repo, commits, parent)
	if err != nil {
		return 0, err
	}
	if err := s.repo.UpdateRef(ctx, "HEAD", tip); err != nil {
		return 0, gitErr("updating HEAD", err)
	}
	if err := s.repo.ReadTree(ctx, tip); err != nil {
		return 0, gitErr("refreshing index", err)
	}
	m.logger.Info().Str("project", s.ProjectPath).Str("source", src).Int("commits", len(commits)).Msg("imported history")
	return len(commits), nil
}
