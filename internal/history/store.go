package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/papapumpkin/lochist/internal/filelock"
	"github.com/papapumpkin/lochist/internal/gitcli"
)

// Layout of a store directory.
const (
	gitDirName      = ".git"
	workTreeName    = "tree"
	lockFileName    = ".lock"
	metadataName    = "project_metadata.toml"
	annotationsName = "annotations.json"
)

// Store is an opened backing store. It is only valid for the duration of
// the call that produced it.
type Store struct {
	Dir         string // <storage root>/<project hash>
	ProjectPath string // canonical project path the store belongs to

	repo *gitcli.Repo
}

// GitDir returns the store's git directory.
func (s *Store) GitDir() string { return s.repo.GitDir }

// WorkTree returns the directory snapshots are staged from.
func (s *Store) WorkTree() string { return s.repo.WorkTree }

// Repo returns the git handle for the store.
func (s *Store) Repo() *gitcli.Repo { return s.repo }

// ProjectHash returns the hex sha256 of a canonical project path.
func ProjectHash(canonicalPath string) string {
	sum := sha256.Sum256([]byte(canonicalPath))
	return hex.EncodeToString(sum[:])
}

// RepoPath returns the store directory for a project. The result depends only
// on the canonical form of projectPath and the storage root.
func (m *Manager) RepoPath(projectPath string) (string, error) {
	canonical, err := canonicalPath(projectPath)
	if err != nil {
		return "", err
	}
	return m.storeDir(canonical), nil
}

func (m *Manager) storeDir(canonical string) string {
	return filepath.Join(m.storageRoot, ProjectHash(canonical))
}

// newStore builds a Store handle without touching the filesystem.
func (m *Manager) newStore(dir, project string) *Store {
	return &Store{
		Dir:         dir,
		ProjectPath: project,
		repo: &gitcli.Repo{
			GitDir:   filepath.Join(dir, gitDirName),
			WorkTree: filepath.Join(dir, workTreeName),
			Binary:   m.gitBinary,
			Logger:   &m.logger,
		},
	}
}

// Open returns the backing store for projectPath, creating it if it does not
// exist. A store that exists but cannot be opened is deleted and recreated;
// its history is lost.
func (m *Manager) Open(ctx context.Context, projectPath string) (*Store, error) {
	project, err := canonicalPath(projectPath)
	if err != nil {
		return nil, err
	}
	dir := m.storeDir(project)
	s := m.newStore(dir, project)

	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return m.initStore(ctx, s)
	} else if err != nil {
		return nil, fmt.Errorf("checking store %s: %w", dir, err)
	}

	if err := s.repo.Validate(ctx); err != nil {
		m.logger.Warn().Err(err).Str("store", dir).Str("project", project).
			Msg("history store is corrupted, reinitializing")
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("removing corrupted store %s: %w", dir, err)
		}
		return m.initStore(ctx, s)
	}
	if err := os.MkdirAll(s.WorkTree(), 0o755); err != nil {
		return nil, fmt.Errorf("creating store work tree: %w", err)
	}
	return s, nil
}

// existing opens the store for projectPath without creating or repairing
// it. It returns ErrNoStore when the store directory is absent.
func (m *Manager) existing(ctx context.Context, projectPath string) (*Store, error) {
	project, err := canonicalPath(projectPath)
	if err != nil {
		return nil, err
	}
	dir := m.storeDir(project)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", project, ErrNoStore)
	} else if err != nil {
		return nil, fmt.Errorf("checking store %s: %w", dir, err)
	}
	s := m.newStore(dir, project)
	if err := s.repo.Validate(ctx); err != nil {
		return nil, gitErr("opening store", err)
	}
	return s, nil
}

// initStore creates the git repository, work tree, and metadata for s.
func (m *Manager) initStore(ctx context.Context, s *Store) (*Store, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	if _, err := gitcli.Init(ctx, m.gitBinary, s.Dir, s.WorkTree()); err != nil {
		return nil, gitErr("initializing store", err)
	}
	if err := os.MkdirAll(s.WorkTree(), 0o755); err != nil {
		return nil, fmt.Errorf("creating store work tree: %w", err)
	}
	meta := ProjectMetadata{OriginalPath: s.ProjectPath, CreatedAt: m.now().UTC()}
	if err := saveMetadata(s.Dir, meta); err != nil {
		return nil, err
	}
	m.logger.Debug().Str("store", s.Dir).Str("project", s.ProjectPath).Msg("initialized history store")
	return s, nil
}

// lock takes the store's advisory lock. The returned func releases it.
func (m *Manager) lock(s *Store) (func(), error) {
	l, err := filelock.TryLock(filepath.Join(s.Dir, lockFileName))
	if err != nil {
		if errors.Is(err, filelock.ErrLocked) {
			return nil, fmt.Errorf("%s: %w", s.Dir, ErrStoreLocked)
		}
		return nil, err
	}
	return func() {
		if err := l.Unlock(); err != nil {
			m.logger.Warn().Err(err).Str("store", s.Dir).Msg("releasing store lock")
		}
	}, nil
}

// openLocked opens the store for projectPath and takes its lock.
func (m *Manager) openLocked(ctx context.Context, projectPath string) (*Store, func(), error) {
	s, err := m.Open(ctx, projectPath)
	if err != nil {
		return nil, nil, err
	}
	unlock, err := m.lock(s)
	if err != nil {
		return nil, nil, err
	}
	return s, unlock, nil
}

// CommitCount returns the number of commits reachable from the store's HEAD.
func (m *Manager) CommitCount(ctx context.Context, projectPath string) (int, error) {
	s, err := m.Open(ctx, projectPath)
	if err != nil {
		return 0, err
	}
	commits, err := s.repo.Log(ctx)
	if err != nil {
		return 0, gitErr("counting commits", err)
	}
	return len(commits), nil
}

// RepoSize returns the total size in bytes of the store's git directory.
func (m *Manager) RepoSize(ctx context.Context, projectPath string) (uint64, error) {
	s, err := m.Open(ctx, projectPath)
	if err != nil {
		return 0, err
	}
	return dirSize(s.GitDir())
}
