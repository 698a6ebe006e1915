package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	backupPrefix     = "backup_"
	backupHashLen    = 12
	backupTimeLayout = "20060102_150405"
)

// Backup is a copy of a store directory kept beside it in the storage root.
type Backup struct {
	Name      string
	Path      string
	CreatedAt time.Time // UTC, parsed from the name
}

// located returns the store for projectRoot without validating it, or
// ErrNoStore when none exists.
func (m *Manager) located(projectRoot string) (*Store, error) {
	project, err := canonicalPath(projectRoot)
	if err != nil {
		return nil, err
	}
	dir := m.storeDir(project)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", project, ErrNoStore)
	} else if err != nil {
		return nil, fmt.Errorf("checking store %s: %w", dir, err)
	}
	return m.newStore(dir, project), nil
}

// backupNamePrefix returns the prefix shared by every backup of s.
func backupNamePrefix(s *Store) string {
	return backupPrefix + filepath.Base(s.Dir)[:backupHashLen] + "_"
}

// CreateBackup copies the project's store to a new backup directory and
// returns the backup's name.
func (m *Manager) CreateBackup(projectRoot string) (string, error) {
	s, err := m.located(projectRoot)
	if err != nil {
		return "", err
	}
	unlock, err := m.lock(s)
	if err != nil {
		return "", err
	}
	defer unlock()
	return m.createBackup(s)
}

func (m *Manager) createBackup(s *Store) (string, error) {
	base := backupNamePrefix(s) + m.now().UTC().Format(backupTimeLayout)
	name := base
	for i := 1; ; i++ {
		if _, err := os.Stat(filepath.Join(m.storageRoot, name)); errors.Is(err, os.ErrNotExist) {
			break
		}
		name = base + "_" + strconv.Itoa(i)
	}
	dst := filepath.Join(m.storageRoot, name)
	if err := copyDir(s.Dir, dst, lockFileName); err != nil {
		os.RemoveAll(dst)
		return "", fmt.Errorf("creating backup %s: %w", name, err)
	}
	m.logger.Info().Str("project", s.ProjectPath).Str("backup", name).Msg("created backup")
	return name, nil
}

// ListBackups returns the project's backups, newest first.
func (m *Manager) ListBackups(projectRoot string) ([]Backup, error) {
	project, err := canonicalPath(projectRoot)
	if err != nil {
		return nil, err
	}
	s := m.newStore(m.storeDir(project), project)
	prefix := backupNamePrefix(s)

	entries, err := os.ReadDir(m.storageRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading storage root: %w", err)
	}
	var backups []Backup
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		stamp := strings.TrimPrefix(e.Name(), prefix)
		if len(stamp) > len(backupTimeLayout) {
			stamp = stamp[:len(backupTimeLayout)]
		}
		created, err := time.Parse(backupTimeLayout, stamp)
		if err != nil {
			continue
		}
		backups = append(backups, Backup{
			Name:      e.Name(),
			Path:      filepath.Join(m.storageRoot, e.Name()),
			CreatedAt: created,
		})
	}
	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].CreatedAt.After(backups[j].CreatedAt)
		}
		return backupSeq(backups[i].Name) > backupSeq(backups[j].Name)
	})
	return backups, nil
}

// backupSeq returns the collision suffix of a backup name, or 0.
func backupSeq(name string) int {
	parts := strings.Split(name, "_")
	if len(parts) < 5 {
		return 0
	}
	n, _ := strconv.Atoi(parts[len(parts)-1])
	return n
}

// backupPath validates that name is one of the project's backups and returns
// its directory.
func (m *Manager) backupPath(s *Store, name string) (string, error) {
	if !strings.HasPrefix(name, backupNamePrefix(s)) || name != filepath.Base(name) {
		return "", fmt.Errorf("backup %q does not belong to %s: %w", name, s.ProjectPath, ErrInvalidOperation)
	}
	path := filepath.Join(m.storageRoot, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("backup %s does not exist: %w", name, ErrInvalidOperation)
	}
	return path, nil
}

// DeleteBackup removes one of the project's backups.
func (m *Manager) DeleteBackup(projectRoot, name string) error {
	project, err := canonicalPath(projectRoot)
	if err != nil {
		return err
	}
	path, err := m.backupPath(m.newStore(m.storeDir(project), project), name)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("deleting backup %s: %w", name, err)
	}
	return nil
}

// restoreBackup replaces the store's contents with the named backup. The lock
// file is left in place so the caller's lock stays valid.
func (m *Manager) restoreBackup(s *Store, name string) error {
	src, err := m.backupPath(s, name)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return fmt.Errorf("reading store: %w", err)
	}
	for _, e := range entries {
		if e.Name() == lockFileName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.Dir, e.Name())); err != nil {
			return fmt.Errorf("clearing store: %w", err)
		}
	}
	if err := copyDir(src, s.Dir, lockFileName); err != nil {
		return fmt.Errorf("restoring backup %s: %w", name, err)
	}
	m.logger.Info().Str("project", s.ProjectPath).Str("backup", name).Msg("restored backup")
	return nil
}
