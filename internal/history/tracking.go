package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// projectMarkers are the entries whose presence makes a directory a project
// root. The first ancestor holding any of them wins.
var projectMarkers = []string{
	".git",
	"Cargo.toml",
	"package.json",
	"pyproject.toml",
	"go.mod",
	"pom.xml",
	"build.gradle",
	"build.gradle.kts",
}

// TrackingKind says whether history is kept per project or per directory of
// loose files.
type TrackingKind int

const (
	// TrackProject keeps history for a detected project root.
	TrackProject TrackingKind = iota
	// TrackSingleFile keeps history for files outside any project, keyed by
	// their parent directory.
	TrackSingleFile
)

// TrackingMode is the resolved history granularity for a file.
type TrackingMode struct {
	Kind TrackingKind
	Root string // project root or the file's directory
}

// IsProject reports whether the mode tracks a project root.
func (t TrackingMode) IsProject() bool { return t.Kind == TrackProject }

// IsSingleFile reports whether the mode tracks a loose file's directory.
func (t TrackingMode) IsSingleFile() bool { return t.Kind == TrackSingleFile }

// Path returns the directory whose store holds the file's history.
func (t TrackingMode) Path() string { return t.Root }

// String renders the mode for CLI output.
func (t TrackingMode) String() string {
	if t.Kind == TrackProject {
		return "project " + t.Root
	}
	return "single-file " + t.Root
}

// DetectTrackingMode walks up from filePath looking for a project marker and
// falls back to tracking the file's own directory.
func (m *Manager) DetectTrackingMode(filePath string) (TrackingMode, error) {
	path, err := canonicalPath(filePath)
	if err != nil {
		return TrackingMode{}, err
	}
	start := filepath.Dir(path)
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		start = path
	}

	for dir := start; ; {
		if hasProjectMarker(dir) {
			return TrackingMode{Kind: TrackProject, Root: dir}, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return TrackingMode{Kind: TrackSingleFile, Root: start}, nil
}

func hasProjectMarker(dir string) bool {
	for _, marker := range projectMarkers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// TrackingPath returns the directory whose store holds filePath's history.
func (m *Manager) TrackingPath(filePath string) (string, error) {
	mode, err := m.DetectTrackingMode(filePath)
	if err != nil {
		return "", err
	}
	return mode.Path(), nil
}

// IsFileInProject reports whether filePath lies under projectPath.
func IsFileInProject(filePath, projectPath string) bool {
	file, err := canonicalPath(filePath)
	if err != nil {
		return false
	}
	project, err := canonicalPath(projectPath)
	if err != nil {
		return false
	}
	_, ok := relativeTo(project, file)
	return ok
}

// relativeTo returns path relative to root in slash form. ok is false when
// path is root itself or lies outside it.
func relativeTo(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// HandleFileMove resolves the tracking roots of a file before and after a
// move. moved is true when the roots differ, meaning the file's future
// snapshots land in a different store. History is not migrated.
func (m *Manager) HandleFileMove(oldPath, newPath string) (oldRoot, newRoot string, moved bool, err error) {
	oldMode, err := m.DetectTrackingMode(oldPath)
	if err != nil {
		return "", "", false, err
	}
	newMode, err := m.DetectTrackingMode(newPath)
	if err != nil {
		return "", "", false, err
	}
	if oldMode.Root == newMode.Root {
		return "", "", false, nil
	}
	return oldMode.Root, newMode.Root, true, nil
}

// HandleProjectRename moves the store of oldRoot to the store location of
// newRoot and records the rename in its metadata. A project without a store
// is left alone. It fails with ErrInvalidOperation when newRoot already has a
// store.
func (m *Manager) HandleProjectRename(ctx context.Context, oldRoot, newRoot string) error {
	oldProject, err := canonicalPath(oldRoot)
	if err != nil {
		return err
	}
	newProject, err := canonicalPath(newRoot)
	if err != nil {
		return err
	}
	oldDir, newDir := m.storeDir(oldProject), m.storeDir(newProject)

	if _, err := os.Stat(oldDir); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if _, err := os.Stat(newDir); err == nil {
		return fmt.Errorf("store for %s already exists: %w", newProject, ErrInvalidOperation)
	}

	unlock, err := m.lock(m.newStore(oldDir, oldProject))
	if err != nil {
		return err
	}
	// Open handles inside the directory block the rename on Windows.
	unlock()

	if err := os.Rename(oldDir, newDir); err != nil {
		return fmt.Errorf("moving store %s to %s: %w", oldDir, newDir, err)
	}

	s := m.newStore(newDir, newProject)
	if err := s.repo.Validate(ctx); err != nil {
		return gitErr("opening renamed store", err)
	}
	meta, err := loadMetadata(newDir)
	if err != nil {
		meta = ProjectMetadata{CreatedAt: m.now().UTC()}
	}
	meta.OriginalPath = newProject
	meta.RenamedFrom = oldProject
	if err := saveMetadata(newDir, meta); err != nil {
		return err
	}
	m.logger.Info().Str("from", oldProject).Str("to", newProject).Msg("moved history store")
	return nil
}
