package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// ProjectMetadata is the sidecar that maps a store back to its project.
type ProjectMetadata struct {
	OriginalPath string    `toml:"original_path"`
	CreatedAt    time.Time `toml:"created_at"`
	RenamedFrom  string    `toml:"renamed_from,omitempty"`
}

// loadMetadata reads the metadata sidecar in storeDir. A missing file yields
// os.ErrNotExist; an undecodable one yields ErrParse.
func loadMetadata(storeDir string) (ProjectMetadata, error) {
	path := filepath.Join(storeDir, metadataName)
	data, err := os.ReadFile(path)
	if err != nil {
		return ProjectMetadata{}, fmt.Errorf("reading %s: %w", metadataName, err)
	}
	var meta ProjectMetadata
	if err := toml.Unmarshal(data, &meta); err != nil {
		return ProjectMetadata{}, fmt.Errorf("parsing %s: %w: %w", metadataName, ErrParse, err)
	}
	if meta.OriginalPath == "" {
		return ProjectMetadata{}, fmt.Errorf("%s has no original_path: %w", metadataName, ErrParse)
	}
	return meta, nil
}

// saveMetadata writes the metadata sidecar into storeDir.
func saveMetadata(storeDir string, meta ProjectMetadata) error {
	data, err := toml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", metadataName, err)
	}
	return writeFileAtomic(filepath.Join(storeDir, metadataName), data)
}

// ProjectPathFor returns the project path recorded in a store directory. ok
// is false when the metadata is missing or malformed.
func (m *Manager) ProjectPathFor(storeDir string) (path string, ok bool) {
	meta, err := loadMetadata(storeDir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			m.logger.Debug().Err(err).Str("store", storeDir).Msg("ignoring unreadable project metadata")
		}
		return "", false
	}
	return meta.OriginalPath, true
}

// Metadata returns the metadata sidecar for a project's store.
func (m *Manager) Metadata(projectPath string) (ProjectMetadata, error) {
	canonical, err := canonicalPath(projectPath)
	if err != nil {
		return ProjectMetadata{}, err
	}
	return loadMetadata(m.storeDir(canonical))
}

// ListTrackedProjects returns the project path of every store under the
// storage root, sorted. Directories without readable metadata are skipped.
func (m *Manager) ListTrackedProjects() ([]string, error) {
	entries, err := os.ReadDir(m.storageRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading storage root: %w", err)
	}

	var projects []string
	for _, e := range entries {
		if !e.IsDir() || !isProjectHash(e.Name()) {
			continue
		}
		dir := filepath.Join(m.storageRoot, e.Name())
		if _, err := os.Stat(filepath.Join(dir, gitDirName)); err != nil {
			continue
		}
		if path, ok := m.ProjectPathFor(dir); ok {
			projects = append(projects, path)
		}
	}
	sort.Strings(projects)
	return projects, nil
}

// isProjectHash reports whether name looks like a store directory name.
func isProjectHash(name string) bool {
	if len(name) != 64 {
		return false
	}
	for _, c := range name {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
