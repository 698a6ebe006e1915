package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Annotations maps commit ids to free-text notes. Empty notes are never
// stored.
type Annotations struct {
	Notes map[string]string `json:"annotations"`
}

// NewAnnotations returns an empty set.
func NewAnnotations() *Annotations {
	return &Annotations{Notes: make(map[string]string)}
}

// Get returns the note for id, or "" if there is none.
func (a *Annotations) Get(id string) string {
	if a == nil {
		return ""
	}
	return a.Notes[id]
}

// Set stores text for id. An empty text removes the note.
func (a *Annotations) Set(id, text string) {
	if text == "" {
		delete(a.Notes, id)
		return
	}
	if a.Notes == nil {
		a.Notes = make(map[string]string)
	}
	a.Notes[id] = text
}

// Remove deletes the note for id and reports whether one existed.
func (a *Annotations) Remove(id string) bool {
	if a == nil {
		return false
	}
	_, ok := a.Notes[id]
	delete(a.Notes, id)
	return ok
}

// Len returns the number of notes.
func (a *Annotations) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Notes)
}

// IDs returns the annotated commit ids in sorted order.
func (a *Annotations) IDs() []string {
	if a == nil {
		return nil
	}
	ids := make([]string, 0, len(a.Notes))
	for id := range a.Notes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// loadAnnotations reads the sidecar in storeDir. A missing file yields an
// empty set.
func loadAnnotations(storeDir string) (*Annotations, error) {
	data, err := os.ReadFile(filepath.Join(storeDir, annotationsName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewAnnotations(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", annotationsName, err)
	}
	a := NewAnnotations()
	if err := json.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("parsing %s: %w: %w", annotationsName, ErrParse, err)
	}
	if a.Notes == nil {
		a.Notes = make(map[string]string)
	}
	for id, text := range a.Notes {
		if text == "" {
			delete(a.Notes, id)
		}
	}
	return a, nil
}

// saveAnnotations writes the sidecar in storeDir.
func saveAnnotations(storeDir string, a *Annotations) error {
	if a == nil {
		a = NewAnnotations()
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", annotationsName, err)
	}
	return writeFileAtomic(filepath.Join(storeDir, annotationsName), append(data, '\n'))
}

// LoadAnnotations returns the project's annotation sidecar.
func (m *Manager) LoadAnnotations(ctx context.Context, projectRoot string) (*Annotations, error) {
	s, err := m.Open(ctx, projectRoot)
	if err != nil {
		return nil, err
	}
	return loadAnnotations(s.Dir)
}

// SaveAnnotations replaces the project's annotation sidecar.
func (m *Manager) SaveAnnotations(ctx context.Context, projectRoot string, a *Annotations) error {
	s, unlock, err := m.openLocked(ctx, projectRoot)
	if err != nil {
		return err
	}
	defer unlock()
	return saveAnnotations(s.Dir, a)
}

// Annotate attaches text to a commit. An empty text removes the note.
// commitID may be abbreviated; it is stored under the full id.
func (m *Manager) Annotate(ctx context.Context, projectRoot, commitID, text string) error {
	s, unlock, err := m.openLocked(ctx, projectRoot)
	if err != nil {
		return err
	}
	defer unlock()

	id, err := m.resolveCommit(ctx, s, commitID)
	if err != nil {
		return err
	}
	notes, err := loadAnnotations(s.Dir)
	if err != nil {
		return err
	}
	notes.Set(id, text)
	return saveAnnotations(s.Dir, notes)
}

// RemoveAnnotation deletes a commit's note.
func (m *Manager) RemoveAnnotation(ctx context.Context, projectRoot, commitID string) error {
	return m.Annotate(ctx, projectRoot, commitID, "")
}

// Annotation returns the note for a commit, or "" if there is none.
func (m *Manager) Annotation(ctx context.Context, projectRoot, commitID string) (string, error) {
	s, err := m.Open(ctx, projectRoot)
	if err != nil {
		return "", err
	}
	notes, err := loadAnnotations(s.Dir)
	if err != nil {
		return "", err
	}
	if id, ok, err := s.repo.ResolveCommit(ctx, commitID); err == nil && ok {
		commitID = id
	}
	return notes.Get(commitID), nil
}
