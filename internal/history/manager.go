// Package history implements the local history engine: a private git store
// per project that records a snapshot on every save, prunes itself according
// to a retention policy, and serves diffs and restores.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/papapumpkin/lochist/internal/gitcli"
)

// Default identity recorded on every snapshot commit.
const (
	DefaultAuthorName  = "lochist"
	DefaultAuthorEmail = "lochist@localhost"
)

// Manager owns the backing stores under one storage root. A Manager is meant
// to be used from a single goroutine; cross-process writers are excluded by a
// per-store lock file.
type Manager struct {
	storageRoot string
	gitBinary   string
	authorName  string
	authorEmail string

	gc          GCConfig
	retention   RetentionPolicy
	largeFiles  LargeFileConfig
	autoCleanup bool

	logger    zerolog.Logger
	now       func() time.Time
	compactor Compactor
}

// Option configures a Manager.
type Option func(*Manager)

// WithStorageRoot places backing stores under dir instead of the default
// ~/.lochist/history.
func WithStorageRoot(dir string) Option {
	return func(m *Manager) { m.storageRoot = dir }
}

// WithGCConfig sets the garbage collection thresholds.
func WithGCConfig(cfg GCConfig) Option {
	return func(m *Manager) { m.gc = cfg }
}

// WithRetentionPolicy sets the policy used by cleanup.
func WithRetentionPolicy(p RetentionPolicy) Option {
	return func(m *Manager) { m.retention = p }
}

// WithLargeFileConfig sets the large-file policy applied by snapshots.
func WithLargeFileConfig(cfg LargeFileConfig) Option {
	return func(m *Manager) { m.largeFiles = cfg }
}

// WithAutoCleanup enables or disables AutoCleanupIfNeeded.
func WithAutoCleanup(enabled bool) Option {
	return func(m *Manager) { m.autoCleanup = enabled }
}

// WithLogger replaces the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock replaces time.Now, which stamps commits and evaluates age-based
// retention.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithCompactor replaces the git-backed compaction tool.
func WithCompactor(c Compactor) Option {
	return func(m *Manager) { m.compactor = c }
}

// WithGit sets the git executable used for every store operation.
func WithGit(binary string) Option {
	return func(m *Manager) { m.gitBinary = binary }
}

// WithSignature sets the author recorded on snapshot commits.
func WithSignature(name, email string) Option {
	return func(m *Manager) {
		m.authorName = name
		m.authorEmail = email
	}
}

// New creates a Manager with default settings: Forever retention, GC at 1000
// commits or 100 MB, a 50 MB Warn large-file policy, and auto-cleanup off.
func New(opts ...Option) (*Manager, error) {
	m := &Manager{
		gitBinary:   gitcli.DefaultBinary,
		authorName:  DefaultAuthorName,
		authorEmail: DefaultAuthorEmail,
		gc:          DefaultGCConfig(),
		retention:   Forever(),
		largeFiles:  DefaultLargeFileConfig(),
		logger:      log.Logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.storageRoot == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		m.storageRoot = filepath.Join(home, ".lochist", "history")
	}
	root, err := filepath.Abs(m.storageRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving storage root: %w", err)
	}
	m.storageRoot = root

	if m.compactor == nil {
		m.compactor = gitcli.Compactor{Binary: m.gitBinary, Logger: &m.logger}
	}
	return m, nil
}

// StorageRoot returns the directory holding every backing store.
func (m *Manager) StorageRoot() string { return m.storageRoot }

// Logger returns the logger the manager reports diagnostics through.
func (m *Manager) Logger() zerolog.Logger { return m.logger }

// SetLargeFileConfig replaces the large-file policy.
func (m *Manager) SetLargeFileConfig(cfg LargeFileConfig) { m.largeFiles = cfg }

// LargeFileConfig returns the active large-file policy.
func (m *Manager) LargeFileConfig() LargeFileConfig { return m.largeFiles }

// SetRetentionPolicy replaces the retention policy.
func (m *Manager) SetRetentionPolicy(p RetentionPolicy) { m.retention = p }

// RetentionPolicy returns the active retention policy.
func (m *Manager) RetentionPolicy() RetentionPolicy { return m.retention }

// SetGCConfig replaces the garbage collection thresholds.
func (m *Manager) SetGCConfig(cfg GCConfig) { m.gc = cfg }

// GCConfig returns the active garbage collection thresholds.
func (m *Manager) GCConfig() GCConfig { return m.gc }

// SetAutoCleanupEnabled turns AutoCleanupIfNeeded on or off.
func (m *Manager) SetAutoCleanupEnabled(enabled bool) { m.autoCleanup = enabled }

// AutoCleanupEnabled reports whether AutoCleanupIfNeeded may rewrite history.
func (m *Manager) AutoCleanupEnabled() bool { return m.autoCleanup }

// signature returns the commit identity stamped with when.
func (m *Manager) signature(when time.Time) gitcli.Signature {
	return gitcli.Signature{Name: m.authorName, Email: m.authorEmail, When: when}
}
