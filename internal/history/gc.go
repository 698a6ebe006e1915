package history

import (
	"context"
)

// Compactor is the external compaction tool used for garbage collection and
// history pruning. gitDir is the store's git directory.
type Compactor interface {
	// Compact repacks the repository. pruneNow discards unreachable objects
	// immediately.
	Compact(ctx context.Context, gitDir string, aggressive, pruneNow bool) error
	// ExpireReflog drops every reflog entry.
	ExpireReflog(ctx context.Context, gitDir string) error
}

// ShouldRunGC reports whether the store has reached the commit count or size
// threshold. It is always false while GC is disabled.
func (m *Manager) ShouldRunGC(ctx context.Context, projectRoot string) (bool, error) {
	if !m.gc.Enabled {
		return false, nil
	}
	s, err := m.Open(ctx, projectRoot)
	if err != nil {
		return false, err
	}
	commits, err := s.repo.Log(ctx)
	if err != nil {
		return false, gitErr("counting commits", err)
	}
	if len(commits) >= m.gc.CommitsThreshold {
		return true, nil
	}
	size, err := dirSize(s.GitDir())
	if err != nil {
		return false, err
	}
	return size/bytesPerMB >= m.gc.SizeThresholdMB, nil
}

// RunGC compacts the project's store. Failures are returned to the caller.
func (m *Manager) RunGC(ctx context.Context, projectRoot string, aggressive bool) error {
	s, unlock, err := m.openLocked(ctx, projectRoot)
	if err != nil {
		return err
	}
	defer unlock()

	if err := m.compactor.Compact(ctx, s.GitDir(), aggressive, false); err != nil {
		return gitErr("gc", err)
	}
	m.logger.Debug().Str("project", s.ProjectPath).Bool("aggressive", aggressive).Msg("gc finished")
	return nil
}

// AutoGCIfNeeded runs GC when ShouldRunGC reports true, using the configured
// aggressiveness. Any failure is logged as a warning and reported as "did not
// run", so it never interrupts the caller.
func (m *Manager) AutoGCIfNeeded(ctx context.Context, projectRoot string) bool {
	should, err := m.ShouldRunGC(ctx, projectRoot)
	if err != nil {
		m.logger.Warn().Err(err).Str("project", projectRoot).Msg("checking gc thresholds failed")
		return false
	}
	if !should {
		return false
	}
	if err := m.RunGC(ctx, projectRoot, m.gc.Aggressive); err != nil {
		m.logger.Warn().Err(err).Str("project", projectRoot).Msg("auto gc failed")
		return false
	}
	return true
}
