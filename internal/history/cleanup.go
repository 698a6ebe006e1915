package history

import (
	"context"
	"fmt"
)

// Cleanup applies the retention policy to the project's store. When at least
// one commit is dropped, HEAD is detached at the newest retained commit, the
// oldest retained commit is grafted to have no parents, reflogs are expired,
// and unreachable objects are pruned. When nothing would be dropped, or when
// the policy would drop every commit, the store is left untouched.
func (m *Manager) Cleanup(ctx context.Context, projectRoot string) (*CleanupStats, error) {
	s, unlock, err := m.openLocked(ctx, projectRoot)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return m.cleanup(ctx, s)
}

func (m *Manager) cleanup(ctx context.Context, s *Store) (*CleanupStats, error) {
	commits, err := m.listCommits(ctx, s)
	if err != nil {
		return nil, err
	}
	sizeBefore, err := dirSize(s.GitDir())
	if err != nil {
		return nil, err
	}
	stats := &CleanupStats{
		CommitsBefore: len(commits),
		CommitsAfter:  len(commits),
		SizeBefore:    sizeBefore,
		SizeAfter:     sizeBefore,
	}

	keep, err := m.retentionPlan(s, commits)
	if err != nil {
		return nil, err
	}
	var retained []CommitInfo
	for i, c := range commits {
		if keep[i] {
			retained = append(retained, c)
		}
	}
	if len(retained) == len(commits) {
		return stats, nil
	}
	if len(retained) == 0 {
		m.logger.Warn().Str("project", s.ProjectPath).Stringer("policy", m.retention).
			Msg("retention policy would drop every commit, keeping history")
		return stats, nil
	}

	if err := m.rewriteHistory(ctx, s, retained[0].ID, retained[len(retained)-1].ID); err != nil {
		return nil, err
	}

	after, err := s.repo.Log(ctx)
	if err != nil {
		return nil, gitErr("listing commits after cleanup", err)
	}
	sizeAfter, err := dirSize(s.GitDir())
	if err != nil {
		return nil, err
	}
	stats.CommitsAfter = len(after)
	stats.SizeAfter = sizeAfter
	m.logger.Info().Str("project", s.ProjectPath).Int("removed", stats.CommitsRemoved()).
		Uint64("bytes_freed", stats.BytesFreed()).Msg("history cleaned up")
	return stats, nil
}

// rewriteHistory makes newest the sole tip and oldest a root, then prunes
// everything no longer reachable.
func (m *Manager) rewriteHistory(ctx context.Context, s *Store, newest, oldest string) error {
	parents, err := s.repo.Parents(ctx, oldest)
	if err != nil {
		return gitErr("reading parents of oldest retained commit", err)
	}
	if len(parents) > 0 {
		if err := s.repo.WriteGrafts([]string{oldest}); err != nil {
			return err
		}
	}
	if err := s.repo.DetachHead(ctx, newest); err != nil {
		return gitErr("detaching HEAD", err)
	}
	if err := s.repo.DeleteBranches(ctx); err != nil {
		return gitErr("deleting branches", err)
	}
	if err := m.compactor.ExpireReflog(ctx, s.GitDir()); err != nil {
		m.logger.Warn().Err(err).Str("store", s.Dir).Msg("reflog expire failed")
	}
	if err := m.compactor.Compact(ctx, s.GitDir(), true, true); err != nil {
		return fmt.Errorf("pruning history: %w", gitErr("gc", err))
	}
	return nil
}

// AutoCleanupIfNeeded runs Cleanup when auto-cleanup is enabled and the
// policy is not Forever. It returns nil stats when cleanup did not run or
// removed no commits.
func (m *Manager) AutoCleanupIfNeeded(ctx context.Context, projectRoot string) (*CleanupStats, error) {
	if !m.autoCleanup || m.retention.Kind == RetainForever {
		return nil, nil
	}
	stats, err := m.Cleanup(ctx, projectRoot)
	if err != nil {
		return nil, err
	}
	if stats.CommitsBefore == stats.CommitsAfter {
		return nil, nil
	}
	return stats, nil
}
