package history

import (
	"context"
	"time"
)

const (
	day = 24 * time.Hour

	// maxRetentionDays is the largest day count representable as a Duration.
	maxRetentionDays = uint64(1<<63-1) / uint64(day)
)

// ShouldRetain reports whether the active retention policy keeps commit.
// Under Commits(n) a commit not found in the store's history is not kept.
// Under Size the answer is the same for every commit.
func (m *Manager) ShouldRetain(ctx context.Context, projectRoot string, commit CommitInfo) (bool, error) {
	switch m.retention.Kind {
	case RetainForever:
		return true, nil
	case RetainDays:
		return m.withinDays(m.now(), commit.Timestamp), nil
	}

	s, err := m.Open(ctx, projectRoot)
	if err != nil {
		return false, err
	}
	if m.retention.Kind == RetainSize {
		return m.sizeWithinLimit(s)
	}
	commits, err := m.listCommits(ctx, s)
	if err != nil {
		return false, err
	}
	for i, c := range commits {
		if c.ID == commit.ID {
			return uint64(i) < m.retention.Value, nil
		}
	}
	return false, nil
}

// retentionPlan evaluates the policy for every commit of a newest-first
// history and returns one keep flag per commit.
func (m *Manager) retentionPlan(s *Store, commits []CommitInfo) ([]bool, error) {
	keep := make([]bool, len(commits))
	switch m.retention.Kind {
	case RetainForever:
		for i := range keep {
			keep[i] = true
		}
	case RetainDays:
		now := m.now()
		for i, c := range commits {
			keep[i] = m.withinDays(now, c.Timestamp)
		}
	case RetainCommits:
		for i := range keep {
			keep[i] = uint64(i) < m.retention.Value
		}
	case RetainSize:
		ok, err := m.sizeWithinLimit(s)
		if err != nil {
			return nil, err
		}
		for i := range keep {
			keep[i] = ok
		}
	}
	return keep, nil
}

// withinDays reports whether ts is no more than the policy's day count old
// at now.
func (m *Manager) withinDays(now, ts time.Time) bool {
	if m.retention.Value > maxRetentionDays {
		return true
	}
	return now.Sub(ts) <= time.Duration(m.retention.Value)*day
}

// sizeWithinLimit reports whether the store's git directory fits the Size
// policy's byte budget.
func (m *Manager) sizeWithinLimit(s *Store) (bool, error) {
	size, err := dirSize(s.GitDir())
	if err != nil {
		return false, err
	}
	return size <= m.retention.Value, nil
}
