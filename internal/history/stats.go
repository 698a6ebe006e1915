package history

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// DateRange spans the oldest and newest snapshot of a store.
type DateRange struct {
	First time.Time
	Last  time.Time
}

// Duration returns the time between the first and last snapshot.
func (r DateRange) Duration() time.Duration {
	return r.Last.Sub(r.First)
}

// FileStat summarises one path across a store's history.
type FileStat struct {
	Path    string
	Commits int    // snapshots that added, modified, or deleted the path
	MaxSize uint64 // largest recorded blob size in bytes
	Large   bool   // MaxSize exceeds the large-file threshold
}

// HistoryStats aggregates the read-side statistics of a store.
type HistoryStats struct {
	Project    string
	Commits    int
	SizeBytes  uint64
	Range      *DateRange // nil when the store has no snapshots
	Files      []FileStat
	LargeFiles []FileStat
	PerDay     map[string]int
	PerWeek    map[string]int
	PerMonth   map[string]int
}

// Bucket key layouts used by the CommitsPer* operations. Keys are in UTC.
const (
	dayKeyLayout   = "2006-01-02"
	monthKeyLayout = "2006-01"
)

func dayKey(t time.Time) string   { return t.UTC().Format(dayKeyLayout) }
func monthKey(t time.Time) string { return t.UTC().Format(monthKeyLayout) }

func weekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// bucketCommits counts commits per key.
func bucketCommits(commits []CommitInfo, key func(time.Time) string) map[string]int {
	counts := make(map[string]int)
	for _, c := range commits {
		counts[key(c.Timestamp)]++
	}
	return counts
}

// dateRange returns the span of a newest-first history.
func dateRange(commits []CommitInfo) (DateRange, bool) {
	if len(commits) == 0 {
		return DateRange{}, false
	}
	return DateRange{First: commits[len(commits)-1].Timestamp, Last: commits[0].Timestamp}, true
}

// DateRange returns the timestamps of the oldest and newest snapshot. ok is
// false when the store is empty.
func (m *Manager) DateRange(ctx context.Context, projectRoot string) (r DateRange, ok bool, err error) {
	commits, err := m.ListCommits(ctx, projectRoot)
	if err != nil {
		return DateRange{}, false, err
	}
	r, ok = dateRange(commits)
	return r, ok, nil
}

// CommitsPerDay counts snapshots per UTC day, keyed YYYY-MM-DD.
func (m *Manager) CommitsPerDay(ctx context.Context, projectRoot string) (map[string]int, error) {
	return m.commitsPer(ctx, projectRoot, dayKey)
}

// CommitsPerWeek counts snapshots per ISO week, keyed YYYY-Www.
func (m *Manager) CommitsPerWeek(ctx context.Context, projectRoot string) (map[string]int, error) {
	return m.commitsPer(ctx, projectRoot, weekKey)
}

// CommitsPerMonth counts snapshots per UTC month, keyed YYYY-MM.
func (m *Manager) CommitsPerMonth(ctx context.Context, projectRoot string) (map[string]int, error) {
	return m.commitsPer(ctx, projectRoot, monthKey)
}

func (m *Manager) commitsPer(ctx context.Context, projectRoot string, key func(time.Time) string) (map[string]int, error) {
	commits, err := m.ListCommits(ctx, projectRoot)
	if err != nil {
		return nil, err
	}
	return bucketCommits(commits, key), nil
}

// PerFileStats returns one entry per path that appears anywhere in the
// history, ordered by descending touch count and then by path.
func (m *Manager) PerFileStats(ctx context.Context, projectRoot string) ([]FileStat, error) {
	s, err := m.Open(ctx, projectRoot)
	if err != nil {
		return nil, err
	}
	commits, err := m.listCommits(ctx, s)
	if err != nil {
		return nil, err
	}
	return m.perFileStats(ctx, s, commits)
}

func (m *Manager) perFileStats(ctx context.Context, s *Store, commits []CommitInfo) ([]FileStat, error) {
	byPath := make(map[string]*FileStat)
	get := func(path string) *FileStat {
		st, ok := byPath[path]
		if !ok {
			st = &FileStat{Path: path}
			byPath[path] = st
		}
		return st
	}

	for _, c := range commits {
		changes, err := m.filesChanged(ctx, s, c.ID)
		if err != nil {
			return nil, err
		}
		for _, ch := range changes {
			get(ch.Path).Commits++
		}
		entries, err := s.repo.ListTree(ctx, c.ID)
		if err != nil {
			return nil, gitErr("listing tree", err)
		}
		for _, e := range entries {
			st := get(e.Path)
			if size := uint64(e.Size); size > st.MaxSize {
				st.MaxSize = size
			}
		}
	}

	threshold := m.largeFiles.ThresholdBytes()
	stats := make([]FileStat, 0, len(byPath))
	for _, st := range byPath {
		st.Large = st.MaxSize > threshold
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Commits != stats[j].Commits {
			return stats[i].Commits > stats[j].Commits
		}
		return stats[i].Path < stats[j].Path
	})
	return stats, nil
}

// largeOnly keeps the large entries of stats, biggest first.
func largeOnly(stats []FileStat) []FileStat {
	var large []FileStat
	for _, st := range stats {
		if st.Large {
			large = append(large, st)
		}
	}
	sort.SliceStable(large, func(i, j int) bool { return large[i].MaxSize > large[j].MaxSize })
	return large
}

// ListLargeFiles returns the paths whose recorded size ever exceeded the
// large-file threshold, biggest first.
func (m *Manager) ListLargeFiles(ctx context.Context, projectRoot string) ([]FileStat, error) {
	stats, err := m.PerFileStats(ctx, projectRoot)
	if err != nil {
		return nil, err
	}
	return largeOnly(stats), nil
}

// HistoryStats computes every statistic for the project in one pass over its
// history. Nothing is cached between calls.
func (m *Manager) HistoryStats(ctx context.Context, projectRoot string) (*HistoryStats, error) {
	s, err := m.Open(ctx, projectRoot)
	if err != nil {
		return nil, err
	}
	commits, err := m.listCommits(ctx, s)
	if err != nil {
		return nil, err
	}
	size, err := dirSize(s.GitDir())
	if err != nil {
		return nil, err
	}
	files, err := m.perFileStats(ctx, s, commits)
	if err != nil {
		return nil, err
	}

	hs := &HistoryStats{
		Project:    s.ProjectPath,
		Commits:    len(commits),
		SizeBytes:  size,
		Files:      files,
		LargeFiles: largeOnly(files),
		PerDay:     bucketCommits(commits, dayKey),
		PerWeek:    bucketCommits(commits, weekKey),
		PerMonth:   bucketCommits(commits, monthKey),
	}
	if r, ok := dateRange(commits); ok {
		hs.Range = &r
	}
	return hs, nil
}
