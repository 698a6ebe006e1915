package history

import (
	"fmt"
	"strings"
	"time"
)

// RetentionKind names the rule a RetentionPolicy applies.
type RetentionKind int

const (
	// RetainForever keeps every commit.
	RetainForever RetentionKind = iota
	// RetainDays keeps commits no older than Value days.
	RetainDays
	// RetainCommits keeps the Value most recent commits.
	RetainCommits
	// RetainSize keeps everything while the store is at most Value bytes and
	// nothing once it grows past that.
	RetainSize
)

// RetentionPolicy decides which commits survive a cleanup pass. The zero
// value is Forever.
type RetentionPolicy struct {
	Kind  RetentionKind
	Value uint64
}

// Forever returns the policy that never drops history.
func Forever() RetentionPolicy { return RetentionPolicy{Kind: RetainForever} }

// KeepDays returns a policy keeping commits at most n days old. Age is the
// exact elapsed time, so a commit 36 hours old is outside KeepDays(1).
func KeepDays(n uint64) RetentionPolicy { return RetentionPolicy{Kind: RetainDays, Value: n} }

// KeepCommits returns a policy keeping the n most recent commits.
func KeepCommits(n uint64) RetentionPolicy { return RetentionPolicy{Kind: RetainCommits, Value: n} }

// MaxSize returns a policy gating the whole history on the store size in bytes.
func MaxSize(bytes uint64) RetentionPolicy { return RetentionPolicy{Kind: RetainSize, Value: bytes} }

// ParseRetentionPolicy builds a policy from its configuration name. For
// "size" the value is in megabytes.
func ParseRetentionPolicy(name string, value uint64) (RetentionPolicy, error) {
	switch strings.ToLower(name) {
	case "", "forever":
		return Forever(), nil
	case "days":
		return KeepDays(value), nil
	case "commits":
		return KeepCommits(value), nil
	case "size":
		return MaxSize(value * bytesPerMB), nil
	}
	return RetentionPolicy{}, fmt.Errorf("retention policy %q: %w", name, ErrInvalidOperation)
}

// String renders the policy for logs and CLI output.
func (p RetentionPolicy) String() string {
	switch p.Kind {
	case RetainDays:
		return fmt.Sprintf("days(%d)", p.Value)
	case RetainCommits:
		return fmt.Sprintf("commits(%d)", p.Value)
	case RetainSize:
		return fmt.Sprintf("size(%d bytes)", p.Value)
	}
	return "forever"
}

// GCConfig holds the thresholds that make ShouldRunGC report true.
type GCConfig struct {
	Enabled          bool
	CommitsThreshold int
	SizeThresholdMB  uint64
	Aggressive       bool
}

// DefaultGCConfig returns GC enabled at 1000 commits or 100 MB.
func DefaultGCConfig() GCConfig {
	return GCConfig{Enabled: true, CommitsThreshold: 1000, SizeThresholdMB: 100}
}

// LargeFileStrategy selects what a snapshot does with an oversized file.
type LargeFileStrategy int

const (
	// StrategyWarn commits the file and reports a warning.
	StrategyWarn LargeFileStrategy = iota
	// StrategySkip leaves the file out of the commit's tree.
	StrategySkip
	// StrategyError fails the whole snapshot with a *FileTooLargeError.
	StrategyError
	// StrategyLFS records a pointer to the content instead of the content.
	StrategyLFS
)

// ParseLargeFileStrategy maps a configuration name to a strategy.
func ParseLargeFileStrategy(name string) (LargeFileStrategy, error) {
	switch strings.ToLower(name) {
	case "", "warn":
		return StrategyWarn, nil
	case "skip":
		return StrategySkip, nil
	case "error":
		return StrategyError, nil
	case "lfs":
		return StrategyLFS, nil
	}
	return StrategyWarn, fmt.Errorf("large file strategy %q: %w", name, ErrInvalidOperation)
}

// String returns the configuration name of the strategy.
func (s LargeFileStrategy) String() string {
	switch s {
	case StrategySkip:
		return "skip"
	case StrategyError:
		return "error"
	case StrategyLFS:
		return "lfs"
	}
	return "warn"
}

// LargeFileConfig controls the large-file policy applied by snapshots.
type LargeFileConfig struct {
	ThresholdMB        uint64
	Strategy           LargeFileStrategy
	ExcludeFromHistory bool
}

// DefaultLargeFileConfig returns a 50 MB threshold with the Warn strategy.
func DefaultLargeFileConfig() LargeFileConfig {
	return LargeFileConfig{ThresholdMB: 50, Strategy: StrategyWarn}
}

// ThresholdBytes returns the threshold in bytes.
func (c LargeFileConfig) ThresholdBytes() uint64 {
	return c.ThresholdMB * bytesPerMB
}

// FileSizeInfo is the result of CheckFileSize.
type FileSizeInfo struct {
	Path             string
	SizeBytes        uint64
	ExceedsThreshold bool
	ThresholdBytes   uint64
}

// CommitInfo describes one snapshot. Annotation is empty unless one was set.
type CommitInfo struct {
	ID          string
	AuthorName  string
	AuthorEmail string
	Timestamp   time.Time
	Message     string
	Annotation  string
}

// Summary returns the first line of the commit message.
func (c CommitInfo) Summary() string {
	line, _, _ := strings.Cut(c.Message, "\n")
	return line
}

// ShortID returns the first seven characters of the commit id.
func (c CommitInfo) ShortID() string {
	if len(c.ID) > 7 {
		return c.ID[:7]
	}
	return c.ID
}

// SnapshotResult reports what a snapshot recorded. CommitID is empty when
// nothing was staged.
type SnapshotResult struct {
	CommitID     string
	Files        []string // project-relative paths included in the commit
	SkippedFiles []string // project-relative paths left out by the Skip strategy
	Warnings     []string
}

// Committed reports whether the snapshot produced a commit.
func (r *SnapshotResult) Committed() bool {
	return r != nil && r.CommitID != ""
}

// CleanupStats compares the store before and after a cleanup.
type CleanupStats struct {
	CommitsBefore int
	CommitsAfter  int
	SizeBefore    uint64
	SizeAfter     uint64
}

// CommitsRemoved returns how many commits the cleanup dropped.
func (s CleanupStats) CommitsRemoved() int {
	return s.CommitsBefore - s.CommitsAfter
}

// BytesFreed returns how many bytes the cleanup reclaimed, or zero if the
// store grew.
func (s CleanupStats) BytesFreed() uint64 {
	if s.SizeAfter >= s.SizeBefore {
		return 0
	}
	return s.SizeBefore - s.SizeAfter
}

const bytesPerMB = 1024 * 1024
