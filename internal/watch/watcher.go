// Package watch turns file-system write events under a project directory into
// history snapshots. It stands in for an editor's save pipeline.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"

	"github.com/papapumpkin/lochist/internal/history"
	"github.com/papapumpkin/lochist/internal/telemetry"
)

// DefaultDebounce is how long a file must stay quiet before it is snapshotted.
const DefaultDebounce = 500 * time.Millisecond

// Snapshotter records snapshots and runs the follow-up maintenance.
// *history.Manager satisfies it.
type Snapshotter interface {
	SnapshotFiles(ctx context.Context, projectRoot string, files []string) (*history.SnapshotResult, error)
	AutoCleanupIfNeeded(ctx context.Context, projectRoot string) (*history.CleanupStats, error)
	AutoGCIfNeeded(ctx context.Context, projectRoot string) bool
}

// Event reports one snapshot attempt.
type Event struct {
	Files  []string // absolute paths handed to the snapshotter
	Result *history.SnapshotResult
	Err    error
}

// Config tunes a Watcher.
type Config struct {
	Debounce time.Duration // DefaultDebounce when zero
	Ignore   []string      // globs matched against the relative path and the base name
	Logger   zerolog.Logger
	Journal  *telemetry.Emitter // optional activity journal
}

// skippedDirs are never descended into.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// Watcher snapshots files under Root as they are written.
type Watcher struct {
	Root   string
	Events <-chan Event // read-only external channel

	events   chan Event
	done     chan struct{}
	stopOnce sync.Once
	watcher  *fsnotify.Watcher
	snap     Snapshotter
	debounce time.Duration
	ignore   []glob.Glob
	logger   zerolog.Logger
	journal  *telemetry.Emitter

	// fingerprints holds the content hash of each file at its last snapshot.
	fingerprints map[string]xxh3.Uint128
}

// NewWatcher creates a watcher for the project at root. It fails when an
// ignore pattern does not compile.
func NewWatcher(root string, snap Snapshotter, cfg Config) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	patterns := make([]glob.Glob, 0, len(cfg.Ignore))
	for _, p := range cfg.Ignore {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling ignore pattern %q: %w", p, err)
		}
		patterns = append(patterns, g)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ch := make(chan Event, 16)
	return &Watcher{
		Root:         abs,
		Events:       ch,
		events:       ch,
		done:         make(chan struct{}),
		watcher:      fw,
		snap:         snap,
		debounce:     cfg.Debounce,
		ignore:       patterns,
		logger:       cfg.Logger,
		journal:      cfg.Journal,
		fingerprints: make(map[string]xxh3.Uint128),
	}, nil
}

// Start registers every directory under Root and begins processing events.
// Snapshots run with ctx.
func (w *Watcher) Start(ctx context.Context) error {
	if _, err := w.addTree(w.Root); err != nil {
		w.watcher.Close()
		close(w.done)
		return err
	}
	w.record(telemetry.Event{Kind: telemetry.KindWatchStart})
	go w.loop(ctx)
	return nil
}

// Stop closes the watcher, snapshots whatever is still pending, and closes
// Events. Only the first call has any effect.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.watcher.Close()
		<-w.done
		w.record(telemetry.Event{Kind: telemetry.KindWatchStop})
		close(w.events)
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	pending := make(map[string]time.Time)
	tick := w.debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	errs := w.watcher.Errors
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				w.flush(ctx, keys(pending))
				return
			}
			w.handle(event, pending)

		case <-ticker.C:
			now := time.Now()
			var ready []string
			for file, t := range pending {
				if now.Sub(t) >= w.debounce {
					ready = append(ready, file)
					delete(pending, file)
				}
			}
			w.flush(ctx, ready)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn().Err(err).Str("root", w.Root).Msg("watch error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, pending map[string]time.Time) {
	if w.ignored(event.Name) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if !info.IsDir() {
		pending[event.Name] = time.Now()
		return
	}
	if !event.Has(fsnotify.Create) {
		return
	}
	// Files created before the new directory was registered produce no
	// events of their own.
	files, err := w.addTree(event.Name)
	if err != nil {
		w.logger.Warn().Err(err).Str("dir", event.Name).Msg("watching new directory")
	}
	now := time.Now()
	for _, f := range files {
		pending[f] = now
	}
}

// addTree registers dir and its subdirectories and returns the regular files
// found beneath them.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && w.ignored(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
	return files, err
}

// ignored reports whether path is inside a skipped directory or matches an
// ignore pattern.
func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.Root, path)
	if err != nil {
		return true
	}
	rel = filepath.ToSlash(rel)
	for dir := rel; dir != "." && dir != "/" && dir != ""; dir = filepath.ToSlash(filepath.Dir(dir)) {
		if skippedDirs[filepath.Base(dir)] {
			return true
		}
	}
	base := filepath.Base(path)
	for _, g := range w.ignore {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

// flush snapshots the files whose content changed since their last snapshot
// and then runs auto-cleanup and auto-GC. Failures are reported, never
// fatal.
func (w *Watcher) flush(ctx context.Context, files []string) {
	sort.Strings(files)
	sums := make(map[string]xxh3.Uint128, len(files))
	var changed []string
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		sum := xxh3.Hash128(data)
		if prev, ok := w.fingerprints[f]; ok && prev == sum {
			continue
		}
		sums[f] = sum
		changed = append(changed, f)
	}
	if len(changed) == 0 {
		return
	}

	res, err := w.snap.SnapshotFiles(ctx, w.Root, changed)
	if err != nil {
		w.logger.Warn().Err(err).Int("files", len(changed)).Msg("snapshot failed")
		w.record(telemetry.Event{Kind: telemetry.KindSnapshotFailed, Files: changed, Error: err.Error()})
	} else {
		for f, sum := range sums {
			w.fingerprints[f] = sum
		}
		if res.Committed() {
			w.record(telemetry.Event{Kind: telemetry.KindSnapshot, Commit: res.CommitID, Files: res.Files})
		}
		w.maintain(ctx)
	}
	w.emit(Event{Files: changed, Result: res, Err: err})
}

// maintain runs auto-cleanup and auto-GC after a successful snapshot.
func (w *Watcher) maintain(ctx context.Context) {
	if stats, err := w.snap.AutoCleanupIfNeeded(ctx, w.Root); err != nil {
		w.logger.Warn().Err(err).Msg("auto cleanup failed")
	} else if stats != nil {
		w.logger.Info().Int("removed", stats.CommitsRemoved()).Msg("auto cleanup pruned history")
		w.record(telemetry.Event{Kind: telemetry.KindCleanup, Data: stats})
	}
	if w.snap.AutoGCIfNeeded(ctx, w.Root) {
		w.record(telemetry.Event{Kind: telemetry.KindGC})
	}
}

// record appends evt to the journal, if there is one.
func (w *Watcher) record(evt telemetry.Event) {
	if w.journal == nil {
		return
	}
	evt.Project = w.Root
	if err := w.journal.Emit(evt); err != nil {
		w.logger.Warn().Err(err).Str("kind", evt.Kind).Msg("journal write failed")
	}
}

func (w *Watcher) emit(e Event) {
	select {
	case w.events <- e:
	default:
		w.logger.Debug().Int("files", len(e.Files)).Msg("event channel full, dropping event")
	}
}

func keys(m map[string]time.Time) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
