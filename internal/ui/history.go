package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/papapumpkin/lochist/internal/ansi"
	"github.com/papapumpkin/lochist/internal/history"
)

const timeLayout = "2006-01-02 15:04:05"

// Snapshot reports the outcome of a snapshot.
func (p *Printer) Snapshot(res *history.SnapshotResult) {
	for _, w := range res.Warnings {
		p.Warn(w)
	}
	if !res.Committed() {
		p.Info("nothing to snapshot")
		return
	}
	msg := fmt.Sprintf("snapshot %s (%d file(s))", short(res.CommitID), len(res.Files))
	if len(res.SkippedFiles) > 0 {
		msg += fmt.Sprintf(", %d large file(s) skipped", len(res.SkippedFiles))
	}
	p.Success(msg)
}

// CommitLog prints one line per commit, newest first.
func (p *Printer) CommitLog(commits []history.CommitInfo) {
	if len(commits) == 0 {
		p.Info("no history")
		return
	}
	for _, c := range commits {
		line := fmt.Sprintf("%s  %s  %s", p.paint(c.ShortID(), ansi.Yellow),
			c.Timestamp.Local().Format(timeLayout), c.Summary())
		if c.Annotation != "" {
			line += "  " + p.paint("["+c.Annotation+"]", ansi.Cyan)
		}
		fmt.Fprintln(p.out, line)
	}
}

// CommitDetail prints a commit's header and the paths it touched.
func (p *Printer) CommitDetail(c history.CommitInfo, changes []history.FileChange) {
	fmt.Fprintln(p.out, p.paint("commit "+c.ID, ansi.Yellow))
	fmt.Fprintf(p.out, "Author: %s <%s>\n", c.AuthorName, c.AuthorEmail)
	fmt.Fprintf(p.out, "Date:   %s\n", c.Timestamp.Local().Format(timeLayout))
	if c.Annotation != "" {
		fmt.Fprintf(p.out, "Note:   %s\n", c.Annotation)
	}
	fmt.Fprintln(p.out)
	for _, line := range strings.Split(c.Message, "\n") {
		fmt.Fprintln(p.out, "    "+line)
	}
	if len(changes) == 0 {
		return
	}
	fmt.Fprintln(p.out)
	for _, ch := range changes {
		fmt.Fprintf(p.out, "  %-8s %s\n", ch.Kind, ch.Path)
	}
}

// Restore reports what a restore wrote.
func (p *Printer) Restore(res *history.RestoreResult) {
	paths := make([]string, 0, len(res.Failed))
	for path := range res.Failed {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		p.Warn(fmt.Sprintf("could not restore %s: %s", path, res.Failed[path]))
	}
	for _, path := range res.Skipped {
		p.Warn(fmt.Sprintf("left %s untouched: only a large-file pointer is in history", path))
	}
	p.Success(fmt.Sprintf("restored %d file(s)", len(res.Restored)))
}

// Cleanup reports the effect of a cleanup pass.
func (p *Printer) Cleanup(stats *history.CleanupStats) {
	if stats == nil || stats.CommitsRemoved() == 0 {
		p.Info("nothing to clean up")
		return
	}
	p.Success(fmt.Sprintf("removed %d of %d commit(s), freed %s",
		stats.CommitsRemoved(), stats.CommitsBefore, humanBytes(stats.BytesFreed())))
}

// Integrity prints a verification report.
func (p *Printer) Integrity(r *history.IntegrityReport) {
	for _, e := range r.Errors {
		p.Error(e)
	}
	for _, w := range r.Warnings {
		p.Warn(w)
	}
	if r.Valid {
		p.Success("history store is healthy")
	}
}

// Backups lists backups, newest first.
func (p *Printer) Backups(backups []history.Backup) {
	if len(backups) == 0 {
		p.Info("no backups")
		return
	}
	for _, b := range backups {
		fmt.Fprintf(p.out, "%s  %s\n", b.Name, b.CreatedAt.Local().Format(timeLayout))
	}
}

// Stats prints the aggregate history statistics.
func (p *Printer) Stats(hs *history.HistoryStats) {
	fmt.Fprintln(p.out, p.paint(hs.Project, ansi.Bold))
	fmt.Fprintf(p.out, "  commits:  %d\n", hs.Commits)
	fmt.Fprintf(p.out, "  size:     %s\n", humanBytes(hs.SizeBytes))
	if hs.Range != nil {
		fmt.Fprintf(p.out, "  first:    %s\n", hs.Range.First.Local().Format(timeLayout))
		fmt.Fprintf(p.out, "  last:     %s\n", hs.Range.Last.Local().Format(timeLayout))
	}
	if len(hs.Files) > 0 {
		fmt.Fprintln(p.out, "\n  most changed files:")
		for i, f := range hs.Files {
			if i == 10 {
				break
			}
			fmt.Fprintf(p.out, "    %4d  %s\n", f.Commits, f.Path)
		}
	}
	if len(hs.LargeFiles) > 0 {
		fmt.Fprintln(p.out, "\n  large files:")
		for _, f := range hs.LargeFiles {
			fmt.Fprintf(p.out, "    %10s  %s\n", humanBytes(f.MaxSize), f.Path)
		}
	}
	if len(hs.PerMonth) > 0 {
		fmt.Fprintln(p.out, "\n  commits per month:")
		months := make([]string, 0, len(hs.PerMonth))
		for m := range hs.PerMonth {
			months = append(months, m)
		}
		sort.Strings(months)
		for _, m := range months {
			fmt.Fprintf(p.out, "    %s  %d\n", m, hs.PerMonth[m])
		}
	}
}

func short(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}
