package gitcli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature identifies the author and committer of a commit.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

func (s Signature) env() []string {
	date := fmt.Sprintf("%d +0000", s.When.Unix())
	return []string{
		"GIT_AUTHOR_NAME=" + s.Name,
		"GIT_AUTHOR_EMAIL=" + s.Email,
		"GIT_AUTHOR_DATE=" + date,
		"GIT_COMMITTER_NAME=" + s.Name,
		"GIT_COMMITTER_EMAIL=" + s.Email,
		"GIT_COMMITTER_DATE=" + date,
	}
}

// Commit is one entry of the repository history as reported by git log.
type Commit struct {
	ID      string
	Author  string
	Email   string
	Time    time.Time
	Message string
}

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
	logFormat = "--format=%H%x1f%an%x1f%ae%x1f%at%x1f%B%x1e"
)

// HeadCommit resolves HEAD to a commit id. ok is false when the repository
// has no commits yet.
func (r *Repo) HeadCommit(ctx context.Context) (id string, ok bool, err error) {
	return r.ResolveCommit(ctx, "HEAD")
}

// ResolveCommit resolves rev to a full commit id. ok is false when rev does
// not name a commit.
func (r *Repo) ResolveCommit(ctx context.Context, rev string) (id string, ok bool, err error) {
	out, err := r.run(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		var gerr *Error
		if errors.As(err, &gerr) && gerr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, err
	}
	return out, true, nil
}

// Log returns the commits reachable from HEAD, newest first. Grafts in the
// repository are honoured. An unborn HEAD yields an empty history.
func (r *Repo) Log(ctx context.Context) ([]Commit, error) {
	if _, ok, err := r.HeadCommit(ctx); err != nil || !ok {
		return nil, err
	}
	out, err := r.run(ctx, "log", logFormat, "HEAD", "--")
	if err != nil {
		return nil, err
	}
	return parseLog(out)
}

// CommitInfo returns a single commit by id.
func (r *Repo) CommitInfo(ctx context.Context, id string) (Commit, error) {
	out, err := r.run(ctx, "log", "-1", logFormat, id, "--")
	if err != nil {
		return Commit{}, err
	}
	commits, err := parseLog(out)
	if err != nil {
		return Commit{}, err
	}
	if len(commits) == 0 {
		return Commit{}, fmt.Errorf("commit %s: no such commit", id)
	}
	return commits[0], nil
}

// parseLog splits the record-separated output of logFormat.
func parseLog(out string) ([]Commit, error) {
	var commits []Commit
	for _, rec := range strings.Split(out, recordSep) {
		rec = strings.TrimLeft(rec, "\n")
		if rec == "" {
			continue
		}
		fields := strings.SplitN(rec, fieldSep, 5)
		if len(fields) != 5 {
			return nil, fmt.Errorf("parsing git log record %q: expected 5 fields, got %d", rec, len(fields))
		}
		secs, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing commit time %q: %w", fields[3], err)
		}
		commits = append(commits, Commit{
			ID:      fields[0],
			Author:  fields[1],
			Email:   fields[2],
			Time:    time.Unix(secs, 0).UTC(),
			Message: strings.TrimRight(fields[4], "\n"),
		})
	}
	return commits, nil
}

// Parents returns the parent ids of a commit, honouring grafts.
func (r *Repo) Parents(ctx context.Context, id string) ([]string, error) {
	out, err := r.run(ctx, "rev-list", "--parents", "-n", "1", id, "--")
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return nil, fmt.Errorf("commit %s: no such commit", id)
	}
	return fields[1:], nil
}

// CommitTree creates a commit object for tree with the given parents and
// returns its id. HEAD is not moved.
func (r *Repo) CommitTree(ctx context.Context, tree string, parents []string, message string, sig Signature) (string, error) {
	args := []string{"commit-tree", tree}
	for _, p := range parents {
		args = append(args, "-p", p)
	}
	args = append(args, "-F", "-")
	out, err := r.Run(ctx, strings.NewReader(message), sig.env(), args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// UpdateRef points ref at id. HEAD is followed to the branch it names.
func (r *Repo) UpdateRef(ctx context.Context, ref, id string) error {
	_, err := r.run(ctx, "update-ref", ref, id)
	return err
}

// DetachHead points HEAD directly at id without touching any branch.
func (r *Repo) DetachHead(ctx context.Context, id string) error {
	_, err := r.run(ctx, "update-ref", "--no-deref", "HEAD", id)
	return err
}

// DeleteBranches removes every ref under refs/heads.
func (r *Repo) DeleteBranches(ctx context.Context) error {
	out, err := r.run(ctx, "for-each-ref", "--format=%(refname)", "refs/heads")
	if err != nil {
		return err
	}
	for _, ref := range strings.Fields(out) {
		if _, err := r.run(ctx, "update-ref", "-d", ref); err != nil {
			return err
		}
	}
	return nil
}

// ReplayCommit copies a commit's tree onto parent, preserving the original
// author, date, and message, and returns the new commit id.
func (r *Repo) ReplayCommit(ctx context.Context, c Commit, tree, parent string) (string, error) {
	var parents []string
	if parent != "" {
		parents = []string{parent}
	}
	return r.CommitTree(ctx, tree, parents, c.Message, Signature{Name: c.Author, Email: c.Email, When: c.Time})
}
