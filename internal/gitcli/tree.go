package gitcli

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// TreeEntry is one blob listed by ls-tree.
type TreeEntry struct {
	Mode string
	Type string
	ID   string
	Size int64
	Path string // slash-separated, relative to the tree root
}

// Change kinds reported by ChangedFiles.
const (
	ChangeAdded    = "A"
	ChangeDeleted  = "D"
	ChangeModified = "M"
)

// FileChange is one path touched by a commit.
type FileChange struct {
	Status string // one of ChangeAdded, ChangeDeleted, ChangeModified
	Path   string
}

// Add stages the given work tree paths, including paths ignored by any
// .gitignore.
func (r *Repo) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--force", "--"}, paths...)
	_, err := r.run(ctx, args...)
	return err
}

// RemoveCached drops the given paths from the index, leaving the work tree
// alone. Paths that are not staged are ignored.
func (r *Repo) RemoveCached(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"rm", "--cached", "--quiet", "--ignore-unmatch", "--"}, paths...)
	_, err := r.run(ctx, args...)
	return err
}

// WriteTree writes the index as a tree object and returns its id.
func (r *Repo) WriteTree(ctx context.Context) (string, error) {
	return r.run(ctx, "write-tree")
}

// CommitTreeID returns the root tree id of a commit.
func (r *Repo) CommitTreeID(ctx context.Context, commit string) (string, error) {
	return r.run(ctx, "rev-parse", "--verify", "--quiet", commit+"^{tree}")
}

// ListTree returns every blob in the tree of commit, recursively.
func (r *Repo) ListTree(ctx context.Context, commit string) ([]TreeEntry, error) {
	out, err := r.Run(ctx, nil, nil, "ls-tree", "-r", "-z", "--long", commit)
	if err != nil {
		return nil, err
	}
	var entries []TreeEntry
	for _, rec := range bytes.Split(out, []byte{0}) {
		if len(rec) == 0 {
			continue
		}
		meta, path, ok := strings.Cut(string(rec), "\t")
		if !ok {
			return nil, fmt.Errorf("parsing ls-tree record %q", rec)
		}
		fields := strings.Fields(meta)
		if len(fields) != 4 {
			return nil, fmt.Errorf("parsing ls-tree record %q: expected 4 fields", rec)
		}
		if fields[1] != "blob" {
			continue
		}
		size, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing blob size %q: %w", fields[3], err)
		}
		entries = append(entries, TreeEntry{Mode: fields[0], Type: fields[1], ID: fields[2], Size: size, Path: path})
	}
	return entries, nil
}

// CatBlob returns the raw content of a blob. spec is either a blob id or a
// "<commit>:<path>" expression.
func (r *Repo) CatBlob(ctx context.Context, spec string) ([]byte, error) {
	return r.Run(ctx, nil, nil, "cat-file", "blob", spec)
}

// DiffTrees returns the unified patch between two commits, optionally limited
// to paths.
func (r *Repo) DiffTrees(ctx context.Context, from, to string, paths ...string) (string, error) {
	args := []string{"diff-tree", "-r", "-p", "--no-color", "--no-ext-diff", "--no-textconv", from, to}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}
	out, err := r.Run(ctx, nil, nil, args...)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ChangedFiles lists the paths a commit touched relative to its first parent.
// A root commit reports every path as added.
func (r *Repo) ChangedFiles(ctx context.Context, commit string) ([]FileChange, error) {
	out, err := r.Run(ctx, nil, nil, "diff-tree", "-r", "--root", "--no-commit-id", "--name-status", "-z", commit)
	if err != nil {
		return nil, err
	}
	fields := strings.Split(strings.TrimRight(string(out), "\x00"), "\x00")
	var changes []FileChange
	for i := 0; i+1 < len(fields); i += 2 {
		status := fields[i]
		if status == "" {
			continue
		}
		switch status[0] {
		case 'A':
			status = ChangeAdded
		case 'D':
			status = ChangeDeleted
		default:
			status = ChangeModified
		}
		changes = append(changes, FileChange{Status: status, Path: fields[i+1]})
	}
	return changes, nil
}

// ReadTree replaces the index with the tree of commit, leaving the work tree
// alone.
func (r *Repo) ReadTree(ctx context.Context, commit string) error {
	_, err := r.run(ctx, "read-tree", commit)
	return err
}
