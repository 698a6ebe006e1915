package gitcli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Compactor runs git's own maintenance commands against a repository.
type Compactor struct {
	Binary string
	Logger *zerolog.Logger
}

// Compact runs git gc on the repository at gitDir. pruneNow discards every
// unreachable object immediately instead of honouring the default grace
// period.
func (c Compactor) Compact(ctx context.Context, gitDir string, aggressive, pruneNow bool) error {
	args := []string{"gc", "--quiet"}
	if aggressive {
		args = append(args, "--aggressive")
	}
	if pruneNow {
		args = append(args, "--prune=now")
	}
	_, err := c.repo(gitDir).run(ctx, args...)
	return err
}

// ExpireReflog drops every reflog entry so that rewritten history becomes
// unreachable.
func (c Compactor) ExpireReflog(ctx context.Context, gitDir string) error {
	_, err := c.repo(gitDir).run(ctx, "reflog", "expire", "--expire=now", "--all")
	return err
}

func (c Compactor) repo(gitDir string) *Repo {
	return &Repo{GitDir: gitDir, Binary: c.Binary, Logger: c.Logger}
}

// Fsck checks object connectivity and validity. A failed check returns an
// *Error whose Stderr carries git's findings.
func (r *Repo) Fsck(ctx context.Context) error {
	_, err := r.run(ctx, "fsck", "--no-progress", "--no-dangling")
	return err
}

// GraftFile returns the path of the repository's graft file.
func (r *Repo) GraftFile() string {
	return filepath.Join(r.GitDir, "info", "grafts")
}

// WriteGrafts replaces the graft file with one line per entry. Each entry is
// a commit id optionally followed by its replacement parents. The file is
// written to a temporary name and renamed into place.
func (r *Repo) WriteGrafts(entries []string) error {
	path := r.GraftFile()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating info directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".grafts-*")
	if err != nil {
		return fmt.Errorf("creating graft file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strings.Join(entries, "\n") + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("writing graft file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing graft file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("installing graft file: %w", err)
	}
	return nil
}

// CopyObjects packs every object reachable from rev and unpacks them into
// dst.
func (r *Repo) CopyObjects(ctx context.Context, dst *Repo, rev string) error {
	pack, err := r.Run(ctx, strings.NewReader(rev+"\n"), nil, "pack-objects", "--revs", "--stdout", "--quiet")
	if err != nil {
		return err
	}
	_, err = dst.Run(ctx, bytes.NewReader(pack), nil, "unpack-objects", "-q")
	return err
}

// ResetHard checks out commit into the work tree and index.
func (r *Repo) ResetHard(ctx context.Context, commit string) error {
	_, err := r.run(ctx, "reset", "--hard", "--quiet", commit)
	return err
}
