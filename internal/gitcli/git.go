// Package gitcli drives the git executable for a single repository whose
// git directory and work tree are always passed explicitly, so commands never
// discover an enclosing repository by walking up from the working directory.
package gitcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultBinary is the git executable used when Repo.Binary is empty.
const DefaultBinary = "git"

// ErrNotRepository is returned by Validate when the git directory cannot be
// opened as a repository.
var ErrNotRepository = errors.New("not a git repository")

// Error describes a failed git invocation.
type Error struct {
	Args   []string
	Stderr string
	Err    error
}

// Error formats the failed command with its stderr, mirroring git's own output.
func (e *Error) Error() string {
	return fmt.Sprintf("git %s: %s: %v", strings.Join(e.Args, " "), e.Stderr, e.Err)
}

// Unwrap returns the underlying process error.
func (e *Error) Unwrap() error { return e.Err }

// ExitCode returns the process exit status, or -1 when git did not run to
// completion.
func (e *Error) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Repo addresses one repository through the git CLI.
type Repo struct {
	GitDir   string // path to the .git directory
	WorkTree string // path to the work tree; empty for object-only commands
	Binary   string // git executable; DefaultBinary when empty

	// Logger receives one debug event per invocation when non-nil.
	Logger *zerolog.Logger
}

// globalArgs are prepended to every invocation so behaviour does not depend on
// the user's git configuration. Paths are always literal: file names may
// contain glob characters.
var globalArgs = []string{
	"-c", "core.autocrlf=false",
	"-c", "core.safecrlf=false",
	"-c", "core.quotepath=false",
	"-c", "advice.graftFileDeprecated=false",
	"-c", "gc.auto=0",
	"--literal-pathspecs",
}

func (r *Repo) binary() string {
	if r.Binary == "" {
		return DefaultBinary
	}
	return r.Binary
}

// Run executes a git subcommand against the repository and returns its raw
// stdout. Extra environment entries in env are appended to the process
// environment.
func (r *Repo) Run(ctx context.Context, stdin io.Reader, env []string, args ...string) ([]byte, error) {
	full := make([]string, 0, len(globalArgs)+len(args)+2)
	full = append(full, globalArgs...)
	full = append(full, "--git-dir="+r.GitDir)
	if r.WorkTree != "" {
		full = append(full, "--work-tree="+r.WorkTree)
	}
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, r.binary(), full...)
	if r.WorkTree != "" {
		cmd.Dir = r.WorkTree
	} else {
		cmd.Dir = r.GitDir
	}
	cmd.Stdin = stdin
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "GIT_CONFIG_NOSYSTEM=1")
	cmd.Env = append(cmd.Env, env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if r.Logger != nil {
		r.Logger.Debug().Str("git_dir", r.GitDir).Strs("args", args).Msg("git")
	}
	if err := cmd.Run(); err != nil {
		return nil, &Error{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}

// run executes a git subcommand and returns its trimmed stdout.
func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	out, err := r.Run(ctx, nil, nil, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Init creates a non-bare repository at dir, whose git directory is dir/.git,
// and returns a Repo for it with the given work tree.
func Init(ctx context.Context, binary, dir, workTree string) (*Repo, error) {
	if binary == "" {
		binary = DefaultBinary
	}
	args := []string{"-c", "init.defaultBranch=main", "init", "--quiet", dir}
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Env = append(os.Environ(), "GIT_CONFIG_NOSYSTEM=1")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &Error{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return &Repo{GitDir: filepath.Join(dir, ".git"), WorkTree: workTree, Binary: binary}, nil
}

// Validate reports whether the git directory holds a readable repository.
func (r *Repo) Validate(ctx context.Context) error {
	if info, err := os.Stat(r.GitDir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s: %w", r.GitDir, ErrNotRepository)
	}
	if _, err := r.run(ctx, "rev-parse", "--git-dir"); err != nil {
		return fmt.Errorf("%s: %w: %w", r.GitDir, ErrNotRepository, err)
	}
	return nil
}

// Available reports whether the git executable can be found on PATH.
func Available(binary string) bool {
	if binary == "" {
		binary = DefaultBinary
	}
	_, err := exec.LookPath(binary)
	return err == nil
}
