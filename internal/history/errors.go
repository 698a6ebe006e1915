package history

import (
	"errors"
	"fmt"
)

// Sentinel errors for history store operations.
var (
	// ErrGit indicates the backing git repository rejected an operation.
	ErrGit = errors.New("git operation failed")
	// ErrParse indicates a sidecar file in the store could not be decoded.
	ErrParse = errors.New("malformed history data")
	// ErrInvalidOperation indicates a request that conflicts with existing state,
	// such as renaming a project onto a store that already exists.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrEncoding indicates historical content is not valid UTF-8 text.
	ErrEncoding = errors.New("content is not valid UTF-8")
	// ErrContentNotStored indicates history holds only a large-file pointer
	// for a path, not its content.
	ErrContentNotStored = errors.New("content not stored in history")
	// ErrFileTooLarge indicates a file exceeded the large-file threshold under
	// the Error strategy.
	ErrFileTooLarge = errors.New("file too large")
	// ErrStoreLocked indicates another process holds the store's mutation lock.
	ErrStoreLocked = errors.New("history store is locked")
	// ErrNoStore indicates a read-only operation targeted a project that has
	// never been snapshotted.
	ErrNoStore = errors.New("no history store for project")
)

// GitError wraps a failure from the git executable with the operation that
// triggered it.
type GitError struct {
	Op  string
	Err error
}

// Error returns the operation name followed by git's own message.
func (e *GitError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap exposes both ErrGit and the underlying *gitcli.Error to errors.Is/As.
func (e *GitError) Unwrap() []error {
	return []error{ErrGit, e.Err}
}

// gitErr wraps err as a *GitError unless it is nil.
func gitErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &GitError{Op: op, Err: err}
}

// FileTooLargeError reports a file rejected by the Error large-file strategy.
type FileTooLargeError struct {
	Path  string
	Size  uint64
	Limit uint64
}

// Error describes the rejected file and both sizes in bytes.
func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file %s is %d bytes, exceeding the %d byte limit", e.Path, e.Size, e.Limit)
}

// Is reports whether target is ErrFileTooLarge.
func (e *FileTooLargeError) Is(target error) bool {
	return target == ErrFileTooLarge
}
