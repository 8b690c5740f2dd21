package deploy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ocuroot/ud/lib/process"
)

var (
	ErrCheckoutFailed   = errors.New("checkout failed")
	ErrDirtyRepository  = errors.New("repository has uncommitted changes")
	ErrPathTraversal    = errors.New("path traversal attempt detected")
	ErrToolFailed       = errors.New("tool failed")
	ErrUnsafeCleanupDir = errors.New("refusing to remove directory")
)

// CheckoutError is returned when a git command needed to prepare the
// checkout fails.
type CheckoutError struct {
	// Op is the git operation: clone, status, fetch or merge.
	Op  string
	Dir string
	Err error
}

func (e *CheckoutError) Error() string {
	if code := e.ExitCode(); code > 0 {
		return fmt.Sprintf("git %s failed with exit code: %d", e.Op, code)
	}
	return fmt.Sprintf("git %s failed: %v", e.Op, e.Err)
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

func (e *CheckoutError) Is(target error) bool {
	return target == ErrCheckoutFailed
}

// ExitCode returns the exit code of the failed git command, or -1 if git
// did not run to completion.
func (e *CheckoutError) ExitCode() int {
	var exitErr *process.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode
	}
	return -1
}

// DirtyRepositoryError blocks an update of a checkout with local changes.
type DirtyRepositoryError struct {
	Dir    string
	Status string
}

func (e *DirtyRepositoryError) Error() string {
	return fmt.Sprintf("repository at %s has uncommitted changes. Commit or stash changes before updating", e.Dir)
}

func (e *DirtyRepositoryError) Is(target error) bool {
	return target == ErrDirtyRepository
}

// PathTraversalError names a resource path that resolves outside its sandbox.
type PathTraversalError struct {
	Path string
	Root string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("path traversal attempt detected: %s is outside %s", e.Path, e.Root)
}

func (e *PathTraversalError) Is(target error) bool {
	return target == ErrPathTraversal
}

// ToolFailure reports a deployment tool that exited unsuccessfully or
// could not be started.
type ToolFailure struct {
	Command   string
	Arguments []string
	// ExitCode is -1 when the tool could not be started.
	ExitCode int
	Err      error
}

func (e *ToolFailure) commandLine() string {
	if len(e.Arguments) == 0 {
		return e.Command
	}
	return e.Command + " " + strings.Join(e.Arguments, " ")
}

func (e *ToolFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool '%s' could not be run: %v", e.commandLine(), e.Err)
	}
	return fmt.Sprintf("tool '%s' failed with exit code %d", e.commandLine(), e.ExitCode)
}

func (e *ToolFailure) Unwrap() error {
	return e.Err
}

func (e *ToolFailure) Is(target error) bool {
	return target == ErrToolFailed
}
