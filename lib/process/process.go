package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
)

// Runner starts a command in a directory and waits for it to exit.
// The returned exit code is only meaningful when err is nil.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (int, error)
}

// Streams are the standard streams handed to child processes.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Inherit returns the streams of the current process.
func Inherit() Streams {
	return Streams{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// ExecRunner runs commands with os/exec, connecting them to Streams so
// progress output and prompts from the child reach the operator directly.
type ExecRunner struct {
	Streams Streams
}

var _ Runner = (*ExecRunner)(nil)

func NewExecRunner() *ExecRunner {
	return &ExecRunner{Streams: Inherit()}
}

func (r *ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = r.Streams.Stdin
	cmd.Stdout = r.Streams.Stdout
	cmd.Stderr = r.Streams.Stderr

	log.Debug("Running command", "dir", dir, "command", name, "args", args)

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// Killed by a signal
			code = 1
		}
		return code, nil
	}
	return 0, fmt.Errorf("failed to start %s: %w", name, err)
}

// ExitError reports a command that ran to completion with a nonzero status.
type ExitError struct {
	Command  string
	Args     []string
	ExitCode int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s failed with exit code %d", e.CommandLine(), e.ExitCode)
}

// CommandLine renders the command and its arguments separated by spaces.
func (e *ExitError) CommandLine() string {
	if len(e.Args) == 0 {
		return e.Command
	}
	return e.Command + " " + strings.Join(e.Args, " ")
}

// RunChecked runs a command and converts a nonzero exit code into an *ExitError.
func RunChecked(ctx context.Context, r Runner, dir string, name string, args ...string) error {
	code, err := r.Run(ctx, dir, name, args...)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{
			Command:  name,
			Args:     args,
			ExitCode: code,
		}
	}
	return nil
}
