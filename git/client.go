package git

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	gogit "github.com/go-git/go-git/v6"
	"github.com/ocuroot/gittools"
	"github.com/ocuroot/ud/lib/process"
)

// MarkerName is the entry whose presence identifies a directory as a checkout.
const MarkerName = ".git"

// Client drives the system git binary. Commands that talk to a remote stream
// their output through Runner so that progress is visible to the operator.
type Client struct {
	Runner process.Runner
	// Binary is the git executable, "git" if empty.
	Binary string
}

func NewClient(runner process.Runner) *Client {
	return &Client{
		Runner: runner,
	}
}

func (c *Client) binary() string {
	if c.Binary == "" {
		return "git"
	}
	return c.Binary
}

// Clone clones a single branch of repository into target.
// Target may or may not exist; git creates it if needed.
func (c *Client) Clone(ctx context.Context, repository, branch, target string) error {
	log.Info("Cloning repository", "repository", repository, "branch", branch, "target", target)
	return process.RunChecked(ctx, c.Runner, "", c.binary(),
		"clone", "--branch", branch, "--progress", repository, target,
	)
}

// Status returns the porcelain status of the working tree at dir.
// An empty result means there are no uncommitted changes.
// gittools has no context-aware Exec, so ctx is only checked before git starts.
func (c *Client) Status(ctx context.Context, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	repo, err := gittools.Open(dir)
	if err != nil {
		return "", fmt.Errorf("failed to open repo: %w", err)
	}
	repo.Client.Binary = c.binary()

	stdout, stderr, err := repo.Client.Exec("status", "--porcelain")
	if err != nil {
		return "", fmt.Errorf("git status: %w\n%s", err, stderr)
	}
	return string(stdout), nil
}

// Fetch fetches branch from the origin remote.
func (c *Client) Fetch(ctx context.Context, dir, branch string) error {
	log.Info("Fetching latest changes", "dir", dir, "remote", "origin", "branch", branch)
	return process.RunChecked(ctx, c.Runner, dir, c.binary(),
		"fetch", "--progress", "origin", branch,
	)
}

// Merge merges origin/<branch> into the current branch.
func (c *Client) Merge(ctx context.Context, dir, branch string) error {
	log.Info("Merging changes", "dir", dir, "from", "origin/"+branch)
	return process.RunChecked(ctx, c.Runner, dir, c.binary(),
		"merge", "origin/"+branch,
	)
}

// Head returns the commit hash HEAD points to in the repository at dir.
func (c *Client) Head(dir string) (string, error) {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("failed to open repo: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get head: %w", err)
	}
	return head.Hash().String(), nil
}
