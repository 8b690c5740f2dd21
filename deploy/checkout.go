package deploy

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/ocuroot/ud/config"
	"github.com/ocuroot/ud/git"
	"go.opentelemetry.io/otel/attribute"
)

// GitClient is the set of git operations the checkout needs.
type GitClient interface {
	Clone(ctx context.Context, repository, branch, target string) error
	Status(ctx context.Context, dir string) (string, error)
	Fetch(ctx context.Context, dir, branch string) error
	Merge(ctx context.Context, dir, branch string) error
	Head(dir string) (string, error)
}

var _ GitClient = (*git.Client)(nil)

// hasRepository reports whether dir already holds a checkout.
func hasRepository(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, git.MarkerName))
	return err == nil
}

// Checkout makes sure dir contains the release's repository:
//
//	clean         -> clone
//	not clean     -> reuse an existing checkout (updating it if merge is set),
//	                 or clone into dir when there is none
//
// A clean checkout with merge set is updated straight after the clone.
func (d *Deployer) Checkout(ctx context.Context, release config.Release, dir string) error {
	ctx, span := tracer.Start(ctx, "checkout")
	defer span.End()
	span.SetAttributes(
		attribute.String("repository", release.Repository),
		attribute.String("branch", release.Branch),
		attribute.Bool("clean", release.Clean),
		attribute.Bool("merge", release.Merge),
	)

	if release.Clean {
		if err := d.clone(ctx, release, dir); err != nil {
			return err
		}
	} else if hasRepository(dir) {
		log.Info("Found existing repository", "dir", dir)
		if release.Merge {
			if err := d.Update(ctx, release.Branch, dir); err != nil {
				return err
			}
		}
	} else {
		if err := d.clone(ctx, release, dir); err != nil {
			return err
		}
	}

	if release.Clean && release.Merge {
		// The clone above already has the latest branch state, this
		// normally finds nothing to fetch.
		log.Debug("Updating fresh clone", "dir", dir)
		if err := d.Update(ctx, release.Branch, dir); err != nil {
			return err
		}
	}

	return nil
}

func (d *Deployer) clone(ctx context.Context, release config.Release, dir string) error {
	if err := d.Git.Clone(ctx, release.Repository, release.Branch, dir); err != nil {
		return &CheckoutError{Op: "clone", Dir: dir, Err: err}
	}
	return nil
}

// Update brings an existing checkout up to date with origin/<branch>.
// It refuses to touch a working tree with uncommitted changes.
func (d *Deployer) Update(ctx context.Context, branch, dir string) error {
	log.Info("Updating repository", "dir", dir, "branch", branch)

	status, err := d.Git.Status(ctx, dir)
	if err != nil {
		return &CheckoutError{Op: "status", Dir: dir, Err: err}
	}
	if len(status) > 0 {
		return &DirtyRepositoryError{Dir: dir, Status: status}
	}

	if err := d.Git.Fetch(ctx, dir, branch); err != nil {
		return &CheckoutError{Op: "fetch", Dir: dir, Err: err}
	}
	if err := d.Git.Merge(ctx, dir, branch); err != nil {
		return &CheckoutError{Op: "merge", Dir: dir, Err: err}
	}

	log.Info("Repository updated", "dir", dir)
	return nil
}

func (d *Deployer) head(dir string) string {
	commit, err := d.Git.Head(dir)
	if err != nil {
		log.Warn("Could not read checked out commit", "dir", dir, "error", err)
		return ""
	}
	return commit
}
