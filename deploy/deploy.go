package deploy

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/ocuroot/ud/config"
	"github.com/ocuroot/ud/git"
	"github.com/ocuroot/ud/lib/process"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Options carries the invocation specific inputs of a deployment.
type Options struct {
	// BaseDir is the directory the deployment is anchored in: the checkout
	// itself in non-clean mode, the parent of the checkout in clean mode.
	BaseDir string
	// ConfigDir is the directory containing the config file. Resources are
	// read from its resources subdirectory.
	ConfigDir string
	// KeepCheckout retains a clean mode checkout after the run.
	KeepCheckout bool
}

// Outcome describes what a deployment did, whether or not it succeeded.
type Outcome struct {
	WorkDir string
	// Commit is the checked out HEAD, empty if it could not be read.
	Commit string

	ToolRan      bool
	ToolExitCode int

	CleanedUp  bool
	CleanupErr error
}

// Deployer runs the deployment pipeline.
type Deployer struct {
	Git    GitClient
	Runner process.Runner
	NewID  NewID
}

// New returns a Deployer that drives the system git binary and runs tools
// attached to the current process's streams.
func New() *Deployer {
	runner := process.NewExecRunner()
	return &Deployer{
		Git:    git.NewClient(runner),
		Runner: runner,
		NewID:  newUUID,
	}
}

// Run resolves the working directory, checks out the repository, copies
// resources and runs the tool, then removes a clean mode checkout.
//
// Failures before the tool runs end the pipeline immediately and nothing is
// cleaned up. A tool failure is returned only after cleanup. The returned
// Outcome is non-nil whenever a working directory was resolved.
func (d *Deployer) Run(ctx context.Context, release config.Release, opts Options) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "deploy")
	defer span.End()

	workDir, err := ResolveWorkDir(opts.BaseDir, release.Clean, d.NewID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("work_dir", workDir))

	out := &Outcome{WorkDir: workDir}

	if err := d.Checkout(ctx, release, workDir); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return out, err
	}
	out.Commit = d.head(workDir)
	log.Info("Repository checked out", "dir", workDir, "commit", out.Commit)

	if err := CopyResources(ctx, opts.ConfigDir, workDir, release.Resources); err != nil {
		// The checkout is left on disk.
		span.SetStatus(codes.Error, err.Error())
		return out, err
	}

	var toolErr error
	if !release.Tool.IsEmpty() {
		out.ToolRan = true
		out.ToolExitCode, toolErr = RunTool(ctx, d.Runner, release.Tool, workDir)
	}

	out.CleanedUp, out.CleanupErr = Cleanup(release.Clean, opts.KeepCheckout, opts.BaseDir, workDir)

	if toolErr != nil {
		span.SetStatus(codes.Error, toolErr.Error())
		return out, toolErr
	}
	return out, nil
}

// IsPathTraversal reports whether err was caused by a resource path leaving
// its sandbox.
func IsPathTraversal(err error) bool {
	return errors.Is(err, ErrPathTraversal)
}
