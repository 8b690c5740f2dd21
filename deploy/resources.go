package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/ocuroot/ud/config"
	"go.opentelemetry.io/otel/attribute"
)

// CopyResources copies each resource from configDir/resources into workDir,
// in order, stopping at the first failure. Files copied before a failure
// are left in place.
func CopyResources(ctx context.Context, configDir, workDir string, resources []config.Resource) error {
	if len(resources) == 0 {
		return nil
	}

	_, span := tracer.Start(ctx, "copy resources")
	defer span.End()
	span.SetAttributes(attribute.Int("resources", len(resources)))

	sourceRoot := filepath.Join(configDir, config.ResourcesDirName)
	for _, r := range resources {
		if err := copyResource(sourceRoot, workDir, r); err != nil {
			return err
		}
	}
	return nil
}

func copyResource(sourceRoot, workDir string, r config.Resource) error {
	source, err := sandboxPath(sourceRoot, r.File)
	if err != nil {
		return fmt.Errorf("resource %s: %w", r.File, err)
	}
	dest, err := sandboxPath(workDir, r.Destination())
	if err != nil {
		return fmt.Errorf("resource %s: %w", r.File, err)
	}

	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("resource %s: %w", r.File, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("resource %s: not a regular file", r.File)
	}

	log.Info("Copying resource", "source", source, "destination", dest)

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("resource %s: failed to create destination directory: %w", r.File, err)
	}
	if err := copyFile(source, dest, info.Mode().Perm()); err != nil {
		return fmt.Errorf("resource %s: %w", r.File, err)
	}
	return nil
}

func copyFile(source, dest string, perm fs.FileMode) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// OpenFile only applies perm to new files
	return os.Chmod(dest, perm)
}

// sandboxPath joins rel onto root and returns the fully resolved result,
// failing with a *PathTraversalError if the result is outside root once
// symlinks are followed. Paths that don't exist yet are resolved through
// their nearest existing ancestor.
func sandboxPath(root, rel string) (string, error) {
	if rel == "" {
		return "", errors.New("empty path")
	}
	if filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", &PathTraversalError{Path: rel, Root: root}
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	resolved, err := resolveExisting(filepath.Join(realRoot, rel))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", rel, err)
	}
	if !within(realRoot, resolved) {
		return "", &PathTraversalError{Path: filepath.Join(root, rel), Root: root}
	}

	// EvalSymlinks can't see through dangling links, SecureJoin resolves them
	// relative to the root. If the two disagree the path goes somewhere
	// other than where it appears to.
	safe, err := securejoin.SecureJoin(realRoot, rel)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", rel, err)
	}
	if safe != resolved {
		return "", &PathTraversalError{Path: filepath.Join(root, rel), Root: root}
	}

	return resolved, nil
}

// resolveExisting evaluates symlinks in the longest existing prefix of p
// and appends the remaining components unchanged.
func resolveExisting(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	parent := filepath.Dir(p)
	if parent == p {
		return "", err
	}
	resolvedParent, err := resolveExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(p)), nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
