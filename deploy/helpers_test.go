package deploy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ocuroot/ud/git"
	"github.com/ocuroot/ud/lib/process"
)

// fakeGit records git operations instead of running them. Clone creates the
// target with a repository marker and a README.
type fakeGit struct {
	calls []string

	status   string
	cloneErr error
	fetchErr error
	mergeErr error
}

var _ GitClient = (*fakeGit)(nil)

func (f *fakeGit) Clone(ctx context.Context, repository, branch, target string) error {
	f.calls = append(f.calls, "clone "+repository+" "+branch)
	if f.cloneErr != nil {
		return f.cloneErr
	}
	if err := os.MkdirAll(filepath.Join(target, git.MarkerName), 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(target, "README.md"), []byte("cloned\n"), 0644)
}

func (f *fakeGit) Status(ctx context.Context, dir string) (string, error) {
	f.calls = append(f.calls, "status")
	return f.status, nil
}

func (f *fakeGit) Fetch(ctx context.Context, dir, branch string) error {
	f.calls = append(f.calls, "fetch "+branch)
	return f.fetchErr
}

func (f *fakeGit) Merge(ctx context.Context, dir, branch string) error {
	f.calls = append(f.calls, "merge "+branch)
	return f.mergeErr
}

func (f *fakeGit) Head(dir string) (string, error) {
	return "0123456789abcdef0123456789abcdef01234567", nil
}

type runCall struct {
	Dir  string
	Name string
	Args []string
}

// fakeRunner records commands and returns a fixed exit code.
type fakeRunner struct {
	calls []runCall
	code  int
	err   error
}

var _ process.Runner = (*fakeRunner)(nil)

func (f *fakeRunner) Run(ctx context.Context, dir string, name string, args ...string) (int, error) {
	f.calls = append(f.calls, runCall{Dir: dir, Name: name, Args: args})
	return f.code, f.err
}

func exitErr(code int, args ...string) error {
	return &process.ExitError{Command: "git", Args: args, ExitCode: code}
}

// writeFiles creates files relative to root.
func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

type fataler interface {
	Helper()
	Fatal(args ...any)
}

// listFiles returns all regular files and symlinks under root, relative to it.
func listFiles(t fataler, root string) []string {
	t.Helper()
	var out []string
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}
