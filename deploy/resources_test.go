package deploy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ocuroot/ud/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// sandbox lays out a scratch directory:
//
//	root/cfg/resources/...  resource files
//	root/work/              working directory
//	root/outside/           must never be written to
func sandbox(t *testing.T, resources map[string]string) (root, configDir, workDir string) {
	t.Helper()
	root = t.TempDir()
	configDir = filepath.Join(root, "cfg")
	workDir = filepath.Join(root, "work")
	writeFiles(t, filepath.Join(configDir, config.ResourcesDirName), resources)
	require.NoError(t, os.MkdirAll(workDir, 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "outside"), 0755))
	return root, configDir, workDir
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(b)
}

func TestCopyResources(t *testing.T) {
	_, configDir, workDir := sandbox(t, map[string]string{
		"a.txt":        "a",
		"nested/b.txt": "b",
	})

	err := CopyResources(context.Background(), configDir, workDir, []config.Resource{
		{File: "a.txt"},
		{File: "nested/b.txt"},
		{File: "a.txt", CopyPath: "deep/er/c.txt"},
	})
	require.NoError(t, err)

	assert.Equal(t, "a", readFile(t, filepath.Join(workDir, "a.txt")))
	assert.Equal(t, "b", readFile(t, filepath.Join(workDir, "nested", "b.txt")))
	assert.Equal(t, "a", readFile(t, filepath.Join(workDir, "deep", "er", "c.txt")))
}

func TestCopyResourcesOverwrites(t *testing.T) {
	_, configDir, workDir := sandbox(t, map[string]string{"a.txt": "new"})
	writeFiles(t, workDir, map[string]string{"a.txt": "old content that is longer"})

	err := CopyResources(context.Background(), configDir, workDir, []config.Resource{{File: "a.txt"}})
	require.NoError(t, err)
	assert.Equal(t, "new", readFile(t, filepath.Join(workDir, "a.txt")))
}

func TestCopyResourcesKeepsPermissions(t *testing.T) {
	_, configDir, workDir := sandbox(t, map[string]string{"deploy.sh": "#!/bin/sh\n"})
	require.NoError(t, os.Chmod(filepath.Join(configDir, config.ResourcesDirName, "deploy.sh"), 0755))

	err := CopyResources(context.Background(), configDir, workDir, []config.Resource{{File: "deploy.sh"}})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(workDir, "deploy.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

func TestCopyResourcesStopsAtFirstFailure(t *testing.T) {
	_, configDir, workDir := sandbox(t, map[string]string{
		"a.txt": "a",
		"c.txt": "c",
	})

	err := CopyResources(context.Background(), configDir, workDir, []config.Resource{
		{File: "a.txt"},
		{File: "missing.txt"},
		{File: "c.txt"},
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrPathTraversal))
	assert.Contains(t, err.Error(), "missing.txt")

	assert.Equal(t, []string{"a.txt"}, listFiles(t, workDir))
}

func TestCopyResourcesRejectsDirectories(t *testing.T) {
	_, configDir, workDir := sandbox(t, map[string]string{"dir/a.txt": "a"})

	err := CopyResources(context.Background(), configDir, workDir, []config.Resource{{File: "dir"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a regular file")
}

func TestCopyResourcesNoResources(t *testing.T) {
	// No resources directory is needed when nothing is copied
	err := CopyResources(context.Background(), t.TempDir(), t.TempDir(), nil)
	assert.NoError(t, err)
}

func TestCopyResourcesPathTraversal(t *testing.T) {
	var tests = []struct {
		name     string
		resource config.Resource
		// setup runs against the sandbox root before copying
		setup func(t *testing.T, root string)
	}{
		{
			name:     "destination parent traversal",
			resource: config.Resource{File: "a.txt", CopyPath: "../../escape.txt"},
		},
		{
			name:     "destination into sibling",
			resource: config.Resource{File: "a.txt", CopyPath: "../outside/escape.txt"},
		},
		{
			name:     "destination traversal after subdirectory",
			resource: config.Resource{File: "a.txt", CopyPath: "sub/../../escape.txt"},
		},
		{
			name:     "absolute destination",
			resource: config.Resource{File: "a.txt", CopyPath: "/tmp/ud-escape.txt"},
		},
		{
			name:     "source traversal",
			resource: config.Resource{File: "../../outside/secret.txt", CopyPath: "secret.txt"},
			setup: func(t *testing.T, root string) {
				writeFiles(t, root, map[string]string{"outside/secret.txt": "secret"})
			},
		},
		{
			name:     "source from config dir",
			resource: config.Resource{File: "../deploy.yaml"},
			setup: func(t *testing.T, root string) {
				writeFiles(t, root, map[string]string{"cfg/deploy.yaml": "release: {}"})
			},
		},
		{
			name:     "absolute source",
			resource: config.Resource{File: "/etc/hostname", CopyPath: "hostname"},
		},
		{
			name:     "source symlink out of resources",
			resource: config.Resource{File: "link.txt"},
			setup: func(t *testing.T, root string) {
				writeFiles(t, root, map[string]string{"outside/secret.txt": "secret"})
				require.NoError(t, os.Symlink(
					filepath.Join(root, "outside", "secret.txt"),
					filepath.Join(root, "cfg", config.ResourcesDirName, "link.txt"),
				))
			},
		},
		{
			name:     "destination through symlinked directory",
			resource: config.Resource{File: "a.txt", CopyPath: "out/escape.txt"},
			setup: func(t *testing.T, root string) {
				require.NoError(t, os.Symlink(filepath.Join(root, "outside"), filepath.Join(root, "work", "out")))
			},
		},
		{
			name:     "destination is dangling symlink",
			resource: config.Resource{File: "a.txt", CopyPath: "dangling.txt"},
			setup: func(t *testing.T, root string) {
				require.NoError(t, os.Symlink(filepath.Join(root, "outside", "escape.txt"), filepath.Join(root, "work", "dangling.txt")))
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			root, configDir, workDir := sandbox(t, map[string]string{"a.txt": "a"})
			if test.setup != nil {
				test.setup(t, root)
			}
			before := listFiles(t, root)

			err := CopyResources(context.Background(), configDir, workDir, []config.Resource{test.resource})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrPathTraversal), "expected path traversal, got %v", err)

			var traversal *PathTraversalError
			require.True(t, errors.As(err, &traversal))
			assert.NotEmpty(t, traversal.Path)

			assert.Equal(t, before, listFiles(t, root), "no files may be created")
			_, err = os.Stat("/tmp/ud-escape.txt")
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestCopyResourcesSymlinkInsideSandbox(t *testing.T) {
	root, configDir, workDir := sandbox(t, map[string]string{"a.txt": "a"})
	require.NoError(t, os.MkdirAll(filepath.Join(workDir, "real"), 0755))
	require.NoError(t, os.Symlink("real", filepath.Join(workDir, "alias")))

	err := CopyResources(context.Background(), configDir, workDir, []config.Resource{
		{File: "a.txt", CopyPath: "alias/a.txt"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a", readFile(t, filepath.Join(workDir, "real", "a.txt")))
	assert.Empty(t, listFiles(t, filepath.Join(root, "outside")))
}

func TestCopyResourcesNeverEscapes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		segments := rapid.SliceOfN(rapid.SampledFrom([]string{"..", ".", "a", "b", "work", "outside"}), 1, 6).Draw(t, "segments")
		copyPath := strings.Join(segments, "/")

		root, err := os.MkdirTemp("", "ud-rapid")
		if err != nil {
			t.Fatal(err)
		}
		defer os.RemoveAll(root)

		configDir := filepath.Join(root, "cfg")
		workDir := filepath.Join(root, "work")
		for _, d := range []string{filepath.Join(configDir, config.ResourcesDirName), workDir, filepath.Join(root, "outside")} {
			if err := os.MkdirAll(d, 0755); err != nil {
				t.Fatal(err)
			}
		}
		if err := os.WriteFile(filepath.Join(configDir, config.ResourcesDirName, "a.txt"), []byte("a"), 0644); err != nil {
			t.Fatal(err)
		}

		err = CopyResources(context.Background(), configDir, workDir, []config.Resource{
			{File: "a.txt", CopyPath: copyPath},
		})

		escapes := !within(workDir, filepath.Join(workDir, copyPath))
		if escapes && !errors.Is(err, ErrPathTraversal) {
			t.Fatalf("copy path %q escapes but got error %v", copyPath, err)
		}

		var outside []string
		for _, f := range listFiles(t, root) {
			if !strings.HasPrefix(f, "work/") && f != "cfg/resources/a.txt" {
				outside = append(outside, f)
			}
		}
		if len(outside) > 0 {
			t.Fatalf("copy path %q wrote outside the working directory: %v", copyPath, outside)
		}
	})
}
