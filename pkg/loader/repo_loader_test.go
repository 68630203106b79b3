package loader

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestRepoLoaderCollect(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.go":                  "package main",
		"lib/util.py":              "def util(): pass",
		"web/app.ts":               "export const app = 1",
		"README.md":                "# readme",
		"node_modules/dep/mod.js":  "module.exports = {}",
		"vendor/pkg/vendored.go":   "package pkg",
		".git/hooks/pre-commit.py": "print('hook')",
		"empty.go":                 "   ",
	})

	l := NewRepoLoader(t.TempDir(), 5<<20)
	docs, err := l.collect(root)
	require.NoError(t, err)

	sources := make(map[string]string, len(docs))
	for _, d := range docs {
		sources[d.Source] = d.Metadata["type"]
	}

	assert.Len(t, docs, 3)
	assert.Equal(t, "go", sources["main.go"])
	assert.Equal(t, "py", sources[filepath.Join("lib", "util.py")])
	assert.Equal(t, "ts", sources[filepath.Join("web", "app.ts")])

	assert.NotContains(t, sources, "README.md")
	assert.NotContains(t, sources, filepath.Join("node_modules", "dep", "mod.js"))
	assert.NotContains(t, sources, filepath.Join("vendor", "pkg", "vendored.go"))
}

// initGitFixture builds a committed local repository that Load can clone
// through the file:// transport.
func initGitFixture(t *testing.T, files map[string]string) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := writeTree(t, files)
	git := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	git("init", "-q")
	git("add", ".")
	git("-c", "user.email=ci@example.com", "-c", "user.name=ci", "commit", "-q", "-m", "init")
	return dir
}

func TestRepoLoaderLoadClonesAndCleansUp(t *testing.T) {
	origin := initGitFixture(t, map[string]string{"main.go": "package main"})
	scratch := t.TempDir()

	l := NewRepoLoader(scratch, 5<<20)
	docs, err := l.Load(context.Background(), "file://"+origin)
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Equal(t, "main.go", docs[0].Source)

	leftovers, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestRepoLoaderLoadNoCodeFiles(t *testing.T) {
	origin := initGitFixture(t, map[string]string{"README.md": "# docs only"})
	scratch := t.TempDir()

	l := NewRepoLoader(scratch, 5<<20)
	_, err := l.Load(context.Background(), "file://"+origin)
	require.ErrorIs(t, err, ErrNoCodeFiles)

	// The clone directory goes away even when extraction comes up empty.
	leftovers, readErr := os.ReadDir(scratch)
	require.NoError(t, readErr)
	assert.Empty(t, leftovers)
}

func TestRepoLoaderLoadCloneFailure(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	scratch := t.TempDir()

	l := NewRepoLoader(scratch, 5<<20)
	_, err := l.Load(context.Background(), "file://"+filepath.Join(scratch, "no-such-repo"))
	require.ErrorIs(t, err, ErrCloneFailed)

	leftovers, readErr := os.ReadDir(scratch)
	require.NoError(t, readErr)
	assert.Empty(t, leftovers)
}

func TestRepoLoaderSkipsOversizedFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"small.go": "package small",
		"big.go":   string(make([]byte, 64)),
	})

	l := NewRepoLoader(t.TempDir(), 32)
	docs, err := l.collect(root)
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Equal(t, "small.go", docs[0].Source)
}
