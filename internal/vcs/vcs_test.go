package vcs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccworks/hoist/internal/testutil"
)

func initTestRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	root := t.TempDir()
	repo := testutil.InitRepo(t, root, map[string]string{"src/Sample.cs": "class Sample {}\n"})
	return root, repo
}

func TestGitOpener_PlainOpen_NonExistent(t *testing.T) {
	_, err := NewGitOpener().PlainOpen("/nonexistent/path")
	assert.Error(t, err)
}

func TestGitOpener_PlainOpenWithDetect(t *testing.T) {
	root, _ := initTestRepo(t)

	repo, err := NewGitOpener().PlainOpenWithDetect(filepath.Join(root, "src"))
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(repo.RepoPath())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTreeAt(t *testing.T) {
	root, gitRepo := initTestRepo(t)
	testutil.Commit(t, gitRepo, root, map[string]string{"src/Sample.cs": "class Sample { }\n"}, "Second commit")

	repo, err := NewGitOpener().PlainOpen(root)
	require.NoError(t, err)

	head, err := repo.TreeAt("")
	require.NoError(t, err)
	content, err := head.File("src/Sample.cs")
	require.NoError(t, err)
	assert.Equal(t, "class Sample { }\n", string(content))

	prev, err := repo.TreeAt("HEAD~1")
	require.NoError(t, err)
	content, err = prev.File("src/Sample.cs")
	require.NoError(t, err)
	assert.Equal(t, "class Sample {}\n", string(content))

	_, err = prev.File("missing.cs")
	assert.Error(t, err)

	entries, err := head.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "src/Sample.cs", entries[0].Path)

	_, err = repo.TreeAt("no-such-branch")
	assert.Error(t, err)
}

func TestDirtyFiles(t *testing.T) {
	root, _ := initTestRepo(t)

	repo, err := NewGitOpener().PlainOpen(root)
	require.NoError(t, err)

	dirty, err := repo.DirtyFiles()
	require.NoError(t, err)
	assert.Empty(t, dirty)

	require.NoError(t, os.WriteFile(filepath.Join(root, "src/Sample.cs"), []byte("class Sample { int x; }\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Untracked.cs"), []byte("class U {}\n"), 0o644))

	dirty, err = repo.DirtyFiles()
	require.NoError(t, err)
	assert.True(t, dirty["src/Sample.cs"])
	assert.False(t, dirty["Untracked.cs"])
}

func TestCurrentRef(t *testing.T) {
	root, _ := initTestRepo(t)

	repo, err := NewGitOpener().PlainOpen(root)
	require.NoError(t, err)

	ref, err := repo.CurrentRef()
	require.NoError(t, err)
	assert.Equal(t, "master", ref)
}

func TestDefaultOpener(t *testing.T) {
	orig := DefaultOpener()
	t.Cleanup(func() { SetDefaultOpener(orig) })

	custom := NewGitOpener()
	SetDefaultOpener(custom)
	assert.Same(t, custom, DefaultOpener())
}
