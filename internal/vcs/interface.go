// Package vcs provides version control system abstractions.
package vcs

// Repository provides access to git repository operations.
type Repository interface {
	// RepoPath returns the root path of the working tree.
	RepoPath() string
	// CurrentRef returns the branch name, or the commit SHA when detached.
	CurrentRef() (string, error)
	// TreeAt resolves a revision (branch, tag, SHA, HEAD~n) to its tree.
	TreeAt(rev string) (Tree, error)
	// DirtyFiles returns repo-relative paths with staged or unstaged
	// changes. Untracked files are not included.
	DirtyFiles() (map[string]bool, error)
}

// TreeEntry represents a file in a git tree.
type TreeEntry struct {
	Path string
	Size int64
}

// Tree represents a git tree object.
type Tree interface {
	// File returns the content of the file at a repo-relative path.
	File(path string) ([]byte, error)
	// Entries returns all files in the tree (recursively).
	Entries() ([]TreeEntry, error)
}

// Opener opens git repositories.
type Opener interface {
	// PlainOpen opens an existing git repository.
	PlainOpen(path string) (Repository, error)
	// PlainOpenWithDetect opens a git repository, detecting .git in parent directories.
	PlainOpenWithDetect(path string) (Repository, error)
}
