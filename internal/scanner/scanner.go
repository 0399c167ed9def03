// Package scanner finds C# source files below a set of paths.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/ccworks/hoist/pkg/config"
	"github.com/ccworks/hoist/pkg/parser"
)

// PathError reports a path that could not be scanned.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// ScanError collects every PathError of a ScanPaths call.
type ScanError struct {
	Errors []*PathError
}

func (e *ScanError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d paths could not be scanned (first: %v)", len(e.Errors), e.Errors[0])
}

func (e *ScanError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, pe := range e.Errors {
		errs[i] = pe
	}
	return errs
}

// ErrOutsideRoot is returned for symlinks that resolve outside the scan root.
var ErrOutsideRoot = errors.New("path escapes scan root")

// Scanner finds source files in a directory.
type Scanner struct {
	config *config.Config
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// findGitRoot walks up from start looking for a .git entry.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// matcher decides exclusion for paths relative to a base directory.
type matcher struct {
	base     string
	config   *config.Config
	patterns gitignore.Matcher
	git      gitignore.Matcher
	gitRoot  string
}

// newMatcher parses config patterns as gitignore syntax and, when enabled,
// reads every .gitignore of the enclosing repository.
func (s *Scanner) newMatcher(base string) *matcher {
	m := &matcher{base: base, config: s.config}

	var patterns []gitignore.Pattern
	for _, p := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}
	if len(patterns) > 0 {
		m.patterns = gitignore.NewMatcher(patterns)
	}

	if s.config.Exclude.Gitignore {
		if root := findGitRoot(base); root != "" {
			if gitPatterns, err := gitignore.ReadPatterns(osfs.New(root), nil); err == nil && len(gitPatterns) > 0 {
				m.git = gitignore.NewMatcher(gitPatterns)
				m.gitRoot = root
			}
		}
	}
	return m
}

func split(rel string) []string {
	return strings.Split(filepath.ToSlash(rel), "/")
}

func (m *matcher) excluded(path string, isDir bool) bool {
	rel, err := filepath.Rel(m.base, path)
	if err != nil {
		return false
	}
	if rel != "." {
		if m.config.ShouldExclude(rel) {
			return true
		}
		if m.patterns != nil && m.patterns.Match(split(rel), isDir) {
			return true
		}
	}
	if m.git != nil {
		if gitRel, err := filepath.Rel(m.gitRoot, path); err == nil && gitRel != "." && !strings.HasPrefix(gitRel, "..") {
			if m.git.Match(split(gitRel), isDir) {
				return true
			}
		}
	}
	return false
}

// ScanDir recursively scans a directory for C# files.
// Symlinks resolving outside the root are skipped.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &PathError{Path: root, Err: err}
	}
	resolvedRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, &PathError{Path: root, Err: err}
	}

	m := s.newMatcher(absRoot)
	files := make([]string, 0, 256)

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, resolvedRoot) {
				return nil
			}
		}

		if d.IsDir() {
			if path != absRoot && m.excluded(path, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if m.excluded(path, false) {
			return nil
		}
		if parser.DetectLanguage(path) != parser.LangUnknown {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, &PathError{Path: root, Err: walkErr}
	}

	sort.Strings(files)
	return files, nil
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// ScanFile reports whether a single file should be processed. Explicitly
// named files bypass directory exclusions but still need a .cs extension.
func (s *Scanner) ScanFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, &PathError{Path: path, Err: err}
	}
	if info.IsDir() {
		return false, nil
	}
	return parser.DetectLanguage(path) != parser.LangUnknown, nil
}

// ScanPaths scans every path, which may be a directory or a file, and
// returns absolute, de-duplicated, sorted file paths. Paths that fail are
// collected into a *ScanError; files found elsewhere are still returned.
func (s *Scanner) ScanPaths(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	var scanErr ScanError

	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			scanErr.Errors = append(scanErr.Errors, &PathError{Path: p, Err: err})
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			scanErr.Errors = append(scanErr.Errors, &PathError{Path: p, Err: err})
			continue
		}

		if !info.IsDir() {
			ok, err := s.ScanFile(abs)
			if err != nil {
				scanErr.Errors = append(scanErr.Errors, &PathError{Path: p, Err: err})
				continue
			}
			if ok {
				add(abs)
			}
			continue
		}

		found, err := s.ScanDir(abs)
		if err != nil {
			var pe *PathError
			if !errors.As(err, &pe) {
				pe = &PathError{Path: p, Err: err}
			}
			scanErr.Errors = append(scanErr.Errors, pe)
			continue
		}
		for _, f := range found {
			add(f)
		}
	}

	sort.Strings(files)
	if len(scanErr.Errors) > 0 {
		return files, &scanErr
	}
	return files, nil
}

// FilterBySize drops files larger than maxSize bytes and returns how many
// were skipped. If maxSize is 0, returns the original list unchanged.
func FilterBySize(files []string, maxSize int64) ([]string, int) {
	if maxSize <= 0 {
		return files, 0
	}

	filtered := make([]string, 0, len(files))
	skipped := 0
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil || info.Size() > maxSize {
			skipped++
			continue
		}
		filtered = append(filtered, f)
	}
	return filtered, skipped
}
