package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/esmin/pkg/config"
)

// Scanner finds JavaScript source files.
type Scanner struct {
	config *config.Config
}

// New creates a new file scanner.
func New(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// rootMatcher matches paths relative to a fixed directory.
type rootMatcher struct {
	root    string
	matcher gitignore.Matcher
}

func (m rootMatcher) match(absPath string, isDir bool) bool {
	rel, err := filepath.Rel(m.root, absPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	return m.matcher.Match(strings.Split(rel, string(filepath.Separator)), isDir)
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// matchers builds the exclusion matchers for a scan rooted at absRoot.
// Config patterns are relative to the scan root; .gitignore files are read
// from the enclosing repository and are relative to its root.
func (s *Scanner) matchers(absRoot string) []rootMatcher {
	var ms []rootMatcher

	if len(s.config.Exclude.Patterns) > 0 {
		patterns := make([]gitignore.Pattern, 0, len(s.config.Exclude.Patterns))
		for _, p := range s.config.Exclude.Patterns {
			patterns = append(patterns, gitignore.ParsePattern(p, nil))
		}
		ms = append(ms, rootMatcher{root: absRoot, matcher: gitignore.NewMatcher(patterns)})
	}

	if s.config.Exclude.Gitignore {
		if gitRoot := findGitRoot(absRoot); gitRoot != "" {
			if patterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil); err == nil && len(patterns) > 0 {
				ms = append(ms, rootMatcher{root: gitRoot, matcher: gitignore.NewMatcher(patterns)})
			}
		}
	}

	return ms
}

func excluded(ms []rootMatcher, absPath string, isDir bool) bool {
	for _, m := range ms {
		if m.match(absPath, isDir) {
			return true
		}
	}
	return false
}

// ScanPaths expands files and directories into the sorted, de-duplicated
// list of source files to analyze. A path that does not exist is an error.
func (s *Scanner) ScanPaths(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(path string) {
		key, err := filepath.Abs(path)
		if err != nil {
			key = path
		}
		if !seen[key] {
			seen[key] = true
			files = append(files, path)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", p, err)
		}

		if !info.IsDir() {
			if s.wantFile(p) {
				add(p)
			}
			continue
		}

		found, err := s.ScanDir(p)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", p, err)
		}
		for _, f := range found {
			add(f)
		}
	}

	sort.Strings(files)
	return files, nil
}

// wantFile applies extension and pattern filters to an explicitly named file.
func (s *Scanner) wantFile(path string) bool {
	if !s.config.HasExtension(path) {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	return !excluded(s.matchers(filepath.Dir(abs)), abs, false)
}

// ScanDir recursively scans a directory for source files.
// Symlinks that resolve outside the root are skipped.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	files := make([]string, 0, 256)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	ms := s.matchers(absRoot)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		absPath := filepath.Join(absRoot, rel)

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if s.config.IsExcludedDir(d.Name()) || excluded(ms, absPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !s.config.HasExtension(path) || excluded(ms, absPath, false) {
			return nil
		}
		files = append(files, path)
		return nil
	})

	return files, walkErr
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// Add separator to prevent "/root2" matching "/root"
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}
