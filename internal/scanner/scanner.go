// Package scanner discovers indexable files under a search root. It honours
// gitignore semantics when asked, applies the default exclude list otherwise,
// and classifies text vs binary with the NUL-byte heuristic.
package scanner

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/semcs/ck/internal/core"
	"github.com/semcs/ck/internal/gitignore"
)

// nestedIgnoreCacheSize bounds the per-directory gitignore matcher cache so
// long-running servers do not grow without limit.
const nestedIgnoreCacheSize = 1000

// binaryProbeSize is how many leading bytes are inspected for NUL.
const binaryProbeSize = 8192

// Scanner walks a directory tree and yields candidate files.
type Scanner struct {
	nestedCache *lru.Cache[string, *gitignore.Matcher]
}

// New creates a Scanner.
func New() (*Scanner, error) {
	cache, err := lru.New[string, *gitignore.Matcher](nestedIgnoreCacheSize)
	if err != nil {
		return nil, err
	}
	return &Scanner{nestedCache: cache}, nil
}

// CollectFiles returns the ordered list of text files under root. When
// respectGitignore is true it honours the repository .gitignore tree, the
// global gitignore, .git/info/exclude, and the root .ckignore; when false it
// applies only the default exclude list. Caller-supplied excludePatterns are
// applied in both modes. The .ck/ index directory is always filtered out.
// Unreadable entries are logged and skipped.
func (s *Scanner) CollectFiles(root string, respectGitignore bool, excludePatterns []string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if IsTextFile(absRoot) {
			return []string{absRoot}, nil
		}
		return nil, nil
	}

	var rootMatcher *gitignore.Matcher
	excludes := excludePatterns
	if respectGitignore {
		rootMatcher = gitignore.NewForRoot(absRoot)
	} else {
		merged := core.DefaultExcludePatterns()
		merged = append(merged, excludePatterns...)
		excludes = merged
	}

	indexDir := filepath.Join(absRoot, core.IndexDirName)
	var files []string

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Debug("walk_error", slog.String("path", path), slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if path == indexDir {
			return fs.SkipDir
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil || rel == "." {
			return nil
		}

		if matchesAnyGlob(rel, excludes) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if respectGitignore {
			if s.ignoredByGit(absRoot, rel, rootMatcher, d.IsDir()) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !IsTextFile(path) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Strings(files)
	return files, nil
}

// ignoredByGit consults the root matcher plus any nested .gitignore files on
// the path from the root to the entry.
func (s *Scanner) ignoredByGit(absRoot, rel string, rootMatcher *gitignore.Matcher, isDir bool) bool {
	if rootMatcher.Match(rel, isDir) {
		return true
	}

	// Nested .gitignore files apply to their own subtrees.
	dir := filepath.Dir(rel)
	for dir != "." && dir != string(filepath.Separator) {
		m := s.nestedMatcher(absRoot, dir)
		if m != nil && m.Match(rel, isDir) {
			return true
		}
		dir = filepath.Dir(dir)
	}
	return false
}

func (s *Scanner) nestedMatcher(absRoot, relDir string) *gitignore.Matcher {
	if cached, ok := s.nestedCache.Get(relDir); ok {
		return cached
	}

	ignorePath := filepath.Join(absRoot, relDir, ".gitignore")
	if _, err := os.Stat(ignorePath); err != nil {
		s.nestedCache.Add(relDir, nil)
		return nil
	}

	m := gitignore.New()
	if err := m.AddFile(ignorePath, filepath.ToSlash(relDir)); err != nil {
		s.nestedCache.Add(relDir, nil)
		return nil
	}
	s.nestedCache.Add(relDir, m)
	return m
}

// matchesAnyGlob matches pattern globs against every path component and
// against the full relative path.
func matchesAnyGlob(rel string, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	parts := strings.Split(rel, "/")

	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		for _, part := range parts {
			if ok, _ := filepath.Match(pattern, part); ok {
				return true
			}
		}
	}
	return false
}

// IsTextFile reads up to the first 8 KiB and reports the file as text iff it
// contains no NUL byte. Empty files count as text; unreadable files as binary.
func IsTextFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, binaryProbeSize)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false
	}
	if n == 0 {
		return true
	}
	for _, b := range buf[:n] {
		if b == 0 {
			return false
		}
	}
	return true
}
