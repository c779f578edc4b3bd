// Package gitignore implements gitignore-syntax pattern matching for the
// file walker. A Matcher aggregates rules from repository .gitignore files,
// the user's global gitignore, .git/info/exclude, and the root .ckignore.
package gitignore

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Matcher holds compiled ignore rules and provides thread-safe matching.
type Matcher struct {
	mu    sync.RWMutex
	rules []rule
}

type rule struct {
	pattern  string
	regex    *regexp.Regexp
	negation bool
	dirOnly  bool
	anchored bool
	base     string // directory the source file lives in, for nested ignores
}

// New creates an empty Matcher.
func New() *Matcher {
	return &Matcher{}
}

// NewForRoot builds a matcher covering everything git would consult for the
// given root: the repo .gitignore, .git/info/exclude, the global gitignore,
// and the root .ckignore. Missing files are skipped silently.
func NewForRoot(root string) *Matcher {
	m := New()

	_ = m.AddFile(filepath.Join(root, ".gitignore"), "")
	_ = m.AddFile(filepath.Join(root, ".git", "info", "exclude"), "")
	_ = m.AddFile(filepath.Join(root, ".ckignore"), "")

	if global := globalGitignorePath(); global != "" {
		_ = m.AddFile(global, "")
	}

	return m
}

// globalGitignorePath resolves core.excludesFile, falling back to the XDG
// default location.
func globalGitignorePath() string {
	out, err := exec.Command("git", "config", "--get", "core.excludesFile").Output()
	if err == nil {
		if p := strings.TrimSpace(string(out)); p != "" {
			if strings.HasPrefix(p, "~/") {
				if home, herr := os.UserHomeDir(); herr == nil {
					p = filepath.Join(home, p[2:])
				}
			}
			return p
		}
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "git", "ignore")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "git", "ignore")
	}
	return ""
}

// AddFile reads patterns from an ignore file. base scopes the rules to paths
// under that directory (for nested .gitignore files); "" means root scope.
func (m *Matcher) AddFile(path, base string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open ignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m.AddPattern(scanner.Text(), base)
	}
	return scanner.Err()
}

// AddPattern compiles one gitignore pattern scoped to base ("" = root).
func (m *Matcher) AddPattern(pattern, base string) {
	pattern = strings.TrimRight(pattern, " \t")
	trimmed := strings.TrimSpace(pattern)
	if trimmed == "" || (strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(trimmed, `\#`)) {
		return
	}
	pattern = trimmed

	r := rule{pattern: pattern, base: filepath.ToSlash(base)}

	if strings.HasPrefix(pattern, `\#`) || strings.HasPrefix(pattern, `\!`) {
		pattern = pattern[1:]
	} else if strings.HasPrefix(pattern, "!") {
		r.negation = true
		pattern = pattern[1:]
	}

	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	if strings.HasPrefix(pattern, "/") {
		r.anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	} else if strings.Contains(pattern, "/") && !strings.HasPrefix(pattern, "**/") {
		// A pattern with an internal slash is anchored to its base.
		r.anchored = true
	}

	r.regex = regexp.MustCompile("^" + patternToRegex(pattern) + "$")

	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

// Match reports whether path (slash-separated, relative to the root) should
// be ignored. Later rules override earlier ones; negations un-ignore.
func (m *Matcher) Match(path string, isDir bool) bool {
	path = filepath.ToSlash(path)

	m.mu.RLock()
	defer m.mu.RUnlock()

	ignored := false
	for _, r := range m.rules {
		if matchRule(path, isDir, r) {
			ignored = !r.negation
		}
	}
	return ignored
}

func matchRule(path string, isDir bool, r rule) bool {
	if r.base != "" {
		if path == r.base {
			path = filepath.Base(path)
		} else if strings.HasPrefix(path, r.base+"/") {
			path = strings.TrimPrefix(path, r.base+"/")
		} else {
			return false
		}
	}

	parts := strings.Split(path, "/")
	basename := parts[len(parts)-1]

	if r.anchored {
		if r.regex.MatchString(path) {
			return !r.dirOnly || isDir
		}
		// A matched directory ignores everything inside it.
		for i := range parts[:len(parts)-1] {
			if r.regex.MatchString(strings.Join(parts[:i+1], "/")) {
				return true
			}
		}
		return false
	}

	if r.dirOnly {
		for i, part := range parts {
			if r.regex.MatchString(part) {
				if i == len(parts)-1 {
					return isDir
				}
				return true
			}
		}
		return false
	}

	if r.regex.MatchString(basename) || r.regex.MatchString(path) {
		return true
	}
	for _, part := range parts {
		if r.regex.MatchString(part) {
			return true
		}
	}
	return false
}

// patternToRegex converts a gitignore glob into a regex fragment.
func patternToRegex(pattern string) string {
	var b strings.Builder

	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			if strings.HasPrefix(pattern[i:], "**/") {
				b.WriteString("(?:.*/)?")
				i += 3
				continue
			}
			if strings.HasPrefix(pattern[i:], "**") && (i == 0 || pattern[i-1] == '/') {
				b.WriteString(".*")
				i += 2
				continue
			}
			b.WriteString("[^/]*")
			i++
		case '?':
			b.WriteString("[^/]")
			i++
		case '[':
			j := i + 1
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j < len(pattern) {
				b.WriteString(pattern[i : j+1])
				i = j + 1
			} else {
				b.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		case '\\':
			if i+1 < len(pattern) {
				b.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
				i += 2
			} else {
				b.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}

	return b.String()
}
