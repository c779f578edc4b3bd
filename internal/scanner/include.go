package scanner

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// ExpandIncludePatterns expands a sequence of include patterns, each possibly
// containing ';' as an internal separator, matching shell UX:
//   - a literal path segment is kept as-is;
//   - a segment with glob metacharacters expands via filesystem glob relative
//     to root;
//   - a bare-name glob (no directory separator) that yields no match is
//     retried recursively as **/pattern.
//
// The returned paths are relative to root when the inputs were. Matches
// inside the index directory are dropped.
func ExpandIncludePatterns(root string, patterns []string) []string {
	var out []string
	seen := make(map[string]struct{})

	add := func(p string) {
		if strings.Contains(filepath.ToSlash(p), "/.ck/") || strings.HasPrefix(filepath.ToSlash(p), ".ck/") {
			return
		}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	for _, raw := range patterns {
		for _, segment := range strings.Split(raw, ";") {
			segment = strings.TrimSpace(segment)
			if segment == "" {
				continue
			}

			if !hasGlobMeta(segment) {
				add(segment)
				continue
			}

			matches, err := filepath.Glob(filepath.Join(root, segment))
			if err == nil && len(matches) > 0 {
				for _, m := range matches {
					if rel, rerr := filepath.Rel(root, m); rerr == nil {
						add(rel)
					} else {
						add(m)
					}
				}
				continue
			}

			// Bare-name glob with no match: retry recursively.
			if !strings.ContainsRune(segment, filepath.Separator) && !strings.Contains(segment, "/") {
				recursive, rerr := globRecursive(root, segment)
				if rerr == nil && len(recursive) > 0 {
					for _, m := range recursive {
						add(m)
					}
					continue
				}
			}

			// No match at all; keep the pattern so the caller can report it.
			add(segment)
		}
	}

	return out
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// globRecursive emulates **/pattern with a walk, since filepath.Glob has no
// doublestar support.
func globRecursive(root, pattern string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			if rel, rerr := filepath.Rel(root, path); rerr == nil {
				matches = append(matches, rel)
			}
		}
		return nil
	})
	return matches, err
}
