package core

import (
	"os"
	"path/filepath"
	"strings"
)

// SidecarPath maps a source file to its sidecar under <root>/.ck/.
// A file at relative path P with extension E maps to <root>/.ck/P.E.ck;
// files without an extension map to <root>/.ck/P..ck.
func SidecarPath(root, filePath string) string {
	rel, err := filepath.Rel(root, filePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filePath
	}

	ext := strings.TrimPrefix(filepath.Ext(rel), ".")
	base := strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.Join(root, IndexDirName, base+"."+ext+".ck")
}

// SidecarToOriginal inverts SidecarPath: given a sidecar under indexDir it
// reconstructs the original path relative to the index root. Returns false
// when the path is not a sidecar.
func SidecarToOriginal(sidecarPath, indexDir string) (string, bool) {
	rel, err := filepath.Rel(indexDir, sidecarPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}

	name := filepath.Base(rel)
	if !strings.HasSuffix(name, ".ck") {
		return "", false
	}
	name = strings.TrimSuffix(name, ".ck")

	// name is now "<base>.<ext>" or "<base>." for extensionless files.
	if strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return filepath.Join(filepath.Dir(rel), name), true
}

// FindRepoRoot walks upward from path until it finds a directory containing
// .ck/ or .git/. Falls back to the starting directory.
func FindRepoRoot(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	current := abs
	if info, err := os.Stat(current); err == nil && !info.IsDir() {
		current = filepath.Dir(current)
	}

	for {
		if dirExists(filepath.Join(current, IndexDirName)) || dirExists(filepath.Join(current, ".git")) {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			if info, err := os.Stat(abs); err == nil && !info.IsDir() {
				return filepath.Dir(abs)
			}
			return abs
		}
		current = parent
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
