package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func relPaths(t *testing.T, root string, abs []string) []string {
	t.Helper()
	out := make([]string, 0, len(abs))
	for _, p := range abs {
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestCollectFilesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), []byte("hello"))
	writeFile(t, filepath.Join(dir, "src", "b.go"), []byte("package b"))
	writeFile(t, filepath.Join(dir, "node_modules", "x.js"), []byte("junk"))
	writeFile(t, filepath.Join(dir, ".ck", "manifest.json"), []byte("{}"))
	writeFile(t, filepath.Join(dir, "img.bin"), []byte{0x89, 0x00, 0x50})

	s, err := New()
	require.NoError(t, err)

	files, err := s.CollectFiles(dir, false, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "src/b.go"}, relPaths(t, dir, files))
}

func TestCollectFilesGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), []byte("ignored.txt\nsub/\n"))
	writeFile(t, filepath.Join(dir, ".ckignore"), []byte("*.secret\n"))
	writeFile(t, filepath.Join(dir, "keep.txt"), []byte("keep"))
	writeFile(t, filepath.Join(dir, "ignored.txt"), []byte("no"))
	writeFile(t, filepath.Join(dir, "sub", "inner.txt"), []byte("no"))
	writeFile(t, filepath.Join(dir, "key.secret"), []byte("no"))

	s, err := New()
	require.NoError(t, err)

	files, err := s.CollectFiles(dir, true, nil)
	require.NoError(t, err)
	rels := relPaths(t, dir, files)
	assert.Contains(t, rels, "keep.txt")
	assert.Contains(t, rels, ".gitignore")
	assert.NotContains(t, rels, "ignored.txt")
	assert.NotContains(t, rels, "sub/inner.txt")
	assert.NotContains(t, rels, "key.secret")
}

func TestCollectFilesNestedGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", ".gitignore"), []byte("local.txt\n"))
	writeFile(t, filepath.Join(dir, "sub", "local.txt"), []byte("no"))
	writeFile(t, filepath.Join(dir, "sub", "kept.txt"), []byte("yes"))
	writeFile(t, filepath.Join(dir, "local.txt"), []byte("yes, only sub's is ignored"))

	s, err := New()
	require.NoError(t, err)

	files, err := s.CollectFiles(dir, true, nil)
	require.NoError(t, err)
	rels := relPaths(t, dir, files)
	assert.Contains(t, rels, "sub/kept.txt")
	assert.Contains(t, rels, "local.txt")
	assert.NotContains(t, rels, "sub/local.txt")
}

func TestCollectFilesCallerExcludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.log"), []byte("log"))
	writeFile(t, filepath.Join(dir, "a.txt"), []byte("txt"))

	s, err := New()
	require.NoError(t, err)

	files, err := s.CollectFiles(dir, false, []string{"*.log"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, relPaths(t, dir, files))
}

func TestIsTextFile(t *testing.T) {
	dir := t.TempDir()

	text := filepath.Join(dir, "t.txt")
	writeFile(t, text, []byte("plain text with unicode: héllo"))
	assert.True(t, IsTextFile(text))

	empty := filepath.Join(dir, "empty")
	writeFile(t, empty, nil)
	assert.True(t, IsTextFile(empty))

	binary := filepath.Join(dir, "b.bin")
	writeFile(t, binary, []byte{1, 2, 0, 4})
	assert.False(t, IsTextFile(binary))

	assert.False(t, IsTextFile(filepath.Join(dir, "missing")))
}

func TestExpandIncludePatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.go"), []byte("package main"))
	writeFile(t, filepath.Join(dir, "sub", "util.go"), []byte("package sub"))
	writeFile(t, filepath.Join(dir, "sub", "data.json"), []byte("{}"))

	t.Run("literal kept as-is", func(t *testing.T) {
		got := ExpandIncludePatterns(dir, []string{"README.md"})
		assert.Equal(t, []string{"README.md"}, got)
	})

	t.Run("semicolon separated", func(t *testing.T) {
		got := ExpandIncludePatterns(dir, []string{"a.txt;b.txt"})
		assert.Equal(t, []string{"a.txt", "b.txt"}, got)
	})

	t.Run("glob expansion", func(t *testing.T) {
		got := ExpandIncludePatterns(dir, []string{"*.go"})
		assert.Equal(t, []string{"main.go"}, got)
	})

	t.Run("bare glob retries recursively", func(t *testing.T) {
		got := ExpandIncludePatterns(dir, []string{"*.json"})
		assert.Equal(t, []string{filepath.Join("sub", "data.json")}, got)
	})
}
