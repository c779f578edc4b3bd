package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semcs/ck/internal/core"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager()
	require.NoError(t, err)
	return m
}

func write(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIndexDirectoryCreatesSidecarsAndManifest(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.txt", "hello world rust programming")
	write(t, root, "src/b.go", "package b\n\nfunc B() {}\n")

	m := newTestManager(t)
	stats, err := m.IndexDirectory(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesIndexed)

	manifest := m.Manifest(root)
	assert.Len(t, manifest.Files, 2)
	assert.Contains(t, manifest.Files, "a.txt")
	assert.Contains(t, manifest.Files, "src/b.go")

	entry, err := LoadEntry(core.SidecarPath(root, filepath.Join(root, "a.txt")))
	require.NoError(t, err)
	assert.Equal(t, "a.txt", entry.Metadata.Path)
	assert.NotEmpty(t, entry.Chunks)
	for _, c := range entry.Chunks {
		assert.LessOrEqual(t, c.Span.ByteEnd, int(entry.Metadata.Size))
	}
}

func TestSidecarRoundTrip(t *testing.T) {
	dir := t.TempDir()
	entry := &core.IndexEntry{
		Metadata: core.FileMetadata{Path: "x.go", Hash: "abc", LastModified: 100, Size: 50},
		Chunks: []core.ChunkEntry{
			{
				Span:            core.Span{ByteStart: 0, ByteEnd: 50, LineStart: 1, LineEnd: 4},
				Embedding:       []float32{0.1, 0.2, 0.3},
				ChunkType:       core.ChunkTypeFunction,
				Symbol:          "X",
				Ancestry:        []string{"pkg"},
				EstimatedTokens: 12,
				ByteLength:      50,
			},
		},
	}

	path := filepath.Join(dir, "x.go.ck")
	require.NoError(t, SaveEntry(path, entry))

	loaded, err := LoadEntry(path)
	require.NoError(t, err)
	assert.Equal(t, entry, loaded)
}

func TestLoadEntryRejectsBadVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ck")
	require.NoError(t, os.WriteFile(path, []byte{99, 1, 2, 3}, 0o644))
	_, err := LoadEntry(path)
	assert.Error(t, err)
}

func TestSmartUpdateLifecycle(t *testing.T) {
	root := t.TempDir()
	m := newTestManager(t)
	ctx := context.Background()

	// Empty directory: nothing indexed.
	stats, err := m.SmartUpdate(ctx, root, Options{})
	require.NoError(t, err)
	assert.Zero(t, stats.FilesIndexed)

	istats, err := m.Stats(root)
	require.NoError(t, err)
	assert.Zero(t, istats.TotalFiles)

	// New file: counted as added.
	path := write(t, root, "x.txt", "foo")
	stats, err = m.SmartUpdate(ctx, root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesAdded)
	assert.Equal(t, 1, stats.FilesIndexed)

	// Touch without content change: hash match corrects metadata only.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))
	stats, err = m.SmartUpdate(ctx, root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesUpToDate)
	assert.Zero(t, stats.FilesIndexed)

	// Rewrite with new content: counted as modified.
	require.NoError(t, os.WriteFile(path, []byte("bar"), 0o644))
	later := time.Now().Add(4 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))
	stats, err = m.SmartUpdate(ctx, root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesModified)
	assert.Equal(t, 1, stats.FilesIndexed)
}

func TestSmartUpdateIdempotent(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.txt", "stable content")
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.SmartUpdate(ctx, root, Options{})
	require.NoError(t, err)

	before := m.Manifest(root).Files["a.txt"]

	stats, err := m.SmartUpdate(ctx, root, Options{})
	require.NoError(t, err)
	assert.Zero(t, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesUpToDate)
	assert.Equal(t, before, m.Manifest(root).Files["a.txt"])
}

func TestIndexWithDummyEmbeddings(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.txt", "searchable text about parsing")

	m := newTestManager(t)
	_, err := m.IndexDirectory(context.Background(), root, Options{
		ComputeEmbeddings: true,
		Model:             "dummy",
	})
	require.NoError(t, err)

	manifest := m.Manifest(root)
	assert.Equal(t, "dummy", manifest.EmbeddingModel)

	entry, err := LoadEntry(core.SidecarPath(root, filepath.Join(root, "a.txt")))
	require.NoError(t, err)
	require.NotEmpty(t, entry.Chunks)
	assert.Len(t, entry.Chunks[0].Embedding, 64)

	stats, err := m.Stats(root)
	require.NoError(t, err)
	assert.Equal(t, stats.TotalChunks, stats.EmbeddedChunks)
}

func TestCleanupRemovesOrphans(t *testing.T) {
	root := t.TempDir()
	keep := write(t, root, "keep.txt", "keep")
	gone := write(t, root, "gone.txt", "gone")
	_ = keep

	m := newTestManager(t)
	_, err := m.IndexDirectory(context.Background(), root, Options{})
	require.NoError(t, err)

	require.NoError(t, os.Remove(gone))

	stats, err := m.Cleanup(root, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.OrphanedEntriesRemoved)
	assert.GreaterOrEqual(t, stats.OrphanedSidecarsRemoved, 1)

	manifest := m.Manifest(root)
	assert.NotContains(t, manifest.Files, "gone.txt")
	assert.Contains(t, manifest.Files, "keep.txt")

	_, err = os.Stat(core.SidecarPath(root, gone))
	assert.True(t, os.IsNotExist(err))
}

func TestCleanManifestSidecarConsistency(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.txt", "a")
	write(t, root, "sub/b.txt", "b")

	m := newTestManager(t)
	_, err := m.IndexDirectory(context.Background(), root, Options{})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "sub", "b.txt")))
	_, err = m.Cleanup(root, false, nil)
	require.NoError(t, err)

	// Manifest keys and sidecars agree after cleanup.
	manifest := m.Manifest(root)
	for rel := range manifest.Files {
		_, statErr := os.Stat(core.SidecarPath(root, filepath.Join(root, rel)))
		assert.NoError(t, statErr, rel)
	}
}

func TestCleanRemovesTree(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.txt", "a")

	m := newTestManager(t)
	_, err := m.IndexDirectory(context.Background(), root, Options{})
	require.NoError(t, err)

	require.NoError(t, m.Clean(root))
	_, err = os.Stat(filepath.Join(root, core.IndexDirName))
	assert.True(t, os.IsNotExist(err))
}

func TestIndexSingleFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	path := write(t, root, "single.txt", "single file content")

	m := newTestManager(t)
	require.NoError(t, m.IndexSingleFile(context.Background(), path, Options{}))

	manifest := m.Manifest(root)
	assert.Contains(t, manifest.Files, "single.txt")
}

func TestModelMismatchRejected(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.txt", "text")

	m := newTestManager(t)
	_, err := m.IndexDirectory(context.Background(), root, Options{ComputeEmbeddings: true, Model: "dummy"})
	require.NoError(t, err)

	// Pretend a different model is bound in the manifest.
	mPath := manifestPath(root)
	manifest := loadManifest(mPath)
	manifest.EmbeddingModel = "other-model"
	require.NoError(t, saveManifest(mPath, manifest))

	write(t, root, "b.txt", "more text")
	_, err = m.IndexDirectory(context.Background(), root, Options{ComputeEmbeddings: true, Model: "dummy"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "other-model")
}
