// Package index owns the .ck/ sidecar tree and the manifest: full and
// incremental builds, single-file updates, orphan cleanup, teardown, and
// stats. Builds, updates and cleanup run under a per-directory file lock so
// at most one process indexes a root at a time; Clean removes the tree
// without taking that lock.
package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/semcs/ck/internal/chunk"
	"github.com/semcs/ck/internal/core"
	"github.com/semcs/ck/internal/embed"
	ckerrors "github.com/semcs/ck/internal/errors"
	"github.com/semcs/ck/internal/progress"
	"github.com/semcs/ck/internal/scanner"
)

// Options configures an indexing pass.
type Options struct {
	ComputeEmbeddings bool
	RespectGitignore  bool
	ExcludePatterns   []string
	// Model names the embedder; "" picks the default. Recorded in the
	// manifest on the first embedding-bearing build.
	Model string
	// Force rebuilds from scratch.
	Force bool

	Progress         progress.Callback
	DetailedProgress progress.DetailedCallback
}

// Manager performs all index mutations for one or more roots.
type Manager struct {
	scanner *scanner.Scanner
}

// NewManager creates a Manager.
func NewManager() (*Manager, error) {
	s, err := scanner.New()
	if err != nil {
		return nil, err
	}
	return &Manager{scanner: s}, nil
}

func manifestPath(root string) string {
	return filepath.Join(root, core.IndexDirName, "manifest.json")
}

// lock acquires the cross-process index lock for root. The caller must call
// the returned release function.
func (m *Manager) lock(root string) (func(), error) {
	indexDir := filepath.Join(root, core.IndexDirName)
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, ckerrors.Wrap(ckerrors.KindIO, err, "create index directory")
	}

	fl := flock.New(filepath.Join(indexDir, ".lock"))
	if err := fl.Lock(); err != nil {
		return nil, ckerrors.Wrap(ckerrors.KindIO, err, "acquire index lock")
	}
	return func() { _ = fl.Unlock() }, nil
}

// IndexDirectory runs a full build. Without embeddings files are chunked in
// parallel and streamed to a single writer; with embeddings files are
// processed sequentially because embedder back-ends are batch-oriented. In
// both modes each completed file's sidecar is written atomically and the
// manifest flushed after each file, so the index is consistent at every
// instant and interruptible without corruption.
func (m *Manager) IndexDirectory(ctx context.Context, root string, opts Options) (core.UpdateStats, error) {
	var stats core.UpdateStats

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return stats, err
	}

	release, err := m.lock(absRoot)
	if err != nil {
		return stats, err
	}
	defer release()

	if opts.Force {
		if err := cleanLocked(absRoot); err != nil {
			return stats, err
		}
	}

	manifest := loadManifest(manifestPath(absRoot))

	files, err := m.scanner.CollectFiles(absRoot, opts.RespectGitignore, opts.ExcludePatterns)
	if err != nil {
		return stats, ckerrors.Wrap(ckerrors.KindIO, err, "collect files")
	}

	return m.indexFiles(ctx, absRoot, files, manifest, opts, &stats)
}

// SmartUpdate performs the incremental pass: unseen files and files whose
// sidecar is missing or malformed are added, files with matching
// (mtime, size) are skipped, files whose content hash matches
// get a metadata-only correction, everything else is re-indexed. Files that
// error at any step are counted and skipped; the index is never left
// inconsistent.
func (m *Manager) SmartUpdate(ctx context.Context, root string, opts Options) (core.UpdateStats, error) {
	var stats core.UpdateStats

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return stats, err
	}

	if opts.Force {
		return m.IndexDirectory(ctx, absRoot, opts)
	}

	release, err := m.lock(absRoot)
	if err != nil {
		return stats, err
	}
	defer release()

	mPath := manifestPath(absRoot)
	manifest := loadManifest(mPath)

	files, err := m.scanner.CollectFiles(absRoot, opts.RespectGitignore, opts.ExcludePatterns)
	if err != nil {
		return stats, ckerrors.Wrap(ckerrors.KindIO, err, "collect files")
	}

	var toIndex []string
	manifestChanged := false

	for _, file := range files {
		rel := relativeTo(absRoot, file)
		meta, known := manifest.Files[rel]
		if !known {
			stats.FilesAdded++
			toIndex = append(toIndex, file)
			continue
		}
		if _, err := LoadEntry(core.SidecarPath(absRoot, file)); err != nil {
			// Missing or malformed sidecar: treat the file as unseen.
			stats.FilesAdded++
			toIndex = append(toIndex, file)
			continue
		}

		info, err := os.Stat(file)
		if err != nil {
			stats.FilesErrored++
			continue
		}
		fsModified := uint64(info.ModTime().Unix())
		fsSize := uint64(info.Size())

		if fsModified == meta.LastModified && fsSize == meta.Size {
			stats.FilesUpToDate++
			continue
		}

		hash, err := core.ComputeFileHash(file)
		if err != nil {
			stats.FilesErrored++
			continue
		}

		if hash == meta.Hash {
			// Content unchanged; correct the metadata only.
			stats.FilesUpToDate++
			manifest.Files[rel] = core.FileMetadata{
				Path:         rel,
				Hash:         hash,
				LastModified: fsModified,
				Size:         fsSize,
			}
			manifestChanged = true
			continue
		}

		stats.FilesModified++
		toIndex = append(toIndex, file)
	}

	if _, err := m.indexFiles(ctx, absRoot, toIndex, manifest, opts, &stats); err != nil {
		return stats, err
	}

	if manifestChanged && stats.FilesIndexed == 0 {
		manifest.Updated = uint64(time.Now().Unix())
		if err := saveManifest(mPath, manifest); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// indexFiles chunks (and optionally embeds) the given files, streaming each
// finished entry to disk. Mutates stats in place and returns it.
func (m *Manager) indexFiles(ctx context.Context, absRoot string, files []string, manifest *core.IndexManifest, opts Options, stats *core.UpdateStats) (core.UpdateStats, error) {
	if len(files) == 0 {
		return *stats, nil
	}

	mPath := manifestPath(absRoot)

	var embedder embed.Embedder
	if opts.ComputeEmbeddings {
		var err error
		embedder, err = embed.NewEmbedder(opts.Model)
		if err != nil {
			return *stats, err
		}
		defer func() { _ = embedder.Close() }()

		if manifest.EmbeddingModel != "" && manifest.EmbeddingModel != embedder.ModelName() {
			return *stats, ckerrors.New(ckerrors.KindIndex,
				"index was built with model %q, requested %q", manifest.EmbeddingModel, embedder.ModelName()).
				WithSuggestion("pass --reindex to rebuild with the new model")
		}
		manifest.EmbeddingModel = embedder.ModelName()
	}

	writeEntry := func(file string, entry *core.IndexEntry) error {
		sidecar := core.SidecarPath(absRoot, file)
		if err := SaveEntry(sidecar, entry); err != nil {
			return err
		}
		manifest.Files[entry.Metadata.Path] = entry.Metadata
		manifest.Updated = uint64(time.Now().Unix())
		if err := saveManifest(mPath, manifest); err != nil {
			return err
		}
		stats.FilesIndexed++
		if opts.Progress != nil {
			opts.Progress(filepath.Base(file))
		}
		return nil
	}

	if opts.ComputeEmbeddings {
		// Sequential: embedder back-ends are batchy and often rate-limited.
		for i, file := range files {
			if err := ctx.Err(); err != nil {
				return *stats, err
			}
			entry, err := m.buildEntry(ctx, absRoot, file, embedder, opts, i, len(files))
			if err != nil {
				slog.Warn("index_file_failed", slog.String("file", file), slog.String("error", err.Error()))
				stats.FilesErrored++
				continue
			}
			if err := writeEntry(file, entry); err != nil {
				return *stats, err
			}
		}
		return *stats, nil
	}

	// Parallel chunking with a single writer keeping on-disk state
	// sequentially consistent.
	type result struct {
		file  string
		entry *core.IndexEntry
	}
	results := make(chan result, runtime.NumCPU())
	var errored atomic.Int64

	go func() {
		defer close(results)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(runtime.NumCPU())
		for _, file := range files {
			file := file
			g.Go(func() error {
				entry, err := m.buildEntry(gctx, absRoot, file, nil, opts, 0, len(files))
				if err != nil {
					slog.Warn("index_file_failed", slog.String("file", file), slog.String("error", err.Error()))
					errored.Add(1)
					return nil
				}
				select {
				case results <- result{file: file, entry: entry}:
				case <-gctx.Done():
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	for r := range results {
		if err := ctx.Err(); err != nil {
			return *stats, err
		}
		if err := writeEntry(r.file, r.entry); err != nil {
			return *stats, err
		}
	}
	stats.FilesErrored += int(errored.Load())

	return *stats, nil
}

// IndexSingleFile indexes one file regardless of mtime or hash, discovering
// the repo root by walking upward.
func (m *Manager) IndexSingleFile(ctx context.Context, filePath string, opts Options) error {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return err
	}
	root := core.FindRepoRoot(abs)

	release, err := m.lock(root)
	if err != nil {
		return err
	}
	defer release()

	manifest := loadManifest(manifestPath(root))

	var stats core.UpdateStats
	_, err = m.indexFiles(ctx, root, []string{abs}, manifest, opts, &stats)
	if err != nil {
		return err
	}
	if stats.FilesErrored > 0 {
		return ckerrors.New(ckerrors.KindIndex, "failed to index %s", filePath)
	}
	return nil
}

// buildEntry reads, chunks, and optionally embeds one file.
func (m *Manager) buildEntry(ctx context.Context, absRoot, file string, embedder embed.Embedder, opts Options, fileIdx, totalFiles int) (*core.IndexEntry, error) {
	content, err := readFileContent(absRoot, file)
	if err != nil {
		return nil, err
	}

	hash, err := core.ComputeFileHash(file)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(file)
	if err != nil {
		return nil, err
	}

	rel := relativeTo(absRoot, file)
	metadata := core.FileMetadata{
		Path:         rel,
		Hash:         hash,
		LastModified: uint64(info.ModTime().Unix()),
		Size:         uint64(info.Size()),
	}

	lang := chunk.DefaultRegistry().DetectLanguage(file)
	chunks, err := chunk.ChunkText(ctx, content, lang, opts.Model)
	if err != nil {
		return nil, err
	}

	entries := make([]core.ChunkEntry, 0, len(chunks))
	for _, c := range chunks {
		entries = append(entries, core.ChunkEntry{
			Span:            c.Span,
			ChunkType:       c.ChunkType,
			Symbol:          c.Symbol,
			Ancestry:        c.Ancestry,
			EstimatedTokens: chunk.EstimateTokens(c.Text),
			ByteLength:      len(c.Text),
		})
	}

	if embedder != nil && len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		if opts.DetailedProgress != nil {
			opts.DetailedProgress(progress.DetailedUpdate{
				File:        rel,
				TotalChunks: len(chunks),
				FilesDone:   fileIdx,
				TotalFiles:  totalFiles,
				Stage:       "embedding",
			})
		}
		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(entries) {
			return nil, ckerrors.New(ckerrors.KindEmbedding,
				"embedder returned %d vectors for %d chunks", len(vectors), len(entries))
		}
		for i := range entries {
			if len(vectors[i]) != embedder.Dim() {
				return nil, ckerrors.DimensionMismatch(embedder.Dim(), len(vectors[i]))
			}
			entries[i].Embedding = vectors[i]
		}
	}

	return &core.IndexEntry{Metadata: metadata, Chunks: entries}, nil
}

// Clean removes the entire .ck/ tree for root.
func (m *Manager) Clean(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	return cleanLocked(absRoot)
}

func cleanLocked(absRoot string) error {
	indexDir := filepath.Join(absRoot, core.IndexDirName)
	if _, err := os.Stat(indexDir); os.IsNotExist(err) {
		return nil
	}
	return os.RemoveAll(indexDir)
}

// Cleanup removes manifest entries whose files are gone, deletes the
// matching sidecars, deletes orphaned sidecars whose reconstructed original
// path no longer exists, then prunes empty directories under .ck/.
func (m *Manager) Cleanup(root string, respectGitignore bool, excludePatterns []string) (core.CleanupStats, error) {
	var stats core.CleanupStats

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return stats, err
	}
	indexDir := filepath.Join(absRoot, core.IndexDirName)
	if _, err := os.Stat(indexDir); os.IsNotExist(err) {
		return stats, nil
	}

	release, err := m.lock(absRoot)
	if err != nil {
		return stats, err
	}
	defer release()

	mPath := manifestPath(absRoot)
	manifest := loadManifest(mPath)

	files, err := m.scanner.CollectFiles(absRoot, respectGitignore, excludePatterns)
	if err != nil {
		return stats, err
	}
	current := make(map[string]struct{}, len(files))
	for _, f := range files {
		current[relativeTo(absRoot, f)] = struct{}{}
	}

	for rel := range manifest.Files {
		if _, exists := current[rel]; exists {
			continue
		}
		delete(manifest.Files, rel)
		stats.OrphanedEntriesRemoved++

		sidecar := core.SidecarPath(absRoot, filepath.Join(absRoot, rel))
		if _, err := os.Stat(sidecar); err == nil {
			if err := os.Remove(sidecar); err == nil {
				stats.OrphanedSidecarsRemoved++
			}
		}
	}

	// Sweep sidecars whose reconstructed original no longer exists.
	_ = filepath.WalkDir(indexDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".ck" {
			return nil
		}
		original, ok := core.SidecarToOriginal(path, indexDir)
		if !ok {
			return nil
		}
		_, onDisk := current[original]
		_, inManifest := manifest.Files[original]
		if !onDisk && !inManifest {
			if rmErr := os.Remove(path); rmErr == nil {
				stats.OrphanedSidecarsRemoved++
			}
		}
		return nil
	})

	removeEmptyDirs(indexDir)

	if stats.OrphanedEntriesRemoved > 0 {
		manifest.Updated = uint64(time.Now().Unix())
		if err := saveManifest(mPath, manifest); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// Stats reads the manifest and sidecars to produce index statistics.
func (m *Manager) Stats(root string) (core.IndexStats, error) {
	var stats core.IndexStats

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return stats, err
	}
	indexDir := filepath.Join(absRoot, core.IndexDirName)
	if _, err := os.Stat(indexDir); os.IsNotExist(err) {
		return stats, nil
	}

	manifest := loadManifest(manifestPath(absRoot))
	stats.TotalFiles = len(manifest.Files)
	stats.IndexCreated = manifest.Created
	stats.IndexUpdated = manifest.Updated

	for rel, meta := range manifest.Files {
		sidecar := core.SidecarPath(absRoot, filepath.Join(absRoot, rel))
		entry, err := LoadEntry(sidecar)
		if err != nil {
			continue
		}
		stats.TotalChunks += len(entry.Chunks)
		stats.TotalSizeBytes += meta.Size
		for _, c := range entry.Chunks {
			if len(c.Embedding) > 0 {
				stats.EmbeddedChunks++
			}
		}
	}

	_ = filepath.WalkDir(indexDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, ierr := d.Info(); ierr == nil {
			stats.IndexSizeBytes += uint64(info.Size())
		}
		return nil
	})

	return stats, nil
}

// EmbeddingModel returns the model recorded in the manifest, "" when unset.
func (m *Manager) EmbeddingModel(root string) string {
	manifest := loadManifest(manifestPath(root))
	return manifest.EmbeddingModel
}

// Manifest loads the manifest for root.
func (m *Manager) Manifest(root string) *core.IndexManifest {
	return loadManifest(manifestPath(root))
}

func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func removeEmptyDirs(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			sub := filepath.Join(dir, e.Name())
			removeEmptyDirs(sub)
			if remaining, rerr := os.ReadDir(sub); rerr == nil && len(remaining) == 0 {
				_ = os.Remove(sub)
			}
		}
	}
}
