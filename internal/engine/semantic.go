package engine

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/semcs/ck/internal/ann"
	"github.com/semcs/ck/internal/chunk"
	"github.com/semcs/ck/internal/core"
	"github.com/semcs/ck/internal/embed"
	ckerrors "github.com/semcs/ck/internal/errors"
	"github.com/semcs/ck/internal/index"
	"github.com/semcs/ck/internal/progress"
)

// scoredChunk ties a chunk back to its file for ranking.
type scoredChunk struct {
	rel   string
	chunk core.ChunkEntry
	score float64
}

// searchSemantic walks the sidecar tree, cosine-ranks every embedded chunk
// against the query embedding, and extracts previews from the live files.
func (e *Engine) searchSemantic(ctx context.Context, root string, opts core.SearchOptions, searchCB progress.Callback) (*core.SearchResults, error) {
	model := e.manager.EmbeddingModel(root)
	if model == "" {
		return nil, ckerrors.MissingEmbeddings(root)
	}
	if opts.EmbeddingModel != "" && opts.EmbeddingModel != model && !opts.Reindex {
		return nil, ckerrors.New(ckerrors.KindIndex,
			"index was built with model %q, requested %q", model, opts.EmbeddingModel).
			WithSuggestion("pass --reindex to rebuild embeddings")
	}

	embedder, err := embed.NewEmbedder(model)
	if err != nil {
		return nil, err
	}
	defer func() { _ = embedder.Close() }()

	if searchCB != nil {
		searchCB("computing query embedding")
	}
	queryVecs, err := embedder.Embed(ctx, []string{opts.Query})
	if err != nil {
		return nil, err
	}
	queryVec := queryVecs[0]

	chunks, err := e.collectEmbeddedChunks(ctx, root, opts, len(queryVec))
	if err != nil {
		return nil, err
	}
	if searchCB != nil {
		searchCB(fmt.Sprintf("ranking %d chunks", len(chunks)))
	}

	for i := range chunks {
		chunks[i].score = ann.CosineSimilarity(queryVec, chunks[i].chunk.Embedding)
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].score > chunks[j].score })

	topK := topKOrDefault(opts)
	results := &core.SearchResults{}

	epoch := e.manager.Manifest(root).Updated
	for _, sc := range chunks {
		if len(results.Matches) >= topK {
			break
		}

		if opts.Threshold != nil && sc.score < *opts.Threshold {
			// Everything from here on is below threshold (sorted); keep the
			// best one so the UX can nudge the user.
			if results.ClosestBelowThreshold == nil {
				if r, ok := e.buildSemanticResult(root, sc, opts, epoch); ok {
					results.ClosestBelowThreshold = &r
				}
			}
			break
		}

		if r, ok := e.buildSemanticResult(root, sc, opts, epoch); ok {
			results.Matches = append(results.Matches, r)
		}
	}

	if opts.Rerank && len(results.Matches) > 1 {
		if err := e.rerankResults(ctx, opts, results); err != nil {
			return nil, err
		}
		if topK < len(results.Matches) {
			results.Matches = results.Matches[:topK]
		}
	}

	return results, nil
}

// collectEmbeddedChunks loads every sidecar under root and keeps chunks with
// embeddings, applying the query path filter. A sidecar whose dimension does
// not match the query embedding is a fatal index error.
func (e *Engine) collectEmbeddedChunks(ctx context.Context, root string, opts core.SearchOptions, queryDim int) ([]scoredChunk, error) {
	indexDir := filepath.Join(root, core.IndexDirName)

	var chunks []scoredChunk
	err := filepath.WalkDir(indexDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			if d.Name() == "bleve_index" || d.Name() == "pdf_cache" {
				return fs.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".ck" {
			return nil
		}

		rel, ok := core.SidecarToOriginal(path, indexDir)
		if !ok {
			return nil
		}
		if !pathFilter(root, opts.Path, rel) {
			return nil
		}

		entry, err := index.LoadEntry(path)
		if err != nil {
			// Malformed sidecar: treated as missing; re-indexed next update.
			return nil
		}
		for _, c := range entry.Chunks {
			if len(c.Embedding) == 0 {
				continue
			}
			if len(c.Embedding) != queryDim {
				return ckerrors.DimensionMismatch(len(c.Embedding), queryDim)
			}
			chunks = append(chunks, scoredChunk{rel: rel, chunk: c})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// buildSemanticResult re-reads the source file for the preview. Missing
// files produce no result: they may have been deleted between indexing and
// search.
func (e *Engine) buildSemanticResult(root string, sc scoredChunk, opts core.SearchOptions, epoch uint64) (core.SearchResult, bool) {
	file := filepath.Join(root, filepath.FromSlash(sc.rel))
	preview, ok := extractPreview(file, sc.chunk.Span.LineStart, sc.chunk.Span.LineEnd, opts.FullSection)
	if !ok {
		return core.SearchResult{}, false
	}

	symbol := sc.chunk.Symbol
	if symbol != "" && len(sc.chunk.Ancestry) > 0 {
		symbol = strings.Join(append(append([]string(nil), sc.chunk.Ancestry...), symbol), ".")
	}

	return core.SearchResult{
		File:       file,
		Span:       sc.chunk.Span,
		Score:      sc.score,
		Preview:    preview,
		Lang:       chunk.DefaultRegistry().DetectLanguage(file),
		Symbol:     symbol,
		IndexEpoch: epoch,
	}, true
}

// rerankResults passes the ranked previews through the reranker, then
// re-sorts by rerank score.
func (e *Engine) rerankResults(ctx context.Context, opts core.SearchOptions, results *core.SearchResults) error {
	reranker, err := embed.NewReranker(opts.RerankModel)
	if err != nil {
		return err
	}
	defer func() { _ = reranker.Close() }()

	docs := make([]string, len(results.Matches))
	for i, r := range results.Matches {
		docs[i] = r.Preview
	}

	scores, err := reranker.Rerank(ctx, opts.Query, docs)
	if err != nil {
		return err
	}
	for i := range results.Matches {
		results.Matches[i].Score = scores[i]
	}
	sort.SliceStable(results.Matches, func(i, j int) bool {
		return results.Matches[i].Score > results.Matches[j].Score
	})
	return nil
}
