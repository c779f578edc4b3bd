package engine

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/semcs/ck/internal/chunk"
	"github.com/semcs/ck/internal/core"
	"github.com/semcs/ck/internal/index"
	"github.com/semcs/ck/internal/lexical"
)

// searchLexical consults the BM25 index, building it from the sidecar tree
// on first use.
func (e *Engine) searchLexical(ctx context.Context, root string, opts core.SearchOptions) (*core.SearchResults, error) {
	needsBuild := !lexical.Exists(root)

	idx, err := lexical.Open(root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = idx.Close() }()

	if needsBuild {
		if err := e.buildLexicalIndex(ctx, root, idx); err != nil {
			return nil, err
		}
	}

	topK := topKOrDefault(opts)
	hits, err := idx.Search(opts.Query, topK*3)
	if err != nil {
		return nil, err
	}

	results := &core.SearchResults{}
	epoch := e.manager.Manifest(root).Updated

	for _, hit := range hits {
		if len(results.Matches) >= topK {
			break
		}

		rel, lineStart, lineEnd, ok := parseLexicalID(hit.ID)
		if !ok || !pathFilter(root, opts.Path, rel) {
			continue
		}

		if opts.Threshold != nil && hit.Score < *opts.Threshold {
			if results.ClosestBelowThreshold == nil {
				if r, ok := e.buildLexicalResult(root, rel, lineStart, lineEnd, hit.Score, opts, epoch); ok {
					results.ClosestBelowThreshold = &r
				}
			}
			break
		}

		if r, ok := e.buildLexicalResult(root, rel, lineStart, lineEnd, hit.Score, opts, epoch); ok {
			results.Matches = append(results.Matches, r)
		}
	}

	return results, nil
}

// buildLexicalIndex walks the sidecars and indexes every chunk's text.
func (e *Engine) buildLexicalIndex(ctx context.Context, root string, idx *lexical.Index) error {
	manifest := e.manager.Manifest(root)

	var docs []lexical.Document
	for rel := range manifest.Files {
		if err := ctx.Err(); err != nil {
			return err
		}

		file := filepath.Join(root, filepath.FromSlash(rel))
		sidecar := core.SidecarPath(root, file)
		entry, err := index.LoadEntry(sidecar)
		if err != nil {
			continue
		}

		for _, c := range entry.Chunks {
			text, ok := extractPreview(file, c.Span.LineStart, c.Span.LineEnd, true)
			if !ok {
				continue
			}
			docs = append(docs, lexical.Document{
				ID:      lexicalID(rel, c.Span.LineStart, c.Span.LineEnd),
				Path:    rel,
				Content: text,
			})
		}

		if len(docs) >= 500 {
			if err := idx.Add(docs); err != nil {
				return err
			}
			docs = docs[:0]
		}
	}

	if len(docs) > 0 {
		return idx.Add(docs)
	}
	return nil
}

func (e *Engine) buildLexicalResult(root, rel string, lineStart, lineEnd int, score float64, opts core.SearchOptions, epoch uint64) (core.SearchResult, bool) {
	file := filepath.Join(root, filepath.FromSlash(rel))
	preview, ok := extractPreview(file, lineStart, lineEnd, opts.FullSection)
	if !ok {
		return core.SearchResult{}, false
	}
	return core.SearchResult{
		File:       file,
		Span:       core.Span{LineStart: lineStart, LineEnd: lineEnd},
		Score:      score,
		Preview:    preview,
		Lang:       chunk.DefaultRegistry().DetectLanguage(file),
		IndexEpoch: epoch,
	}, true
}

func lexicalID(rel string, lineStart, lineEnd int) string {
	return rel + ":" + strconv.Itoa(lineStart) + ":" + strconv.Itoa(lineEnd)
}

func parseLexicalID(id string) (rel string, lineStart, lineEnd int, ok bool) {
	last := strings.LastIndex(id, ":")
	if last < 0 {
		return "", 0, 0, false
	}
	secondLast := strings.LastIndex(id[:last], ":")
	if secondLast < 0 {
		return "", 0, 0, false
	}

	lineEnd, err := strconv.Atoi(id[last+1:])
	if err != nil {
		return "", 0, 0, false
	}
	lineStart, err = strconv.Atoi(id[secondLast+1 : last])
	if err != nil {
		return "", 0, 0, false
	}
	return id[:secondLast], lineStart, lineEnd, true
}
