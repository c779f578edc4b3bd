package engine

import (
	"context"
	"sort"

	"github.com/semcs/ck/internal/core"
	"github.com/semcs/ck/internal/progress"
)

// rrfK is the reciprocal-rank-fusion constant: score = Σ 1/(60 + rank).
const rrfK = 60

// searchHybrid fuses the regex and semantic lists with RRF. The threshold,
// when set, applies to the fused score directly (typical values 0.01-0.05).
func (e *Engine) searchHybrid(ctx context.Context, root string, opts core.SearchOptions, searchCB progress.Callback) (*core.SearchResults, error) {
	regexOpts := opts
	regexOpts.Mode = core.ModeRegex
	regexOpts.Threshold = nil
	regexResults, err := e.searchRegex(ctx, regexOpts)
	if err != nil {
		return nil, err
	}

	semanticOpts := opts
	semanticOpts.Mode = core.ModeSemantic
	semanticOpts.Threshold = nil
	bigK := len(regexResults.Matches) + 100
	semanticOpts.TopK = &bigK
	semanticResults, err := e.searchSemantic(ctx, root, semanticOpts, searchCB)
	if err != nil {
		return nil, err
	}

	fused := fuseRRF([][]core.SearchResult{regexResults.Matches, semanticResults.Matches})

	results := &core.SearchResults{}
	topK := topKOrDefault(opts)
	for _, r := range fused {
		if len(results.Matches) >= topK {
			break
		}
		if opts.Threshold != nil && r.Score < *opts.Threshold {
			if results.ClosestBelowThreshold == nil {
				below := r
				results.ClosestBelowThreshold = &below
			}
			break
		}
		results.Matches = append(results.Matches, r)
	}

	return results, nil
}

// docKey identifies a document across ranked lists.
type docKey struct {
	file      string
	lineStart int
}

// fuseRRF computes reciprocal-rank fusion over the given ranked lists:
// score(d) = Σ_r 1/(60 + rank_r(d)), ranks 1-based, summed over the lists
// the document appears in. The fused list is sorted by score descending.
func fuseRRF(lists [][]core.SearchResult) []core.SearchResult {
	type fusedDoc struct {
		result core.SearchResult
		score  float64
		order  int // first-seen order for stable ties
	}

	docs := make(map[docKey]*fusedDoc)
	seen := 0

	for _, list := range lists {
		for rank, r := range list {
			key := docKey{file: r.File, lineStart: r.Span.LineStart}
			d, ok := docs[key]
			if !ok {
				d = &fusedDoc{result: r, order: seen}
				seen++
				docs[key] = d
			}
			d.score += 1.0 / float64(rrfK+rank+1)
			// Prefer the richer preview when both lists carry the document.
			if len(r.Preview) > len(d.result.Preview) {
				d.result.Preview = r.Preview
			}
			if r.Symbol != "" && d.result.Symbol == "" {
				d.result.Symbol = r.Symbol
			}
		}
	}

	fused := make([]*fusedDoc, 0, len(docs))
	for _, d := range docs {
		fused = append(fused, d)
	}
	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return fused[i].order < fused[j].order
	})

	out := make([]core.SearchResult, len(fused))
	for i, d := range fused {
		d.result.Score = d.score
		out[i] = d.result
	}
	return out
}
