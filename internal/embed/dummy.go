package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// DummyDim is the vector dimension of the deterministic dummy embedder.
const DummyDim = 64

// DummyEmbedder produces deterministic vectors from token hashes. Identical
// text always embeds identically, and texts sharing tokens land near each
// other, which is enough for tests and offline smoke runs.
type DummyEmbedder struct{}

// NewDummyEmbedder returns the dummy backend.
func NewDummyEmbedder() *DummyEmbedder { return &DummyEmbedder{} }

func (d *DummyEmbedder) ID() string        { return "dummy" }
func (d *DummyEmbedder) Dim() int          { return DummyDim }
func (d *DummyEmbedder) ModelName() string { return "dummy" }
func (d *DummyEmbedder) Close() error      { return nil }

func (d *DummyEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = dummyVector(text)
	}
	return out, nil
}

func dummyVector(text string) []float32 {
	vec := make([]float32, DummyDim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()
		idx := int(sum % DummyDim)
		sign := float32(1)
		if (sum>>32)&1 == 1 {
			sign = -1
		}
		vec[idx] += sign
	}
	normalize(vec)
	return vec
}

func normalize(v []float32) {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm < 1e-10 {
		return
	}
	inv := float32(1.0 / norm)
	for i := range v {
		v[i] *= inv
	}
}

// DummyReranker scores documents by token overlap with the query.
type DummyReranker struct{}

// NewDummyReranker returns the dummy reranker.
func NewDummyReranker() *DummyReranker { return &DummyReranker{} }

func (d *DummyReranker) ID() string        { return "dummy" }
func (d *DummyReranker) ModelName() string { return "dummy" }
func (d *DummyReranker) Close() error      { return nil }

func (d *DummyReranker) Rerank(_ context.Context, query string, documents []string) ([]float64, error) {
	queryTokens := make(map[string]struct{})
	for _, t := range strings.Fields(strings.ToLower(query)) {
		queryTokens[t] = struct{}{}
	}

	scores := make([]float64, len(documents))
	for i, doc := range documents {
		fields := strings.Fields(strings.ToLower(doc))
		if len(fields) == 0 {
			continue
		}
		hits := 0
		for _, t := range fields {
			if _, ok := queryTokens[t]; ok {
				hits++
			}
		}
		scores[i] = float64(hits) / float64(len(fields))
	}
	return scores, nil
}
