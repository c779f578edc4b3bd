// Package embed provides the polymorphic embedder and reranker façade: a
// local ONNX runtime backend, the Jina HTTP API backend, and a deterministic
// dummy for tests. The engine depends only on the interfaces.
package embed

import (
	"context"
)

// Embedder turns text into dense vectors. Implementations are batch-oriented;
// callers should not parallelize Embed calls against one instance.
type Embedder interface {
	// ID is a short stable identifier ("dummy", "local", "jina").
	ID() string
	// Dim is the output vector dimension.
	Dim() int
	// ModelName is the exact model recorded in the index manifest.
	ModelName() string
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Close releases backend resources.
	Close() error
}

// Reranker reorders candidate documents by relevance to a query.
type Reranker interface {
	ID() string
	ModelName() string
	// Rerank returns one relevance score per document, in input order.
	Rerank(ctx context.Context, query string, documents []string) ([]float64, error)
	Close() error
}
