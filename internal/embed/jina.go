package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	ckerrors "github.com/semcs/ck/internal/errors"
)

const (
	jinaEmbeddingsURL = "https://api.jina.ai/v1/embeddings"
	jinaRerankURL     = "https://api.jina.ai/v1/rerank"
	jinaAPIKeyEnv     = "JINA_API_KEY"
)

// JinaEmbedder calls the Jina embedding API over HTTP.
type JinaEmbedder struct {
	client *http.Client
	apiKey string
	model  string
	dim    int
	url    string
}

// jinaModelDims maps supported remote models to their output dimensions.
var jinaModelDims = map[string]int{
	"jina-embeddings-v2-base-code": 768,
	"jina-embeddings-v3":           1024,
	"jina-embeddings-v4":           2048,
}

// NewJinaEmbedder builds the remote backend. Requires JINA_API_KEY.
func NewJinaEmbedder(model string) (*JinaEmbedder, error) {
	apiKey := os.Getenv(jinaAPIKeyEnv)
	if apiKey == "" {
		return nil, ckerrors.New(ckerrors.KindEmbedding,
			"%s is required for remote model %q", jinaAPIKeyEnv, model).
			WithSuggestion("export JINA_API_KEY=<key> or pick a local model")
	}

	dim, ok := jinaModelDims[model]
	if !ok {
		return nil, ckerrors.New(ckerrors.KindEmbedding, "unknown Jina model %q", model)
	}

	return &JinaEmbedder{
		client: &http.Client{Timeout: 120 * time.Second},
		apiKey: apiKey,
		model:  model,
		dim:    dim,
		url:    jinaEmbeddingsURL,
	}, nil
}

func (j *JinaEmbedder) ID() string        { return "jina" }
func (j *JinaEmbedder) Dim() int          { return j.dim }
func (j *JinaEmbedder) ModelName() string { return j.model }
func (j *JinaEmbedder) Close() error      { return nil }

type jinaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type jinaEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (j *JinaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp jinaEmbedResponse
	err := withRetry(ctx, func() error {
		return j.post(ctx, j.url, jinaEmbedRequest{Model: j.model, Input: texts}, &resp)
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, ckerrors.New(ckerrors.KindEmbedding,
			"jina returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, ckerrors.New(ckerrors.KindEmbedding, "jina returned out-of-range index %d", d.Index)
		}
		if len(d.Embedding) != j.dim {
			return nil, ckerrors.DimensionMismatch(j.dim, len(d.Embedding))
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (j *JinaEmbedder) post(ctx context.Context, url string, payload, into any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+j.apiKey)

	resp, err := j.client.Do(req)
	if err != nil {
		e := ckerrors.Wrap(ckerrors.KindEmbedding, err, "jina request failed")
		e.Retryable = true
		return e
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		e := ckerrors.New(ckerrors.KindEmbedding,
			"jina API returned %d for model %s: %s", resp.StatusCode, j.model, string(snippet))
		e.Retryable = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return e
	}

	return json.NewDecoder(resp.Body).Decode(into)
}

// JinaReranker calls the Jina rerank API.
type JinaReranker struct {
	embedder *JinaEmbedder // reuses auth and transport
	model    string
}

// NewJinaReranker builds the remote reranker. Requires JINA_API_KEY.
func NewJinaReranker(model string) (*JinaReranker, error) {
	apiKey := os.Getenv(jinaAPIKeyEnv)
	if apiKey == "" {
		return nil, ckerrors.New(ckerrors.KindEmbedding,
			"%s is required for reranker %q", jinaAPIKeyEnv, model)
	}
	return &JinaReranker{
		embedder: &JinaEmbedder{
			client: &http.Client{Timeout: 120 * time.Second},
			apiKey: apiKey,
			model:  model,
		},
		model: model,
	}, nil
}

func (r *JinaReranker) ID() string        { return "jina" }
func (r *JinaReranker) ModelName() string { return r.model }
func (r *JinaReranker) Close() error      { return nil }

type jinaRerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type jinaRerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

func (r *JinaReranker) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	var resp jinaRerankResponse
	err := withRetry(ctx, func() error {
		return r.embedder.post(ctx, jinaRerankURL,
			jinaRerankRequest{Model: r.model, Query: query, Documents: documents}, &resp)
	})
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(documents))
	for _, res := range resp.Results {
		if res.Index >= 0 && res.Index < len(scores) {
			scores[res.Index] = res.RelevanceScore
		}
	}
	return scores, nil
}
