package embed

import (
	"os"
	"path/filepath"
	"strings"

	ckerrors "github.com/semcs/ck/internal/errors"
)

// NewEmbedder builds the embedder for a model name. "" selects the default
// local model; "dummy" the deterministic backend; "jina-*" the remote API;
// anything else a local ONNX model.
func NewEmbedder(model string) (Embedder, error) {
	switch {
	case model == "":
		return NewLocalEmbedder(DefaultLocalModel, ModelCacheDir(DefaultLocalModel))
	case model == "dummy":
		return NewDummyEmbedder(), nil
	case strings.HasPrefix(model, "jina-"):
		return NewJinaEmbedder(model)
	default:
		return NewLocalEmbedder(model, ModelCacheDir(model))
	}
}

// NewReranker builds the reranker for a model name. "" and "dummy" select the
// dummy backend; "jina-*" the remote API.
func NewReranker(model string) (Reranker, error) {
	switch {
	case model == "" || model == "dummy":
		return NewDummyReranker(), nil
	case strings.HasPrefix(model, "jina-"):
		return NewJinaReranker(model)
	default:
		return nil, ckerrors.New(ckerrors.KindEmbedding, "unknown reranker model %q", model)
	}
}

// ModelCacheDir locates <cache>/ck/models/<model>. The cache root follows
// XDG_CACHE_HOME, then LOCALAPPDATA (Windows), then ~/.cache.
func ModelCacheDir(model string) string {
	return filepath.Join(cacheRoot(), "ck", "models", model)
}

// RerankerCacheDir locates <cache>/ck/rerankers/<model>.
func RerankerCacheDir(model string) string {
	return filepath.Join(cacheRoot(), "ck", "rerankers", model)
}

func cacheRoot() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		return local
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache")
	}
	return os.TempDir()
}
