package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenAbsent(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Search.TopK)
	assert.True(t, cfg.RespectGitignore())
	assert.Empty(t, cfg.Embedding.Model)
}

func TestLoadOverrides(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".ck"), 0o755))
	require.NoError(t, os.WriteFile(Path(root), []byte(`
embedding:
  model: jina-embeddings-v3
search:
  top_k: 25
  threshold: 0.4
index:
  respect_gitignore: false
  exclude:
    - vendor
`), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "jina-embeddings-v3", cfg.Embedding.Model)
	assert.Equal(t, 25, cfg.Search.TopK)
	assert.InDelta(t, 0.4, cfg.Search.Threshold, 1e-9)
	assert.False(t, cfg.RespectGitignore())
	assert.Equal(t, []string{"vendor"}, cfg.Index.Exclude)
}

func TestLoadMalformedErrors(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".ck"), 0o755))
	require.NoError(t, os.WriteFile(Path(root), []byte("searches: [unbalanced"), 0o644))

	_, err := Load(root)
	assert.Error(t, err)
}
