// Package config loads optional user configuration from .ck/config.yaml at
// the search root. Everything has a working default; the file only overrides.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/semcs/ck/internal/core"
)

// Config is the user-facing configuration.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Rerank    RerankConfig    `yaml:"rerank"`
	Search    SearchConfig    `yaml:"search"`
	Index     IndexConfig     `yaml:"index"`
}

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	// Model is an embedder name: "dummy", a local model, or "jina-*".
	Model string `yaml:"model"`
}

// RerankConfig selects the reranker.
type RerankConfig struct {
	Model   string `yaml:"model"`
	Enabled bool   `yaml:"enabled"`
}

// SearchConfig sets ranked-mode defaults.
type SearchConfig struct {
	TopK      int     `yaml:"top_k"`
	Threshold float64 `yaml:"threshold"`
}

// IndexConfig sets walker defaults.
type IndexConfig struct {
	RespectGitignore *bool    `yaml:"respect_gitignore"`
	Exclude          []string `yaml:"exclude"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Search: SearchConfig{TopK: 10},
	}
}

// Path returns the config file location for a root.
func Path(root string) string {
	return filepath.Join(root, core.IndexDirName, "config.yaml")
}

// Load reads the config for root, returning defaults when the file is
// absent. A malformed file is an error; silent misconfiguration is worse
// than a failed start.
func Load(root string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path(root))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Search.TopK <= 0 {
		cfg.Search.TopK = 10
	}
	return cfg, nil
}

// RespectGitignore resolves the walker default (true unless overridden).
func (c *Config) RespectGitignore() bool {
	if c.Index.RespectGitignore == nil {
		return true
	}
	return *c.Index.RespectGitignore
}
