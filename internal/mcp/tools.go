package mcp

import (
	"github.com/semcs/ck/internal/core"
	"github.com/semcs/ck/internal/session"
)

// SearchInput is shared by the four search tools. Query and Pattern are
// aliases: regex callers think in patterns, semantic callers in queries.
type SearchInput struct {
	Query   string `json:"query,omitempty" jsonschema:"the search query"`
	Pattern string `json:"pattern,omitempty" jsonschema:"alias for query, grep-style"`
	Path    string `json:"path" jsonschema:"file or directory to search (required)"`

	TopK      int      `json:"top_k,omitempty" jsonschema:"maximum ranked results, default 10"`
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"minimum score; below-threshold best match is reported separately"`

	CaseInsensitive bool `json:"case_insensitive,omitempty" jsonschema:"case-insensitive matching (regex/hybrid)"`
	WholeWord       bool `json:"whole_word,omitempty" jsonschema:"match whole words only"`
	FixedString     bool `json:"fixed_string,omitempty" jsonschema:"treat the pattern as a literal string"`

	ContextLines int  `json:"context_lines,omitempty" jsonschema:"context lines around regex matches, clamped to 0-10"`
	FullSection  bool `json:"full_section,omitempty" jsonschema:"return the whole enclosing function/class as preview"`

	ExcludePatterns  []string `json:"exclude_patterns,omitempty" jsonschema:"glob patterns to exclude"`
	RespectGitignore *bool    `json:"respect_gitignore,omitempty" jsonschema:"honour .gitignore, default true"`

	Reindex bool   `json:"reindex,omitempty" jsonschema:"force a full reindex before searching"`
	Rerank  bool   `json:"rerank,omitempty" jsonschema:"rerank semantic results"`
	Model   string `json:"embedding_model,omitempty" jsonschema:"embedding model override"`

	// Pagination.
	PageSize       int    `json:"page_size,omitempty" jsonschema:"results per page, clamped to 1-200, default 50"`
	Cursor         string `json:"cursor,omitempty" jsonschema:"opaque cursor from a previous page"`
	IncludeSnippet *bool  `json:"include_snippet,omitempty" jsonschema:"include previews, default true"`
	SnippetLength  int    `json:"snippet_length,omitempty" jsonschema:"preview truncation, clamped to 0-2000"`
}

// queryText resolves the query/pattern alias.
func (in SearchInput) queryText() string {
	if in.Query != "" {
		return in.Query
	}
	return in.Pattern
}

// toOptions converts tool input into the engine contract.
func (in SearchInput) toOptions(mode core.SearchMode) core.SearchOptions {
	opts := core.DefaultSearchOptions()
	opts.Mode = mode
	opts.Query = in.queryText()
	opts.Path = in.Path
	if in.TopK > 0 {
		topK := in.TopK
		opts.TopK = &topK
	}
	opts.Threshold = in.Threshold
	opts.CaseInsensitive = in.CaseInsensitive
	opts.WholeWord = in.WholeWord
	opts.FixedString = in.FixedString
	opts.ContextLines = in.pageConfig().ContextLines
	opts.FullSection = in.FullSection
	if len(in.ExcludePatterns) > 0 {
		opts.ExcludePatterns = append(opts.ExcludePatterns, in.ExcludePatterns...)
	}
	if in.RespectGitignore != nil {
		opts.RespectGitignore = *in.RespectGitignore
	}
	opts.Reindex = in.Reindex
	opts.Rerank = in.Rerank
	opts.EmbeddingModel = in.Model
	return opts
}

// pageConfig converts pagination knobs.
func (in SearchInput) pageConfig() session.Config {
	cfg := session.DefaultConfig()
	if in.PageSize > 0 {
		cfg.PageSize = in.PageSize
	}
	if in.IncludeSnippet != nil {
		cfg.IncludeSnippet = *in.IncludeSnippet
	}
	if in.SnippetLength > 0 {
		cfg.SnippetLength = in.SnippetLength
	}
	cfg.ContextLines = in.ContextLines
	return cfg.Validate()
}

// IndexStatusInput selects the index to report on.
type IndexStatusInput struct {
	Path string `json:"path" jsonschema:"directory whose index to inspect (required)"`
}

// IndexStatusOutput is the index_status tool response.
type IndexStatusOutput struct {
	Exists         bool   `json:"exists"`
	Path           string `json:"path"`
	TotalFiles     int    `json:"total_files"`
	TotalChunks    int    `json:"total_chunks"`
	EmbeddedChunks int    `json:"embedded_chunks"`
	IndexSizeBytes uint64 `json:"index_size_bytes"`
	LastModified   uint64 `json:"last_modified"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
}

// ReindexInput triggers a rebuild.
type ReindexInput struct {
	Path  string `json:"path" jsonschema:"directory to reindex (required)"`
	Force bool   `json:"force,omitempty" jsonschema:"rebuild from scratch instead of incrementally"`
	Model string `json:"embedding_model,omitempty" jsonschema:"embedding model override"`
}

// ReindexOutput reports the indexing pass.
type ReindexOutput struct {
	FilesAdded    int `json:"files_added"`
	FilesModified int `json:"files_modified"`
	FilesUpToDate int `json:"files_up_to_date"`
	FilesIndexed  int `json:"files_indexed"`
	FilesErrored  int `json:"files_errored"`
}

// EmptyInput is used by tools that take no parameters.
type EmptyInput struct{}

// CkignoreOutput carries the default ignore template.
type CkignoreOutput struct {
	Template string `json:"template"`
}

// HealthOutput is the health_check response.
type HealthOutput struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	WorkingDirectory string `json:"working_directory"`
}
