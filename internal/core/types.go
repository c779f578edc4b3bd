// Package core holds the value types shared by the index, search, and
// transport layers: spans, file metadata, chunk entries, the manifest, and
// the search option/result contract.
package core

import (
	"time"
)

// ManifestVersion is written into every new manifest.
const ManifestVersion = "0.1.0"

// Span is a byte-offset and line range inside a file. Lines are 1-indexed
// and inclusive.
type Span struct {
	ByteStart int `json:"byte_start"`
	ByteEnd   int `json:"byte_end"`
	LineStart int `json:"line_start"`
	LineEnd   int `json:"line_end"`
}

// FileMetadata identifies a file's content at index time. Hash is the BLAKE3
// hex digest of the file bytes; LastModified is seconds since epoch.
type FileMetadata struct {
	Path         string `json:"path"`
	Hash         string `json:"hash"`
	LastModified uint64 `json:"last_modified"`
	Size         uint64 `json:"size"`
}

// ChunkType tags the structural kind of a chunk. Generic line-window chunks
// carry ChunkTypeText and are not structural symbols.
type ChunkType string

const (
	ChunkTypeFunction ChunkType = "function"
	ChunkTypeClass    ChunkType = "class"
	ChunkTypeMethod   ChunkType = "method"
	ChunkTypeModule   ChunkType = "module"
	ChunkTypeText     ChunkType = "text"
)

// ChunkEntry is one indexed chunk of a file. Embedding is nil when the index
// was built without embeddings; when present its length equals the
// manifest-recorded dimension.
type ChunkEntry struct {
	Span            Span      `json:"span"`
	Embedding       []float32 `json:"embedding,omitempty"`
	ChunkType       ChunkType `json:"chunk_type,omitempty"`
	Symbol          string    `json:"symbol,omitempty"`
	Ancestry        []string  `json:"ancestry,omitempty"`
	EstimatedTokens int       `json:"estimated_tokens,omitempty"`
	ByteLength      int       `json:"byte_length,omitempty"`
	LeadingTrivia   string    `json:"leading_trivia,omitempty"`
	TrailingTrivia  string    `json:"trailing_trivia,omitempty"`
}

// IndexEntry is the sidecar payload for one indexed file. Chunks appear in
// file order and never extend past Metadata.Size.
type IndexEntry struct {
	Metadata FileMetadata `json:"metadata"`
	Chunks   []ChunkEntry `json:"chunks"`
}

// IndexManifest enumerates indexed files with content hashes. EmbeddingModel,
// once set, is immutable for the lifetime of the index; re-embedding with a
// different model requires a rebuild.
type IndexManifest struct {
	Version        string                  `json:"version"`
	Created        uint64                  `json:"created"`
	Updated        uint64                  `json:"updated"`
	EmbeddingModel string                  `json:"embedding_model,omitempty"`
	Files          map[string]FileMetadata `json:"files"`
}

// NewManifest returns a manifest stamped with the current time.
func NewManifest() *IndexManifest {
	now := uint64(time.Now().Unix())
	return &IndexManifest{
		Version: ManifestVersion,
		Created: now,
		Updated: now,
		Files:   make(map[string]FileMetadata),
	}
}

// SearchMode selects the retrieval strategy.
type SearchMode string

const (
	ModeRegex    SearchMode = "regex"
	ModeLexical  SearchMode = "lexical"
	ModeSemantic SearchMode = "semantic"
	ModeHybrid   SearchMode = "hybrid"
	ModeAST      SearchMode = "ast"
)

// SearchOptions is the single query contract shared by the CLI, the TUI, and
// the MCP server. Zero values mean "unset" for the pointer fields.
type SearchOptions struct {
	Mode  SearchMode
	Query string
	Path  string

	TopK      *int
	Threshold *float64

	CaseInsensitive bool
	WholeWord       bool
	FixedString     bool

	LineNumbers        bool
	ContextLines       int
	BeforeContextLines int
	AfterContextLines  int

	Recursive bool

	JSONOutput  bool
	JSONLOutput bool
	NoSnippet   bool

	Reindex       bool
	ShowScores    bool
	ShowFilenames bool

	FilesWithMatches    bool
	FilesWithoutMatches bool

	ExcludePatterns  []string
	IncludePatterns  []string
	RespectGitignore bool

	FullSection bool

	Rerank      bool
	RerankModel string

	EmbeddingModel string

	ASTPattern    string
	ASTLang       string
	ASTStrictness string
	ASTSelector   string
}

// DefaultSearchOptions mirrors grep defaults: regex mode, recursive, current
// directory, default excludes, gitignore respected.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Mode:             ModeRegex,
		Path:             ".",
		Recursive:        true,
		RespectGitignore: true,
		ExcludePatterns:  DefaultExcludePatterns(),
	}
}

// SearchResult is one match, identical in shape across all modes.
type SearchResult struct {
	File       string  `json:"file"`
	Span       Span    `json:"span"`
	Score      float64 `json:"score"`
	Preview    string  `json:"preview"`
	Lang       string  `json:"lang,omitempty"`
	Symbol     string  `json:"symbol,omitempty"`
	ChunkHash  string  `json:"chunk_hash,omitempty"`
	IndexEpoch uint64  `json:"index_epoch,omitempty"`
}

// SearchResults is a completed result set. ClosestBelowThreshold is the
// single highest-scoring result suppressed by the threshold, retained so the
// UX can nudge the user.
type SearchResults struct {
	Matches               []SearchResult `json:"matches"`
	ClosestBelowThreshold *SearchResult  `json:"closest_below_threshold,omitempty"`
}

// SearchSignals carries per-list ranks for the JSON v1 output shape.
type SearchSignals struct {
	LexRank  *int    `json:"lex_rank"`
	VecRank  *int    `json:"vec_rank"`
	RRFScore float64 `json:"rrf_score"`
}

// JSONSearchResult is the --json-v1 record.
type JSONSearchResult struct {
	File    string        `json:"file"`
	Span    Span          `json:"span"`
	Lang    string        `json:"lang,omitempty"`
	Symbol  string        `json:"symbol,omitempty"`
	Score   float64       `json:"score"`
	Signals SearchSignals `json:"signals"`
	Preview string        `json:"preview"`
	Model   string        `json:"model"`
}

// UpdateStats summarizes one smart_update_index pass.
type UpdateStats struct {
	FilesAdded     int `json:"files_added"`
	FilesModified  int `json:"files_modified"`
	FilesUpToDate  int `json:"files_up_to_date"`
	FilesIndexed   int `json:"files_indexed"`
	FilesErrored   int `json:"files_errored"`
	OrphansRemoved int `json:"orphans_removed"`
}

// CleanupStats summarizes one orphan sweep.
type CleanupStats struct {
	OrphanedEntriesRemoved  int `json:"orphaned_entries_removed"`
	OrphanedSidecarsRemoved int `json:"orphaned_sidecars_removed"`
}

// IndexStats is the status/stats surface for one index directory.
type IndexStats struct {
	TotalFiles     int    `json:"total_files"`
	TotalChunks    int    `json:"total_chunks"`
	EmbeddedChunks int    `json:"embedded_chunks"`
	TotalSizeBytes uint64 `json:"total_size_bytes"`
	IndexSizeBytes uint64 `json:"index_size_bytes"`
	IndexCreated   uint64 `json:"index_created"`
	IndexUpdated   uint64 `json:"index_updated"`
}
