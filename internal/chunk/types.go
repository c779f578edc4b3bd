package chunk

import (
	"github.com/semcs/ck/internal/core"
)

// DefaultMaxTokens is the embedding token budget; chunks estimated above it
// are strided.
const DefaultMaxTokens = 8192

// DefaultStrideOverlap is the token overlap between consecutive strides.
const DefaultStrideOverlap = 1024

// defaultCharsPerToken is used when a chunk's own token estimate is zero.
const defaultCharsPerToken = 4.5

// tokensPerLine is the line heuristic used to convert token budgets into
// line windows for generic chunking.
const tokensPerLine = 10

// StrideInfo describes one sub-chunk of an oversize chunk.
type StrideInfo struct {
	// OriginalChunkID is "<orig_byte_start>:<orig_byte_end>".
	OriginalChunkID string `json:"original_chunk_id"`
	StrideIndex     int    `json:"stride_index"`
	TotalStrides    int    `json:"total_strides"`
	// OverlapStart is the number of characters at the start of this stride
	// shared with the previous stride (0 for the first stride); OverlapEnd is
	// the number at the end shared with the next stride (0 for the last).
	OverlapStart int `json:"overlap_start"`
	OverlapEnd   int `json:"overlap_end"`
}

// Chunk is one contiguous span of a source file treated as a unit for
// indexing, embedding, and preview extraction. Text is the exact byte slice
// of the span.
type Chunk struct {
	Span       core.Span
	Text       string
	ChunkType  core.ChunkType
	Symbol     string
	Ancestry   []string
	StrideInfo *StrideInfo
}

// Config controls chunk sizing.
type Config struct {
	// TargetTokens is the generic-chunk window.
	TargetTokens int
	// OverlapTokens is the generic-chunk overlap.
	OverlapTokens int
	// MaxTokens is the striding threshold.
	MaxTokens int
	// StrideOverlap is the token overlap between strides.
	StrideOverlap int
}

// ConfigForModel returns the per-model chunk profile: small models get
// (400, 80), large-context models (1024, 200), default (1024, 200).
func ConfigForModel(modelName string) Config {
	target, overlap := modelChunkProfile(modelName)
	return Config{
		TargetTokens:  target,
		OverlapTokens: overlap,
		MaxTokens:     DefaultMaxTokens,
		StrideOverlap: DefaultStrideOverlap,
	}
}

func modelChunkProfile(modelName string) (target, overlap int) {
	switch {
	case isSmallModel(modelName):
		return 400, 80
	default:
		return 1024, 200
	}
}

func isSmallModel(name string) bool {
	switch name {
	case "bge-small", "all-minilm-l6-v2", "dummy":
		return true
	}
	return false
}
