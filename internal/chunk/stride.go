package chunk

import (
	"fmt"
	"math"

	"github.com/semcs/ck/internal/core"
)

// applyStriding passes small chunks through unchanged and splits any chunk
// whose token estimate exceeds cfg.MaxTokens into consecutive strides.
func applyStriding(chunks []Chunk, cfg Config) ([]Chunk, error) {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var out []Chunk
	for _, c := range chunks {
		if EstimateTokens(c.Text) <= maxTokens {
			out = append(out, c)
			continue
		}
		strides, err := strideChunk(c, maxTokens, cfg.StrideOverlap)
		if err != nil {
			return nil, err
		}
		out = append(out, strides...)
	}
	return out, nil
}

// strideChunk splits one oversize chunk by character index, never splitting
// mid-codepoint. Each stride's span is rebased onto the original file.
func strideChunk(c Chunk, maxTokens, strideOverlap int) ([]Chunk, error) {
	runes := []rune(c.Text)
	charCount := len(runes)
	if charCount == 0 {
		return []Chunk{c}, nil
	}

	estimated := EstimateTokens(c.Text)
	charsPerToken := defaultCharsPerToken
	if estimated > 0 {
		charsPerToken = float64(charCount) / float64(estimated)
	}

	windowChars := int(float64(maxTokens) * 0.9 * charsPerToken)
	overlapChars := int(float64(strideOverlap) * charsPerToken)
	strideChars := windowChars - overlapChars
	if strideChars <= 0 {
		return nil, fmt.Errorf("stride size is zero: window %d chars, overlap %d chars", windowChars, overlapChars)
	}

	totalStrides := 1
	if charCount > windowChars {
		totalStrides = int(math.Ceil(float64(charCount-overlapChars) / float64(strideChars)))
	}

	originalID := fmt.Sprintf("%d:%d", c.Span.ByteStart, c.Span.ByteEnd)

	// Byte offset of each rune, plus sentinel.
	runeBytes := make([]int, charCount+1)
	pos := 0
	for i, r := range runes {
		runeBytes[i] = pos
		pos += len(string(r))
	}
	runeBytes[charCount] = pos

	var strides []Chunk
	startChar := 0
	for idx := 0; startChar < charCount; idx++ {
		endChar := startChar + windowChars
		if endChar > charCount {
			endChar = charCount
		}

		startByte := runeBytes[startChar]
		endByte := runeBytes[endChar]
		text := c.Text[startByte:endByte]

		overlapStart := 0
		if idx > 0 {
			overlapStart = overlapChars
		}
		overlapEnd := 0
		if endChar < charCount {
			overlapEnd = overlapChars
		}

		lineStart := c.Span.LineStart + countTerminators(c.Text[:startByte])
		strideLines := countLines(text)
		if strideLines == 0 {
			strideLines = 1
		}

		strides = append(strides, Chunk{
			Span: core.Span{
				ByteStart: c.Span.ByteStart + startByte,
				ByteEnd:   c.Span.ByteStart + endByte,
				LineStart: lineStart,
				LineEnd:   lineStart + strideLines - 1,
			},
			Text:      text,
			ChunkType: c.ChunkType,
			Symbol:    c.Symbol,
			Ancestry:  c.Ancestry,
			StrideInfo: &StrideInfo{
				OriginalChunkID: originalID,
				StrideIndex:     idx,
				TotalStrides:    totalStrides,
				OverlapStart:    overlapStart,
				OverlapEnd:      overlapEnd,
			},
		})

		if endChar >= charCount {
			break
		}
		startChar += strideChars
	}

	return strides, nil
}
