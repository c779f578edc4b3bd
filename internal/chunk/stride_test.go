package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semcs/ck/internal/core"
)

func bigChunk(text string) Chunk {
	return Chunk{
		Span: core.Span{
			ByteStart: 0,
			ByteEnd:   len(text),
			LineStart: 1,
			LineEnd:   countLines(text),
		},
		Text:      text,
		ChunkType: core.ChunkTypeText,
	}
}

func TestStrideSmallChunkUnchanged(t *testing.T) {
	c := bigChunk("short text")
	out, err := applyStriding([]Chunk{c}, Config{MaxTokens: 8192, StrideOverlap: 1024})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Nil(t, out[0].StrideInfo)
	assert.Equal(t, c.Text, out[0].Text)
}

func TestStrideLargeChunk(t *testing.T) {
	text := strings.Repeat("0123456789 abcdefghij\n", 500)
	c := bigChunk(text)

	out, err := applyStriding([]Chunk{c}, Config{MaxTokens: 100, StrideOverlap: 10})
	require.NoError(t, err)
	require.Greater(t, len(out), 1)

	for i, s := range out {
		require.NotNil(t, s.StrideInfo)
		assert.Equal(t, "0:"+itoa(len(text)), s.StrideInfo.OriginalChunkID)
		assert.Equal(t, i, s.StrideInfo.StrideIndex)
		assert.Equal(t, len(out), s.StrideInfo.TotalStrides)
		assert.Equal(t, text[s.Span.ByteStart:s.Span.ByteEnd], s.Text)
		if i == 0 {
			assert.Zero(t, s.StrideInfo.OverlapStart)
		} else {
			assert.Positive(t, s.StrideInfo.OverlapStart)
		}
		if i == len(out)-1 {
			assert.Zero(t, s.StrideInfo.OverlapEnd)
		} else {
			assert.Positive(t, s.StrideInfo.OverlapEnd)
		}
	}

	// Strides cover the chunk end-to-end with overlaps between neighbours.
	assert.Equal(t, 0, out[0].Span.ByteStart)
	assert.Equal(t, len(text), out[len(out)-1].Span.ByteEnd)
	for i := 1; i < len(out); i++ {
		assert.Less(t, out[i].Span.ByteStart, out[i-1].Span.ByteEnd, "neighbours must overlap")
	}
}

func TestStrideReassembly(t *testing.T) {
	text := strings.Repeat("x", 5000)
	c := bigChunk(text)

	out, err := applyStriding([]Chunk{c}, Config{MaxTokens: 200, StrideOverlap: 20})
	require.NoError(t, err)
	require.Greater(t, len(out), 1)

	// Concatenating strides minus the overlap regions recovers the original.
	var b strings.Builder
	for i, s := range out {
		start := 0
		if i > 0 {
			start = out[i-1].Span.ByteEnd - s.Span.ByteStart
		}
		b.WriteString(s.Text[start:])
	}
	assert.Equal(t, text, b.String())
}

func TestStrideUTF8Safety(t *testing.T) {
	text := strings.Repeat("héllo wörld ünïcode ", 1000)
	c := bigChunk(text)

	out, err := applyStriding([]Chunk{c}, Config{MaxTokens: 150, StrideOverlap: 15})
	require.NoError(t, err)
	for _, s := range out {
		assert.True(t, isValidUTF8(s.Text), "stride must not split a codepoint")
		assert.Equal(t, text[s.Span.ByteStart:s.Span.ByteEnd], s.Text)
	}
}

func TestStrideZeroSizeIsError(t *testing.T) {
	text := strings.Repeat("abcd", 5000)
	c := bigChunk(text)

	// Overlap >= window forces a zero stride.
	_, err := applyStriding([]Chunk{c}, Config{MaxTokens: 100, StrideOverlap: 100})
	assert.Error(t, err)
}

func isValidUTF8(s string) bool {
	for _, r := range s {
		if r == '�' {
			return false
		}
	}
	return true
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
