package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semcs/ck/internal/core"
)

func TestChunkEmptyInput(t *testing.T) {
	chunks, err := ChunkText(context.Background(), "", "go", "")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "", chunks[0].Text)
	assert.Equal(t, core.ChunkTypeText, chunks[0].ChunkType)
	assert.Equal(t, 1, chunks[0].Span.LineStart)
}

func TestSpanRoundTrip(t *testing.T) {
	texts := []string{
		"one line",
		"a\nb\nc\n",
		"crlf\r\nline\r\nend",
		"bare\rcr\rendings",
		strings.Repeat("line of text here\n", 200),
	}

	for _, text := range texts {
		chunks, err := ChunkText(context.Background(), text, "", "")
		require.NoError(t, err)
		require.NotEmpty(t, chunks)
		for _, c := range chunks {
			require.GreaterOrEqual(t, c.Span.ByteStart, 0)
			require.LessOrEqual(t, c.Span.ByteStart, c.Span.ByteEnd)
			require.LessOrEqual(t, c.Span.ByteEnd, len(text))
			assert.Equal(t, text[c.Span.ByteStart:c.Span.ByteEnd], c.Text)
			assert.LessOrEqual(t, c.Span.LineStart, c.Span.LineEnd)
		}
	}
}

func TestGenericChunkingWindows(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteString("some regular line\n")
	}

	chunks := genericChunks(b.String(), ConfigForModel("bge-small"))
	require.Greater(t, len(chunks), 1)

	// Small-model profile: 400 tokens / 10 per line = 40-line windows.
	first := chunks[0]
	assert.Equal(t, 1, first.Span.LineStart)
	assert.Equal(t, 40, first.Span.LineEnd)

	// Consecutive windows overlap by 8 lines (80 tokens / 10).
	second := chunks[1]
	assert.Equal(t, 33, second.Span.LineStart)
}

func TestGenericChunkingCRLFOffsets(t *testing.T) {
	text := "aa\r\nbb\r\ncc"
	chunks := genericChunks(text, Config{TargetTokens: 1024, OverlapTokens: 200})
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Span.ByteStart)
	assert.Equal(t, len(text), chunks[0].Span.ByteEnd)
	assert.Equal(t, 1, chunks[0].Span.LineStart)
	assert.Equal(t, 3, chunks[0].Span.LineEnd)
}

func TestStructuralChunkingGo(t *testing.T) {
	src := `package demo

func Add(a, b int) int {
	return a + b
}

type Counter struct {
	n int
}

func (c *Counter) Inc() {
	c.n++
}
`
	chunks, err := ChunkText(context.Background(), src, "go", "")
	require.NoError(t, err)

	var kinds []core.ChunkType
	var symbols []string
	for _, c := range chunks {
		kinds = append(kinds, c.ChunkType)
		symbols = append(symbols, c.Symbol)
		assert.Equal(t, src[c.Span.ByteStart:c.Span.ByteEnd], c.Text)
	}
	assert.Contains(t, kinds, core.ChunkTypeFunction)
	assert.Contains(t, kinds, core.ChunkTypeMethod)
	assert.Contains(t, kinds, core.ChunkTypeClass)
	assert.Contains(t, symbols, "Add")
	assert.Contains(t, symbols, "Inc")
}

func TestStructuralChunkingPythonNesting(t *testing.T) {
	src := `class Greeter:
    def greet(self):
        return "hi"
`
	chunks, err := ChunkText(context.Background(), src, "python", "")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	var method *Chunk
	for i := range chunks {
		if chunks[i].ChunkType == core.ChunkTypeFunction && chunks[i].Symbol == "greet" {
			method = &chunks[i]
		}
	}
	require.NotNil(t, method, "nested def should be emitted")
	assert.Equal(t, []string{"Greeter"}, method.Ancestry)
}

func TestUnknownLanguageFallsBack(t *testing.T) {
	src := "main :: IO ()\nmain = putStrLn \"hi\"\n"
	chunks, err := ChunkText(context.Background(), src, "haskell", "")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, core.ChunkTypeText, chunks[0].ChunkType)
}

func TestDetectLanguage(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, "go", r.DetectLanguage("a/b/main.go"))
	assert.Equal(t, "rust", r.DetectLanguage("lib.rs"))
	assert.Equal(t, "tsx", r.DetectLanguage("App.TSX"))
	assert.Equal(t, "haskell", r.DetectLanguage("Main.hs"))
	assert.Equal(t, "", r.DetectLanguage("file.unknownext"))
}

func TestConfigForModel(t *testing.T) {
	small := ConfigForModel("bge-small")
	assert.Equal(t, 400, small.TargetTokens)
	assert.Equal(t, 80, small.OverlapTokens)

	def := ConfigForModel("")
	assert.Equal(t, 1024, def.TargetTokens)
	assert.Equal(t, 200, def.OverlapTokens)
}
