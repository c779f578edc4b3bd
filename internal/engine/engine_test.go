package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semcs/ck/internal/core"
	"github.com/semcs/ck/internal/index"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	m, err := index.NewManager()
	require.NoError(t, err)
	e, err := New(m)
	require.NoError(t, err)
	return e
}

func write(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func regexOpts(root, query string) core.SearchOptions {
	opts := core.DefaultSearchOptions()
	opts.Query = query
	opts.Path = root
	return opts
}

func TestGrepParity(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.txt", "hello world rust programming")
	write(t, root, "b.rs", "fn main(){}")

	e := newTestEngine(t)
	results, err := e.Search(context.Background(), regexOpts(root, "rust"), nil, nil, nil)
	require.NoError(t, err)

	require.Len(t, results.Matches, 1)
	assert.Equal(t, filepath.Join(root, "a.txt"), results.Matches[0].File)
	assert.Equal(t, 1, results.Matches[0].Span.LineStart)
}

func TestCaseInsensitiveMultiMatch(t *testing.T) {
	root := t.TempDir()
	write(t, root, "t.txt", "Hello\nHELLO\nhello")

	e := newTestEngine(t)
	opts := regexOpts(root, "HELLO")
	opts.CaseInsensitive = true

	results, err := e.Search(context.Background(), opts, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, results.Matches, 3)
	for i, r := range results.Matches {
		assert.Equal(t, i+1, r.Span.LineStart)
	}
}

func TestRegexByteOffsetsUniqueAndAbsolute(t *testing.T) {
	root := t.TempDir()
	content := "foo bar foo\nbaz foo\n"
	write(t, root, "f.txt", content)

	e := newTestEngine(t)
	results, err := e.Search(context.Background(), regexOpts(root, "foo"), nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, results.Matches, 3)

	seen := make(map[int]bool)
	for _, r := range results.Matches {
		assert.False(t, seen[r.Span.ByteStart], "byte offsets must be unique per match")
		seen[r.Span.ByteStart] = true
		assert.Equal(t, "foo", content[r.Span.ByteStart:r.Span.ByteEnd])
	}
}

func TestRegexCRLFOffsets(t *testing.T) {
	root := t.TempDir()
	content := "alpha\r\nbeta\r\ngamma beta\r\n"
	write(t, root, "f.txt", content)

	e := newTestEngine(t)
	results, err := e.Search(context.Background(), regexOpts(root, "beta"), nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, results.Matches, 2)
	for _, r := range results.Matches {
		assert.Equal(t, "beta", content[r.Span.ByteStart:r.Span.ByteEnd])
	}
	assert.Equal(t, 2, results.Matches[0].Span.LineStart)
	assert.Equal(t, 3, results.Matches[1].Span.LineStart)
}

func TestRegexContextPreview(t *testing.T) {
	root := t.TempDir()
	write(t, root, "f.txt", "one\ntwo\nthree\nfour\nfive")

	e := newTestEngine(t)
	opts := regexOpts(root, "three")
	opts.ContextLines = 1

	results, err := e.Search(context.Background(), opts, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, results.Matches, 1)
	assert.Equal(t, "two\nthree\nfour", results.Matches[0].Preview)
}

func TestRegexWholeWordAndFixedString(t *testing.T) {
	root := t.TempDir()
	write(t, root, "f.txt", "cat catalog\na.b literal")

	e := newTestEngine(t)

	opts := regexOpts(root, "cat")
	opts.WholeWord = true
	results, err := e.Search(context.Background(), opts, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, results.Matches, 1)

	opts = regexOpts(root, "a.b")
	opts.FixedString = true
	results, err = e.Search(context.Background(), opts, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, results.Matches, 1)
	assert.Equal(t, 2, results.Matches[0].Span.LineStart)
}

func TestRegexBadPattern(t *testing.T) {
	root := t.TempDir()
	write(t, root, "f.txt", "content")

	e := newTestEngine(t)
	_, err := e.Search(context.Background(), regexOpts(root, "a("), nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a(")
}

func TestNonexistentPath(t *testing.T) {
	e := newTestEngine(t)
	opts := regexOpts(filepath.Join(t.TempDir(), "missing"), "x")
	_, err := e.Search(context.Background(), opts, nil, nil, nil)
	assert.Error(t, err)
}

func TestEmptyPatternMatchesEachLine(t *testing.T) {
	root := t.TempDir()
	write(t, root, "f.txt", "a\nb\nc")

	e := newTestEngine(t)
	results, err := e.Search(context.Background(), regexOpts(root, ""), nil, nil, nil)
	require.NoError(t, err)
	assert.Len(t, results.Matches, 3)
}

func semanticCorpus(t *testing.T) (string, *Engine) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	write(t, root, "vector.txt", "cosine similarity vector embedding search ranking")
	write(t, root, "walker.txt", "directory traversal gitignore walking files")
	write(t, root, "cooking.txt", "pasta tomato basil olive oil dinner")

	e := newTestEngine(t)
	_, err := e.Manager().IndexDirectory(context.Background(), root, index.Options{
		ComputeEmbeddings: true,
		Model:             "dummy",
	})
	require.NoError(t, err)
	return root, e
}

func TestSemanticSearchRanksRelevantFirst(t *testing.T) {
	root, e := semanticCorpus(t)

	opts := core.DefaultSearchOptions()
	opts.Mode = core.ModeSemantic
	opts.Path = root
	opts.Query = "vector embedding search"
	opts.EmbeddingModel = "dummy"

	results, err := e.Search(context.Background(), opts, nil, nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results.Matches)
	assert.Equal(t, filepath.Join(root, "vector.txt"), results.Matches[0].File)
	assert.NotEmpty(t, results.Matches[0].Preview)
}

func TestSemanticThresholdFallback(t *testing.T) {
	root, e := semanticCorpus(t)

	threshold := 0.99
	opts := core.DefaultSearchOptions()
	opts.Mode = core.ModeSemantic
	opts.Path = root
	opts.Query = "completely unrelated query zzz"
	opts.Threshold = &threshold
	opts.EmbeddingModel = "dummy"

	results, err := e.Search(context.Background(), opts, nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results.Matches)
	require.NotNil(t, results.ClosestBelowThreshold)
	assert.Less(t, results.ClosestBelowThreshold.Score, threshold)
}

func TestSemanticMissingFileDropped(t *testing.T) {
	root, e := semanticCorpus(t)

	// Delete a source file after indexing; its chunks must silently drop.
	require.NoError(t, os.Remove(filepath.Join(root, "cooking.txt")))

	opts := core.DefaultSearchOptions()
	opts.Mode = core.ModeSemantic
	opts.Path = root
	opts.Query = "pasta tomato basil"
	opts.EmbeddingModel = "dummy"
	// Freshness update would remove the sidecar; run the walk directly.
	results, err := e.searchSemantic(context.Background(), root, opts, nil)
	require.NoError(t, err)
	for _, r := range results.Matches {
		assert.NotEqual(t, filepath.Join(root, "cooking.txt"), r.File)
	}
}

func TestLexicalSearch(t *testing.T) {
	root, e := semanticCorpus(t)

	opts := core.DefaultSearchOptions()
	opts.Mode = core.ModeLexical
	opts.Path = root
	opts.Query = "gitignore traversal"

	results, err := e.Search(context.Background(), opts, nil, nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results.Matches)
	assert.Equal(t, filepath.Join(root, "walker.txt"), results.Matches[0].File)
	assert.InDelta(t, 1.0, results.Matches[0].Score, 1e-9)
}

func TestHybridRRFOrdering(t *testing.T) {
	// S6: doc A ranks 1 in regex and 3 in semantic; doc B ranks 2 in regex
	// and 1 in semantic. B must fuse higher.
	listRegex := []core.SearchResult{
		{File: "A", Span: core.Span{LineStart: 1}},
		{File: "B", Span: core.Span{LineStart: 1}},
		{File: "C", Span: core.Span{LineStart: 1}},
	}
	listSemantic := []core.SearchResult{
		{File: "B", Span: core.Span{LineStart: 1}},
		{File: "C", Span: core.Span{LineStart: 1}},
		{File: "A", Span: core.Span{LineStart: 1}},
	}

	fused := fuseRRF([][]core.SearchResult{listRegex, listSemantic})
	require.Len(t, fused, 3)

	scores := make(map[string]float64)
	for _, r := range fused {
		scores[r.File] = r.Score
	}

	assert.InDelta(t, 1.0/61+1.0/63, scores["A"], 1e-9)
	assert.InDelta(t, 1.0/62+1.0/61, scores["B"], 1e-9)
	assert.Greater(t, scores["B"], scores["A"])
	assert.Equal(t, "B", fused[0].File)
}

func TestHybridEndToEnd(t *testing.T) {
	root, e := semanticCorpus(t)

	opts := core.DefaultSearchOptions()
	opts.Mode = core.ModeHybrid
	opts.Path = root
	opts.Query = "vector"
	opts.EmbeddingModel = "dummy"

	results, err := e.Search(context.Background(), opts, nil, nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results.Matches)
	assert.Equal(t, filepath.Join(root, "vector.txt"), results.Matches[0].File)
}

func TestSemanticPathSubtreeFilter(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	write(t, root, "sub/inner.txt", "vector search content here")
	write(t, root, "outer.txt", "vector search content here")

	e := newTestEngine(t)
	_, err := e.Manager().IndexDirectory(context.Background(), root, index.Options{
		ComputeEmbeddings: true,
		Model:             "dummy",
	})
	require.NoError(t, err)

	opts := core.DefaultSearchOptions()
	opts.Mode = core.ModeSemantic
	opts.Path = filepath.Join(root, "sub")
	opts.Query = "vector search"
	opts.EmbeddingModel = "dummy"

	results, err := e.Search(context.Background(), opts, nil, nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results.Matches)
	for _, r := range results.Matches {
		assert.Contains(t, r.File, filepath.Join(root, "sub"))
	}
}

func TestSplitLinesWithOffsets(t *testing.T) {
	lines := splitLinesWithOffsets("a\nbb\r\nc\rdd")
	require.Len(t, lines, 4)
	assert.Equal(t, lineSpan{"a", 0}, lines[0])
	assert.Equal(t, lineSpan{"bb", 2}, lines[1])
	assert.Equal(t, lineSpan{"c", 6}, lines[2])
	assert.Equal(t, lineSpan{"dd", 8}, lines[3])

	assert.Empty(t, splitLinesWithOffsets(""))
}
