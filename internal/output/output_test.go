package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semcs/ck/internal/core"
)

func sampleResults() *core.SearchResults {
	return &core.SearchResults{
		Matches: []core.SearchResult{
			{File: "a.txt", Span: core.Span{LineStart: 1, LineEnd: 1}, Score: 0.9, Preview: "first match"},
			{File: "a.txt", Span: core.Span{LineStart: 5, LineEnd: 5}, Score: 0.7, Preview: "second match"},
			{File: "b.go", Span: core.Span{LineStart: 2, LineEnd: 2}, Score: 0.5, Preview: "third match"},
		},
	}
}

func TestPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	opts := core.DefaultSearchOptions()
	opts.ShowFilenames = true
	opts.LineNumbers = true

	code := New(&buf).Print(sampleResults(), opts)
	assert.Equal(t, ExitMatch, code)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "a.txt:1:first match", lines[0])
	assert.Equal(t, "a.txt:5:second match", lines[1])
	assert.Equal(t, "b.go:2:third match", lines[2])
}

func TestPlainNoFilenames(t *testing.T) {
	var buf bytes.Buffer
	opts := core.DefaultSearchOptions()

	New(&buf).Print(sampleResults(), opts)
	assert.Equal(t, "first match\nsecond match\nthird match\n", buf.String())
}

func TestPlainScores(t *testing.T) {
	var buf bytes.Buffer
	opts := core.DefaultSearchOptions()
	opts.ShowScores = true

	New(&buf).Print(sampleResults(), opts)
	assert.Contains(t, buf.String(), "0.9000:first match")
}

func TestNoMatchesExitCode(t *testing.T) {
	var buf bytes.Buffer
	code := New(&buf).Print(&core.SearchResults{}, core.DefaultSearchOptions())
	assert.Equal(t, ExitNoMatch, code)
	assert.Empty(t, buf.String())
}

func TestClosestBelowThresholdNudge(t *testing.T) {
	var buf bytes.Buffer
	results := &core.SearchResults{
		ClosestBelowThreshold: &core.SearchResult{File: "a.txt", Score: 0.62},
	}
	code := New(&buf).Print(results, core.DefaultSearchOptions())
	assert.Equal(t, ExitNoMatch, code)
	assert.Contains(t, buf.String(), "0.6200")
	assert.Contains(t, buf.String(), "a.txt")
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	opts := core.DefaultSearchOptions()
	opts.JSONOutput = true
	opts.EmbeddingModel = "dummy"

	code := New(&buf).Print(sampleResults(), opts)
	assert.Equal(t, ExitMatch, code)

	var records []core.JSONSearchResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 3)
	assert.Equal(t, "a.txt", records[0].File)
	assert.Equal(t, "dummy", records[0].Model)
}

func TestJSONLOutput(t *testing.T) {
	var buf bytes.Buffer
	opts := core.DefaultSearchOptions()
	opts.JSONLOutput = true

	New(&buf).Print(sampleResults(), opts)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		var r core.SearchResult
		require.NoError(t, json.Unmarshal([]byte(line), &r))
	}
}

func TestFilesWithMatches(t *testing.T) {
	var buf bytes.Buffer
	opts := core.DefaultSearchOptions()
	opts.FilesWithMatches = true

	code := New(&buf).Print(sampleResults(), opts)
	assert.Equal(t, ExitMatch, code)
	assert.Equal(t, "a.txt\nb.go\n", buf.String())
}

func TestFilesWithout(t *testing.T) {
	files := FilesWithout(sampleResults(), []string{"a.txt", "b.go", "c.md"})
	assert.Equal(t, []string{"c.md"}, files)
}
