package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestAddAndSearch(t *testing.T) {
	idx := openTestIndex(t)

	require.NoError(t, idx.Add([]Document{
		{ID: "a.go:1:10", Path: "a.go", Content: "func ParseConfig loads yaml configuration"},
		{ID: "b.go:1:10", Path: "b.go", Content: "func WalkTree visits every directory"},
		{ID: "c.go:1:10", Path: "c.go", Content: "configuration defaults and overrides"},
	}))

	hits, err := idx.Search("configuration", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	assert.Contains(t, ids, "a.go:1:10")
	assert.Contains(t, ids, "c.go:1:10")
	assert.NotContains(t, ids, "b.go:1:10")
}

func TestScoresNormalizedToOne(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Add([]Document{
		{ID: "1", Path: "x.go", Content: "retry retry retry backoff"},
		{ID: "2", Path: "y.go", Content: "one mention of retry here"},
	}))

	hits, err := idx.Search("retry", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.LessOrEqual(t, hits[1].Score, 1.0)
	assert.Greater(t, hits[1].Score, 0.0)
}

func TestPathFieldMatches(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Add([]Document{
		{ID: "1", Path: "auth/session.go", Content: "nothing relevant"},
	}))

	hits, err := idx.Search("session", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "auth/session.go", hits[0].Path)
}

func TestDeletePath(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Add([]Document{
		{ID: "1", Path: "gone.go", Content: "alpha beta"},
		{ID: "2", Path: "kept.go", Content: "alpha gamma"},
	}))

	require.NoError(t, idx.DeletePath("gone.go"))

	hits, err := idx.Search("alpha", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "kept.go", hits[0].Path)
}

func TestEmptyResult(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Add([]Document{{ID: "1", Path: "a.go", Content: "something"}}))

	hits, err := idx.Search("zzzznomatch", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
