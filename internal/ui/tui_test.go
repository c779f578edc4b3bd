package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semcs/ck/internal/core"
)

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeystrokeBumpsGeneration(t *testing.T) {
	m := NewModel(nil, core.DefaultSearchOptions())

	updated, _ := m.Update(keyMsg("a"))
	m1 := updated.(Model)
	assert.Equal(t, uint64(1), m1.generation)

	updated, _ = m1.Update(keyMsg("b"))
	m2 := updated.(Model)
	assert.Equal(t, uint64(2), m2.generation)
}

func TestStaleDebounceIgnored(t *testing.T) {
	m := NewModel(nil, core.DefaultSearchOptions())

	updated, _ := m.Update(keyMsg("a"))
	m1 := updated.(Model)
	updated, _ = m1.Update(keyMsg("b"))
	m2 := updated.(Model)

	// A debounce timer from generation 1 fires after generation 2 exists.
	updated, cmd := m2.Update(debounceMsg{generation: 1})
	m3 := updated.(Model)
	assert.Nil(t, cmd, "stale debounce must not start a search")
	assert.Equal(t, uint64(2), m3.generation)
}

func TestStaleResultsDropped(t *testing.T) {
	m := NewModel(nil, core.DefaultSearchOptions())

	updated, _ := m.Update(keyMsg("a"))
	m1 := updated.(Model)

	fresh := &core.SearchResults{Matches: []core.SearchResult{{File: "new.go"}}}
	stale := &core.SearchResults{Matches: []core.SearchResult{{File: "old.go"}}}

	updated, _ = m1.Update(resultsMsg{generation: 1, results: fresh})
	m2 := updated.(Model)
	require.NotNil(t, m2.results)
	assert.Equal(t, "new.go", m2.results.Matches[0].File)

	// A result for generation 0 arrives late; it must be dropped.
	updated, _ = m2.Update(resultsMsg{generation: 0, results: stale})
	m3 := updated.(Model)
	assert.Equal(t, "new.go", m3.results.Matches[0].File)
}

func TestSelectionNavigation(t *testing.T) {
	m := NewModel(nil, core.DefaultSearchOptions())
	m.results = &core.SearchResults{Matches: []core.SearchResult{
		{File: "a.go"}, {File: "b.go"}, {File: "c.go"},
	}}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m1 := updated.(Model)
	assert.Equal(t, 1, m1.selected)

	updated, _ = m1.Update(tea.KeyMsg{Type: tea.KeyUp})
	m2 := updated.(Model)
	assert.Equal(t, 0, m2.selected)

	// Up at the top stays put.
	updated, _ = m2.Update(tea.KeyMsg{Type: tea.KeyUp})
	m3 := updated.(Model)
	assert.Equal(t, 0, m3.selected)
}

func TestViewRendersResults(t *testing.T) {
	m := NewModel(nil, core.DefaultSearchOptions())
	m.results = &core.SearchResults{Matches: []core.SearchResult{
		{File: "pkg/a.go", Span: core.Span{LineStart: 42}, Preview: "func A() {\nbody\n}"},
	}}

	view := m.View()
	assert.Contains(t, view, "pkg/a.go:42")
	assert.Contains(t, view, "func A() {")
	assert.NotContains(t, view, "body", "only the first preview line is shown")
}
