// Package ui implements the interactive search loop: a debounced query box
// over live results. Every keystroke bumps a generation counter; the search
// task for the previous generation is cancelled and any late event carrying
// a stale generation is dropped.
package ui

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/semcs/ck/internal/core"
	"github.com/semcs/ck/internal/engine"
)

// debounceDelay is how long input must be quiet before a search fires.
const debounceDelay = 200 * time.Millisecond

// maxVisibleResults caps the rendered result rows.
const maxVisibleResults = 20

// debounceMsg fires when the debounce timer for a generation expires.
type debounceMsg struct {
	generation uint64
}

// resultsMsg delivers a finished search.
type resultsMsg struct {
	generation uint64
	results    *core.SearchResults
	err        error
}

// Model is the bubbletea model for the interactive loop.
type Model struct {
	input    textinput.Model
	engine   *engine.Engine
	baseOpts core.SearchOptions

	generation uint64
	cancel     context.CancelFunc

	results  *core.SearchResults
	err      error
	selected int
	status   string

	width  int
	height int
}

// NewModel builds the interactive model over an engine and base options
// (mode, path, filters come from the CLI invocation).
func NewModel(eng *engine.Engine, baseOpts core.SearchOptions) Model {
	input := textinput.New()
	input.Placeholder = "type to search"
	input.Focus()

	return Model{
		input:    input,
		engine:   eng,
		baseOpts: baseOpts,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "up":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down":
			if m.results != nil && m.selected < len(m.results.Matches)-1 {
				m.selected++
			}
			return m, nil
		case "enter":
			return m, m.openSelected()
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)

		// New keystroke: bump the generation, cancel the in-flight search,
		// and restart the debounce timer.
		m.generation++
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		generation := m.generation
		debounce := tea.Tick(debounceDelay, func(time.Time) tea.Msg {
			return debounceMsg{generation: generation}
		})
		return m, tea.Batch(cmd, debounce)

	case debounceMsg:
		if msg.generation != m.generation {
			// A newer keystroke superseded this timer.
			return m, nil
		}
		return m.startSearch()

	case resultsMsg:
		if msg.generation != m.generation {
			// Late delivery from a cancelled search.
			return m, nil
		}
		m.results = msg.results
		m.err = msg.err
		m.selected = 0
		m.status = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startSearch launches the query for the current generation.
func (m Model) startSearch() (tea.Model, tea.Cmd) {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		m.results = nil
		m.err = nil
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.status = "searching..."

	opts := m.baseOpts
	opts.Query = query
	generation := m.generation
	eng := m.engine

	return m, func() tea.Msg {
		results, err := eng.Search(ctx, opts, nil, nil, nil)
		return resultsMsg{generation: generation, results: results, err: err}
	}
}

// openSelected opens the selected result in $EDITOR / $VISUAL.
func (m Model) openSelected() tea.Cmd {
	if m.results == nil || m.selected >= len(m.results.Matches) {
		return nil
	}
	r := m.results.Matches[m.selected]

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return nil
	}

	cmd := exec.Command(editor, fmt.Sprintf("+%d", r.Span.LineStart), r.File)
	return tea.ExecProcess(cmd, func(error) tea.Msg { return nil })
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ck"))
	b.WriteString("  ")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status))
	case m.results != nil:
		m.renderResults(&b)
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select · enter open · esc quit"))
	return b.String()
}

func (m Model) renderResults(b *strings.Builder) {
	if len(m.results.Matches) == 0 {
		if m.results.ClosestBelowThreshold != nil {
			fmt.Fprintf(b, "no matches; closest scored %.2f in %s\n",
				m.results.ClosestBelowThreshold.Score,
				m.results.ClosestBelowThreshold.File)
		} else {
			b.WriteString(statusStyle.Render("no matches"))
		}
		return
	}

	limit := len(m.results.Matches)
	if limit > maxVisibleResults {
		limit = maxVisibleResults
	}

	for i := 0; i < limit; i++ {
		r := m.results.Matches[i]
		line := fmt.Sprintf("%s:%d  %s", r.File, r.Span.LineStart, firstLine(r.Preview))
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	if len(m.results.Matches) > limit {
		fmt.Fprintf(b, "  … %d more\n", len(m.results.Matches)-limit)
	}
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// Run starts the interactive loop.
func Run(eng *engine.Engine, baseOpts core.SearchOptions) error {
	program := tea.NewProgram(NewModel(eng, baseOpts), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
