// Package output renders search results for the CLI: grep-style plain text,
// JSON, and JSONL, plus the files-with/without-matches listings and exit
// code policy.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/semcs/ck/internal/core"
)

// Exit codes follow grep: 0 for at least one match, 1 for none, 2 for
// argument errors.
const (
	ExitMatch   = 0
	ExitNoMatch = 1
	ExitError   = 2
)

// Formatter renders results to a writer.
type Formatter struct {
	w io.Writer
}

// New creates a Formatter.
func New(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

// Print renders results according to the options and returns the exit code.
func (f *Formatter) Print(results *core.SearchResults, opts core.SearchOptions) int {
	switch {
	case opts.FilesWithMatches:
		return f.PrintFiles(matchedFiles(results))
	case opts.JSONLOutput:
		return f.printJSONL(results)
	case opts.JSONOutput:
		return f.printJSON(results, opts)
	default:
		return f.printPlain(results, opts)
	}
}

func (f *Formatter) printPlain(results *core.SearchResults, opts core.SearchOptions) int {
	for _, r := range results.Matches {
		var b strings.Builder

		if opts.ShowFilenames {
			b.WriteString(r.File)
			b.WriteByte(':')
		}
		if opts.LineNumbers {
			fmt.Fprintf(&b, "%d:", r.Span.LineStart)
		}
		if opts.ShowScores {
			fmt.Fprintf(&b, "%.4f:", r.Score)
		}

		preview := r.Preview
		if opts.NoSnippet {
			preview = ""
		}
		b.WriteString(preview)

		fmt.Fprintln(f.w, b.String())
	}

	if len(results.Matches) == 0 {
		if results.ClosestBelowThreshold != nil {
			fmt.Fprintf(f.w, "no matches above threshold; closest scored %.4f in %s\n",
				results.ClosestBelowThreshold.Score, results.ClosestBelowThreshold.File)
		}
		return ExitNoMatch
	}
	return ExitMatch
}

func (f *Formatter) printJSON(results *core.SearchResults, opts core.SearchOptions) int {
	records := make([]core.JSONSearchResult, 0, len(results.Matches))
	for _, r := range results.Matches {
		records = append(records, core.JSONSearchResult{
			File:    r.File,
			Span:    r.Span,
			Lang:    r.Lang,
			Symbol:  r.Symbol,
			Score:   r.Score,
			Signals: core.SearchSignals{RRFScore: r.Score},
			Preview: r.Preview,
			Model:   opts.EmbeddingModel,
		})
	}

	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return ExitError
	}
	if len(results.Matches) == 0 {
		return ExitNoMatch
	}
	return ExitMatch
}

func (f *Formatter) printJSONL(results *core.SearchResults) int {
	enc := json.NewEncoder(f.w)
	for _, r := range results.Matches {
		if err := enc.Encode(r); err != nil {
			return ExitError
		}
	}
	if len(results.Matches) == 0 {
		return ExitNoMatch
	}
	return ExitMatch
}

// matchedFiles returns the unique sorted files that carry matches.
func matchedFiles(results *core.SearchResults) []string {
	seen := make(map[string]struct{})
	var files []string
	for _, r := range results.Matches {
		if _, dup := seen[r.File]; dup {
			continue
		}
		seen[r.File] = struct{}{}
		files = append(files, r.File)
	}
	sort.Strings(files)
	return files
}

// FilesWithout returns the searched files that carry no match, for the
// files_without_matches flag.
func FilesWithout(results *core.SearchResults, searched []string) []string {
	matched := make(map[string]struct{})
	for _, r := range results.Matches {
		matched[r.File] = struct{}{}
	}
	var out []string
	for _, file := range searched {
		if _, ok := matched[file]; !ok {
			out = append(out, file)
		}
	}
	sort.Strings(out)
	return out
}

// PrintFiles prints one file per line and returns the exit code.
func (f *Formatter) PrintFiles(files []string) int {
	for _, file := range files {
		fmt.Fprintln(f.w, file)
	}
	if len(files) == 0 {
		return ExitNoMatch
	}
	return ExitMatch
}
