package engine

import (
	"context"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/semcs/ck/internal/core"
	ckerrors "github.com/semcs/ck/internal/errors"
)

// searchRegex is the grep-compatible strategy: no index involved, files are
// walked and scanned line by line.
func (e *Engine) searchRegex(ctx context.Context, opts core.SearchOptions) (*core.SearchResults, error) {
	re, err := compilePattern(opts)
	if err != nil {
		return nil, err
	}

	files, err := e.regexTargets(opts)
	if err != nil {
		return nil, err
	}

	results := &core.SearchResults{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matches, err := scanFile(ctx, file, re, opts)
		if err != nil {
			// Unreadable files are skipped, matching grep -s behaviour for
			// files that vanish mid-search.
			continue
		}
		results.Matches = append(results.Matches, matches...)
	}

	sort.SliceStable(results.Matches, func(i, j int) bool {
		if results.Matches[i].File != results.Matches[j].File {
			return results.Matches[i].File < results.Matches[j].File
		}
		return results.Matches[i].Span.LineStart < results.Matches[j].Span.LineStart
	})

	return results, nil
}

// regexTargets resolves the files to scan: the path itself, expanded include
// patterns, or a walk.
func (e *Engine) regexTargets(opts core.SearchOptions) ([]string, error) {
	info, err := os.Stat(opts.Path)
	if err != nil {
		return nil, ckerrors.New(ckerrors.KindSearch, "path does not exist: %s", opts.Path)
	}
	if !info.IsDir() {
		return []string{opts.Path}, nil
	}
	if !opts.Recursive {
		return e.shallowFiles(opts.Path)
	}
	return e.scanner.CollectFiles(opts.Path, opts.RespectGitignore, opts.ExcludePatterns)
}

// compilePattern builds the regex with flags from the options.
func compilePattern(opts core.SearchOptions) (*regexp.Regexp, error) {
	pattern := opts.Query
	if opts.FixedString {
		pattern = regexp.QuoteMeta(pattern)
	}
	if opts.WholeWord && pattern != "" {
		pattern = `\b(?:` + pattern + `)\b`
	}
	if opts.CaseInsensitive {
		pattern = `(?i)` + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, ckerrors.Wrap(ckerrors.KindRegex, err, "invalid pattern %q", opts.Query)
	}
	return re, nil
}

// scanFile emits one SearchResult per match, with absolute byte offsets.
// Line offsets are maintained incrementally so cost stays O(file) and CRLF
// terminators are handled.
func scanFile(ctx context.Context, file string, re *regexp.Regexp, opts core.SearchOptions) ([]core.SearchResult, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	content := string(data)
	lines := splitLinesWithOffsets(content)

	var sectionLookup func(line int) (string, bool)
	if opts.FullSection {
		sectionLookup = buildSectionLookup(ctx, file, content)
	}

	var results []core.SearchResult
	for li, line := range lines {
		if opts.Query == "" {
			// Empty pattern matches each line once, matching grep.
			results = append(results, core.SearchResult{
				File:    file,
				Span:    core.Span{ByteStart: line.offset, ByteEnd: line.offset, LineStart: li + 1, LineEnd: li + 1},
				Score:   1.0,
				Preview: previewForLine(lines, li, opts, sectionLookup),
			})
			continue
		}

		for _, loc := range re.FindAllStringIndex(line.text, -1) {
			results = append(results, core.SearchResult{
				File: file,
				Span: core.Span{
					ByteStart: line.offset + loc[0],
					ByteEnd:   line.offset + loc[1],
					LineStart: li + 1,
					LineEnd:   li + 1,
				},
				Score:   1.0,
				Preview: previewForLine(lines, li, opts, sectionLookup),
			})
		}
	}
	return results, nil
}

// previewForLine is the matched line, widened to context lines when
// requested, or the enclosing structural section under --full-section.
func previewForLine(lines []lineSpan, li int, opts core.SearchOptions, sectionLookup func(int) (string, bool)) string {
	if sectionLookup != nil {
		if section, ok := sectionLookup(li + 1); ok {
			return section
		}
	}

	before := opts.BeforeContextLines
	after := opts.AfterContextLines
	if opts.ContextLines > 0 {
		if before == 0 {
			before = opts.ContextLines
		}
		if after == 0 {
			after = opts.ContextLines
		}
	}

	if before == 0 && after == 0 {
		return lines[li].text
	}

	start := li - before
	if start < 0 {
		start = 0
	}
	end := li + after
	if end >= len(lines) {
		end = len(lines) - 1
	}

	parts := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		parts = append(parts, lines[i].text)
	}
	return strings.Join(parts, "\n")
}

// lineSpan is one line's text (terminator stripped) and its byte offset.
type lineSpan struct {
	text   string
	offset int
}

// splitLinesWithOffsets tracks byte offsets incrementally, recognizing LF,
// CRLF, and bare CR.
func splitLinesWithOffsets(content string) []lineSpan {
	var lines []lineSpan
	start := 0
	i := 0
	for i < len(content) {
		switch content[i] {
		case '\n':
			lines = append(lines, lineSpan{text: content[start:i], offset: start})
			i++
			start = i
		case '\r':
			lines = append(lines, lineSpan{text: content[start:i], offset: start})
			i++
			if i < len(content) && content[i] == '\n' {
				i++
			}
			start = i
		default:
			i++
		}
	}
	if start < len(content) {
		lines = append(lines, lineSpan{text: content[start:], offset: start})
	}
	return lines
}
