package engine

import (
	"context"
	"os"
	"strings"

	"github.com/semcs/ck/internal/chunk"
	"github.com/semcs/ck/internal/core"
)

// previewTruncateLines caps semantic previews when --full-section is off.
const previewTruncateLines = 3

// shallowFiles lists regular files directly under dir (non-recursive mode).
func (e *Engine) shallowFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, dir+string(os.PathSeparator)+entry.Name())
		}
	}
	return files, nil
}

// buildSectionLookup chunks a file structurally and returns a lookup from a
// 1-indexed line to the text of the function/class/method containing it.
// Returns nil lookups gracefully when the language has no grammar.
func buildSectionLookup(ctx context.Context, file, content string) func(line int) (string, bool) {
	lang := chunk.DefaultRegistry().DetectLanguage(file)
	if lang == "" {
		return nil
	}
	chunks, err := chunk.ChunkText(ctx, content, lang, "")
	if err != nil {
		return nil
	}

	type section struct {
		lineStart, lineEnd int
		text               string
	}
	var sections []section
	for _, c := range chunks {
		switch c.ChunkType {
		case core.ChunkTypeFunction, core.ChunkTypeClass, core.ChunkTypeMethod:
			sections = append(sections, section{c.Span.LineStart, c.Span.LineEnd, c.Text})
		}
	}
	if len(sections) == 0 {
		return nil
	}

	return func(line int) (string, bool) {
		// Innermost enclosing section wins: pick the narrowest match.
		best := -1
		for i, s := range sections {
			if line < s.lineStart || line > s.lineEnd {
				continue
			}
			if best == -1 || (s.lineEnd-s.lineStart) < (sections[best].lineEnd-sections[best].lineStart) {
				best = i
			}
		}
		if best == -1 {
			return "", false
		}
		return sections[best].text, true
	}
}

// extractPreview re-reads a file and slices lines lineStart..lineEnd
// (1-indexed, inclusive). When fullSection is off the preview is truncated
// to the first three lines. Returns ok=false when the file is unreadable.
func extractPreview(file string, lineStart, lineEnd int, fullSection bool) (string, bool) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", false
	}

	lines := splitLinesWithOffsets(string(data))
	if lineStart < 1 {
		lineStart = 1
	}
	if lineEnd > len(lines) {
		lineEnd = len(lines)
	}
	if lineStart > lineEnd {
		return "", false
	}

	if !fullSection && lineEnd-lineStart+1 > previewTruncateLines {
		lineEnd = lineStart + previewTruncateLines - 1
	}

	parts := make([]string, 0, lineEnd-lineStart+1)
	for i := lineStart - 1; i < lineEnd; i++ {
		parts = append(parts, lines[i].text)
	}
	return strings.Join(parts, "\n"), true
}
