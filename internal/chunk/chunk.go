// Package chunk splits source files into retrievable units. Supported
// languages get tree-sitter structural chunks (functions, classes, methods,
// modules); everything else gets overlapping line windows. Chunks whose token
// estimate exceeds the embedding budget are strided into sub-chunks.
package chunk

import (
	"context"
	"strings"

	"github.com/semcs/ck/internal/core"
)

// ChunkText chunks text for the given language ("" = generic) and model
// profile. Output chunks are in source order; structural chunks may nest.
func ChunkText(ctx context.Context, text, language, modelName string) ([]Chunk, error) {
	cfg := ConfigForModel(modelName)

	if text == "" {
		return []Chunk{{
			Span:      core.Span{LineStart: 1, LineEnd: 1},
			Text:      "",
			ChunkType: core.ChunkTypeText,
		}}, nil
	}

	var chunks []Chunk
	if _, ok := DefaultRegistry().Config(language); ok {
		structural, err := structuralChunks(ctx, text, language)
		if err == nil && len(structural) > 0 {
			chunks = structural
		}
	}
	if chunks == nil {
		chunks = genericChunks(text, cfg)
	}

	return applyStriding(chunks, cfg)
}

// structuralChunks walks the parse tree and emits one chunk per definition
// node, carrying the symbol name and the breadcrumb of enclosing definitions.
func structuralChunks(ctx context.Context, text, language string) ([]Chunk, error) {
	cfg, _ := DefaultRegistry().Config(language)
	source := []byte(text)

	root, err := parse(ctx, source, language)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	emit(root, cfg, source, nil, &chunks)
	return chunks, nil
}

// emit recursively collects definition chunks; ancestry carries the symbol
// names of the enclosing definitions already emitted on this path.
func emit(n *node, cfg *LanguageConfig, source []byte, ancestry []string, out *[]Chunk) {
	childAncestry := ancestry

	if ct, ok := cfg.chunkTypeFor(n.kind); ok {
		symbol := n.symbolName(source)
		*out = append(*out, Chunk{
			Span: core.Span{
				ByteStart: n.startByte,
				ByteEnd:   n.endByte,
				LineStart: n.startRow + 1,
				LineEnd:   n.endRow + 1,
			},
			Text:      n.content(source),
			ChunkType: ct,
			Symbol:    symbol,
			Ancestry:  append([]string(nil), ancestry...),
		})
		if symbol != "" {
			childAncestry = append(append([]string(nil), ancestry...), symbol)
		}
	}

	for _, c := range n.children {
		emit(c, cfg, source, childAncestry, out)
	}
}

// genericChunks slides a window of chunkSize lines forward by
// chunkSize-overlap, with byte offsets that honour LF, CRLF, and bare CR.
func genericChunks(text string, cfg Config) []Chunk {
	source := []byte(text)
	offsets := lineOffsets(source)
	lineCount := len(offsets) - 1 // offsets has a trailing EOF sentinel

	chunkSize := cfg.TargetTokens / tokensPerLine
	if chunkSize < 5 {
		chunkSize = 5
	}
	overlap := cfg.OverlapTokens / tokensPerLine
	if overlap < 1 {
		overlap = 1
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}

	var chunks []Chunk
	for i := 0; i < lineCount; {
		end := i + chunkSize
		if end > lineCount {
			end = lineCount
		}

		byteStart := offsets[i]
		byteEnd := offsets[end]
		chunks = append(chunks, Chunk{
			Span: core.Span{
				ByteStart: byteStart,
				ByteEnd:   byteEnd,
				LineStart: i + 1,
				LineEnd:   end,
			},
			Text:      string(source[byteStart:byteEnd]),
			ChunkType: core.ChunkTypeText,
		})

		if end >= lineCount {
			break
		}
		i += chunkSize - overlap
	}

	return chunks
}

// lineOffsets returns the byte offset of each line start plus a trailing
// sentinel at len(source). Recognizes LF, CRLF, and bare CR terminators.
func lineOffsets(source []byte) []int {
	offsets := []int{0}
	for i := 0; i < len(source); {
		switch source[i] {
		case '\n':
			i++
			offsets = append(offsets, i)
		case '\r':
			i++
			if i < len(source) && source[i] == '\n' {
				i++
			}
			offsets = append(offsets, i)
		default:
			i++
		}
	}
	// Drop a phantom final line produced by a trailing terminator.
	if len(offsets) > 1 && offsets[len(offsets)-1] == len(source) {
		return offsets
	}
	offsets = append(offsets, len(source))
	return offsets
}

// countTerminators counts line terminators in s, treating CRLF as one.
func countTerminators(s string) int {
	n := 0
	for i := 0; i < len(s); {
		switch s[i] {
		case '\n':
			i++
			n++
		case '\r':
			i++
			if i < len(s) && s[i] == '\n' {
				i++
			}
			n++
		default:
			i++
		}
	}
	return n
}

// countLines counts the lines in s the same way lineOffsets does: a trailing
// terminator does not start another line.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := 1
	for i := 0; i < len(s); {
		switch s[i] {
		case '\n':
			i++
			n++
		case '\r':
			i++
			if i < len(s) && s[i] == '\n' {
				i++
			}
			n++
		default:
			i++
		}
	}
	if strings.HasSuffix(s, "\n") || strings.HasSuffix(s, "\r") {
		n--
	}
	return n
}
