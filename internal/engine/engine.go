// Package engine implements the four search strategies behind the single
// SearchOptions contract: regex, lexical (BM25), semantic (cosine over
// indexed embeddings), and hybrid (reciprocal-rank fusion), plus structural
// search via the external ast-grep tool.
package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/semcs/ck/internal/core"
	ckerrors "github.com/semcs/ck/internal/errors"
	"github.com/semcs/ck/internal/index"
	"github.com/semcs/ck/internal/progress"
	"github.com/semcs/ck/internal/scanner"
)

// Engine executes searches. Freshness is pull-based: non-regex modes bring
// the index up to date before querying.
type Engine struct {
	manager *index.Manager
	scanner *scanner.Scanner
}

// New creates an Engine.
func New(manager *index.Manager) (*Engine, error) {
	s, err := scanner.New()
	if err != nil {
		return nil, err
	}
	return &Engine{manager: manager, scanner: s}, nil
}

// Manager exposes the index manager for callers that share it.
func (e *Engine) Manager() *index.Manager { return e.manager }

// Scanner exposes the file walker for callers that need the searched
// corpus (files_without_matches inversion).
func (e *Engine) Scanner() *scanner.Scanner { return e.scanner }

// Search validates the path, refreshes the index when the mode needs one,
// and dispatches to the strategy.
func (e *Engine) Search(ctx context.Context, opts core.SearchOptions,
	searchCB progress.Callback, indexingCB progress.Callback, detailedCB progress.DetailedCallback) (*core.SearchResults, error) {

	absPath, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(absPath); err != nil {
		return nil, ckerrors.New(ckerrors.KindSearch, "path does not exist: %s", opts.Path)
	}
	opts.Path = absPath

	switch opts.Mode {
	case core.ModeRegex, "":
		return e.searchRegex(ctx, opts)
	case core.ModeAST:
		return e.searchAST(ctx, opts)
	case core.ModeLexical, core.ModeSemantic, core.ModeHybrid:
		root := core.FindRepoRoot(absPath)
		if err := e.ensureFresh(ctx, root, opts, indexingCB, detailedCB); err != nil {
			return nil, err
		}
		switch opts.Mode {
		case core.ModeLexical:
			return e.searchLexical(ctx, root, opts)
		case core.ModeSemantic:
			return e.searchSemantic(ctx, root, opts, searchCB)
		default:
			return e.searchHybrid(ctx, root, opts, searchCB)
		}
	default:
		return nil, ckerrors.New(ckerrors.KindUsage, "unknown search mode %q", opts.Mode)
	}
}

// ensureFresh brings the index up to date before an indexed-mode search.
// Lexical queries skip embedding computation.
func (e *Engine) ensureFresh(ctx context.Context, root string, opts core.SearchOptions,
	indexingCB progress.Callback, detailedCB progress.DetailedCallback) error {

	_, err := e.manager.SmartUpdate(ctx, root, index.Options{
		ComputeEmbeddings: opts.Mode != core.ModeLexical,
		RespectGitignore:  opts.RespectGitignore,
		ExcludePatterns:   opts.ExcludePatterns,
		Model:             opts.EmbeddingModel,
		Force:             opts.Reindex,
		Progress:          indexingCB,
		DetailedProgress:  detailedCB,
	})
	return err
}

// pathFilter reports whether an index-relative path falls under the query
// path (a file or subtree).
func pathFilter(root, queryPath, rel string) bool {
	full := filepath.Join(root, filepath.FromSlash(rel))
	if full == queryPath {
		return true
	}
	relToQuery, err := filepath.Rel(queryPath, full)
	if err != nil {
		return false
	}
	return relToQuery == "." || !startsWithDotDot(relToQuery)
}

func startsWithDotDot(p string) bool {
	return p == ".." || (len(p) > 2 && p[:3] == ".."+string(filepath.Separator))
}

// topKOrDefault resolves the effective top-k for ranked modes.
func topKOrDefault(opts core.SearchOptions) int {
	if opts.TopK != nil && *opts.TopK > 0 {
		return *opts.TopK
	}
	return 10
}
