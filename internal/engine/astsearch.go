package engine

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"sort"

	"github.com/semcs/ck/internal/chunk"
	"github.com/semcs/ck/internal/core"
	ckerrors "github.com/semcs/ck/internal/errors"
)

// astGrepBinary is the external structural-search tool.
const astGrepBinary = "ast-grep"

// astGrepMatch mirrors one record of `ast-grep run --json`.
type astGrepMatch struct {
	Text          string          `json:"text"`
	File          string          `json:"file"`
	Range         astGrepRange    `json:"range"`
	MetaVariables astGrepMetaVars `json:"metaVariables"`
}

type astGrepRange struct {
	ByteOffset struct {
		Start int `json:"start"`
		End   int `json:"end"`
	} `json:"byteOffset"`
	Start astGrepPos `json:"start"`
	End   astGrepPos `json:"end"`
}

type astGrepPos struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type astGrepMetaVars struct {
	Single map[string]struct {
		Text string `json:"text"`
	} `json:"single"`
}

// searchAST shells out to ast-grep and converts its JSON output. The
// binary's absence surfaces as a user-visible error with install hints.
func (e *Engine) searchAST(ctx context.Context, opts core.SearchOptions) (*core.SearchResults, error) {
	if _, err := exec.LookPath(astGrepBinary); err != nil {
		return nil, ckerrors.New(ckerrors.KindSearch, "%s not found in PATH", astGrepBinary).
			WithSuggestion("install it with 'cargo install ast-grep' or 'npm i -g @ast-grep/cli'")
	}

	pattern := opts.ASTPattern
	if pattern == "" {
		pattern = opts.Query
	}

	args := []string{"run", "--pattern", pattern, "--json"}
	if opts.ASTLang != "" {
		args = append(args, "--lang", opts.ASTLang)
	}
	if opts.ASTStrictness != "" {
		args = append(args, "--strictness", opts.ASTStrictness)
	}
	if opts.ASTSelector != "" {
		args = append(args, "--selector", opts.ASTSelector)
	}
	for _, exclude := range opts.ExcludePatterns {
		args = append(args, "--globs", "!"+exclude)
	}
	if !opts.RespectGitignore {
		args = append(args, "--no-ignore", "vcs")
	}
	args = append(args, opts.Path)

	cmd := exec.CommandContext(ctx, astGrepBinary, args...)
	stdout, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, ckerrors.New(ckerrors.KindSearch,
				"%s failed: %s", astGrepBinary, string(exitErr.Stderr))
		}
		return nil, ckerrors.Wrap(ckerrors.KindSearch, err, "run %s", astGrepBinary)
	}

	var matches []astGrepMatch
	if err := json.Unmarshal(stdout, &matches); err != nil {
		return nil, ckerrors.Wrap(ckerrors.KindParse, err, "parse %s output", astGrepBinary)
	}

	results := &core.SearchResults{}
	for _, m := range matches {
		results.Matches = append(results.Matches, core.SearchResult{
			File: m.File,
			Span: core.Span{
				ByteStart: m.Range.ByteOffset.Start,
				ByteEnd:   m.Range.ByteOffset.End,
				LineStart: m.Range.Start.Line + 1, // ast-grep lines are 0-based
				LineEnd:   m.Range.End.Line + 1,
			},
			Score:   1.0,
			Preview: m.Text,
			Lang:    chunk.DefaultRegistry().DetectLanguage(m.File),
			Symbol:  extractMetaSymbol(m.MetaVariables),
		})
	}

	sort.SliceStable(results.Matches, func(i, j int) bool {
		if results.Matches[i].File != results.Matches[j].File {
			return results.Matches[i].File < results.Matches[j].File
		}
		return results.Matches[i].Span.LineStart < results.Matches[j].Span.LineStart
	})

	return results, nil
}

// extractMetaSymbol pulls the symbol from the NAME / FUNC / VAR
// metavariable when the pattern bound one.
func extractMetaSymbol(vars astGrepMetaVars) string {
	for _, key := range []string{"NAME", "FUNC", "VAR"} {
		if v, ok := vars.Single[key]; ok && v.Text != "" {
			return v.Text
		}
	}
	return ""
}
