// Package cmd provides the CLI commands for ck.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/semcs/ck/internal/core"
	ckerrors "github.com/semcs/ck/internal/errors"
	"github.com/semcs/ck/internal/engine"
	"github.com/semcs/ck/internal/index"
	"github.com/semcs/ck/internal/logging"
	"github.com/semcs/ck/internal/output"
	"github.com/semcs/ck/pkg/version"
)

// searchFlags collects every search-shaping flag on the root and search
// commands.
type searchFlags struct {
	modeLex    bool
	modeSem    bool
	modeHybrid bool

	caseInsensitive bool
	lineNumbers     bool
	noFilenames     bool
	withFilenames   bool
	wholeWord       bool
	fixedString     bool
	recursive       bool

	contextLines  int
	afterContext  int
	beforeContext int

	topK      int
	threshold float64
	scores    bool
	jsonOut   bool
	jsonV1    bool
	jsonl     bool
	noSnippet bool

	filesWithMatches    bool
	filesWithoutMatches bool

	reindex           bool
	exclude           []string
	include           []string
	noDefaultExcludes bool
	noIgnore          bool

	fullSection bool
	rerank      bool
	rerankModel string
	model       string

	astPattern    string
	astLang       string
	astStrictness string
	astSelector   string
}

func (f *searchFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()

	// -h is taken by --no-filename (grep semantics); predefine --help
	// without a shorthand so cobra does not claim it.
	flags.Bool("help", false, "Show help")

	flags.BoolVar(&f.modeLex, "lex", false, "Lexical (BM25) search")
	flags.BoolVar(&f.modeSem, "sem", false, "Semantic (embedding) search")
	flags.BoolVar(&f.modeHybrid, "hybrid", false, "Hybrid search (regex + semantic, RRF)")
	flags.Bool("regex", false, "Regex search (default)")

	flags.BoolVarP(&f.caseInsensitive, "ignore-case", "i", false, "Case-insensitive matching")
	flags.BoolVarP(&f.lineNumbers, "line-number", "n", false, "Show line numbers")
	flags.BoolVarP(&f.noFilenames, "no-filename", "h", false, "Suppress filenames")
	flags.BoolVarP(&f.withFilenames, "with-filename", "H", false, "Always show filenames")
	flags.BoolVarP(&f.wholeWord, "word-regexp", "w", false, "Match whole words only")
	flags.BoolVarP(&f.fixedString, "fixed-strings", "F", false, "Treat pattern as a literal string")
	flags.BoolVarP(&f.recursive, "recursive", "r", true, "Recurse into directories")
	flags.BoolP("recursive-alias", "R", true, "Alias for -r")
	_ = flags.MarkHidden("recursive-alias")

	flags.IntVarP(&f.contextLines, "context", "C", 0, "Context lines around matches")
	flags.IntVarP(&f.afterContext, "after-context", "A", 0, "Lines after each match")
	flags.IntVarP(&f.beforeContext, "before-context", "B", 0, "Lines before each match")

	flags.IntVar(&f.topK, "topk", 0, "Maximum ranked results")
	flags.Float64Var(&f.threshold, "threshold", -1, "Minimum score")
	flags.BoolVar(&f.scores, "scores", false, "Show scores")
	flags.BoolVar(&f.jsonOut, "json", false, "JSON output")
	flags.BoolVar(&f.jsonV1, "json-v1", false, "JSON v1 output with rank signals")
	flags.BoolVar(&f.jsonl, "jsonl", false, "JSON Lines output")
	flags.BoolVar(&f.noSnippet, "no-snippet", false, "Omit previews")

	flags.BoolVarP(&f.filesWithMatches, "files-with-matches", "l", false, "Print only names of files with matches")
	flags.BoolVarP(&f.filesWithoutMatches, "files-without-match", "L", false, "Print only names of files without matches")

	flags.BoolVar(&f.reindex, "reindex", false, "Force a full reindex before searching")
	flags.StringArrayVar(&f.exclude, "exclude", nil, "Exclude glob (repeatable)")
	flags.StringArrayVar(&f.include, "include", nil, "Include pattern, ';'-separated segments (repeatable)")
	flags.BoolVar(&f.noDefaultExcludes, "no-default-excludes", false, "Disable the built-in exclude list")
	flags.BoolVar(&f.noIgnore, "no-ignore", false, "Do not honour .gitignore")

	flags.BoolVar(&f.fullSection, "full-section", false, "Return whole enclosing function/class as preview")
	flags.BoolVar(&f.rerank, "rerank", false, "Rerank semantic results")
	flags.StringVar(&f.rerankModel, "rerank-model", "", "Reranker model")
	flags.StringVar(&f.model, "model", "", "Embedding model")

	flags.StringVar(&f.astPattern, "ast-pattern", "", "Structural pattern for ast-grep")
	flags.StringVar(&f.astLang, "ast-lang", "", "Language for ast-grep")
	flags.StringVar(&f.astStrictness, "ast-strictness", "", "Strictness for ast-grep")
	flags.StringVar(&f.astSelector, "ast-selector", "", "Selector for ast-grep")
}

// toOptions resolves flags into the engine contract for one search path.
func (f *searchFlags) toOptions(query, path string, multiTarget bool) core.SearchOptions {
	opts := core.DefaultSearchOptions()
	opts.Query = query
	opts.Path = path

	switch {
	case f.astPattern != "":
		opts.Mode = core.ModeAST
		opts.ASTPattern = f.astPattern
		opts.ASTLang = f.astLang
		opts.ASTStrictness = f.astStrictness
		opts.ASTSelector = f.astSelector
	case f.modeHybrid:
		opts.Mode = core.ModeHybrid
	case f.modeSem:
		opts.Mode = core.ModeSemantic
	case f.modeLex:
		opts.Mode = core.ModeLexical
	}

	opts.CaseInsensitive = f.caseInsensitive
	opts.LineNumbers = f.lineNumbers
	opts.WholeWord = f.wholeWord
	opts.FixedString = f.fixedString
	opts.Recursive = f.recursive
	opts.ContextLines = f.contextLines
	opts.AfterContextLines = f.afterContext
	opts.BeforeContextLines = f.beforeContext

	if f.topK > 0 {
		topK := f.topK
		opts.TopK = &topK
	}
	if f.threshold >= 0 {
		threshold := f.threshold
		opts.Threshold = &threshold
	}

	opts.JSONOutput = f.jsonOut || f.jsonV1
	opts.JSONLOutput = f.jsonl
	opts.NoSnippet = f.noSnippet
	opts.ShowScores = f.scores
	opts.FilesWithMatches = f.filesWithMatches
	opts.FilesWithoutMatches = f.filesWithoutMatches
	opts.Reindex = f.reindex
	opts.FullSection = f.fullSection
	opts.Rerank = f.rerank
	opts.RerankModel = f.rerankModel
	opts.EmbeddingModel = f.model
	opts.RespectGitignore = !f.noIgnore
	opts.IncludePatterns = f.include

	if f.noDefaultExcludes {
		opts.ExcludePatterns = f.exclude
	} else {
		opts.ExcludePatterns = append(opts.ExcludePatterns, f.exclude...)
	}

	// Filename display defaults to on when searching a directory or
	// multiple files; -h/-H override.
	showFilenames := multiTarget || isDir(path)
	if f.withFilenames {
		showFilenames = true
	}
	if f.noFilenames {
		showFilenames = false
	}
	opts.ShowFilenames = showFilenames

	return opts
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// NewRootCmd creates the root command: `ck [FLAGS] PATTERN [PATH...]`.
func NewRootCmd() *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "ck [flags] PATTERN [PATH...]",
		Short: "Semantic grep: regex, lexical, semantic, and hybrid code search",
		Long: `ck is a drop-in grep replacement with an index-backed brain.

Regex mode works with no setup. Lexical (--lex), semantic (--sem), and
hybrid (--hybrid) modes maintain a .ck/ index beside your code and keep it
fresh automatically on every search.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			var err error
			storedExit, err = runSearchArgs(cmd.Context(), cmd, &flags, args)
			return err
		},
	}
	cmd.SetVersionTemplate("ck {{.Version}}\n")

	flags.register(cmd)

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newCleanCmd())
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newInteractiveCmd())

	return cmd
}

// storedExit carries the grep-style exit code from RunE to Execute.
var storedExit = output.ExitMatch

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	storedExit = output.ExitMatch
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ck:", err)
		if s := ckerrors.SuggestionOf(err); s != "" {
			fmt.Fprintln(os.Stderr, "hint:", s)
		}
		return output.ExitError
	}
	return storedExit
}

// runSearchArgs executes PATTERN over each PATH argument.
func runSearchArgs(ctx context.Context, cmd *cobra.Command, flags *searchFlags, args []string) (int, error) {
	query := args[0]
	paths := args[1:]
	if len(paths) == 0 {
		paths = []string{"."}
	}

	eng, err := newEngine()
	if err != nil {
		return output.ExitError, err
	}

	formatter := output.New(cmd.OutOrStdout())
	multiTarget := len(paths) > 1

	sawMatch := false
	for _, path := range paths {
		opts := flags.toOptions(query, path, multiTarget)

		results, err := eng.Search(ctx, opts, nil, nil, nil)
		if err != nil {
			// A nonexistent path is an argument error: exit 2.
			return output.ExitError, err
		}

		var code int
		if opts.FilesWithoutMatches {
			searched, lerr := searchedFiles(eng, opts)
			if lerr != nil {
				return output.ExitError, lerr
			}
			code = formatter.PrintFiles(output.FilesWithout(results, searched))
		} else {
			code = formatter.Print(results, opts)
		}
		if code == output.ExitMatch {
			sawMatch = true
		}
	}

	if sawMatch {
		return output.ExitMatch, nil
	}
	return output.ExitNoMatch, nil
}

// searchedFiles lists the corpus for files_without_matches inversion.
func searchedFiles(eng *engine.Engine, opts core.SearchOptions) ([]string, error) {
	s := eng.Scanner()
	return s.CollectFiles(opts.Path, opts.RespectGitignore, opts.ExcludePatterns)
}

// newEngine wires logging, the index manager, and the engine.
func newEngine() (*engine.Engine, error) {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if _, err := logging.SetupDefault(logCfg); err == nil {
		// Cleanup is deliberately skipped: the process exits right after.
		_ = err
	}

	manager, err := index.NewManager()
	if err != nil {
		return nil, err
	}
	return engine.New(manager)
}

// stdinIsTTY reports whether we are attached to a terminal (the interactive
// command refuses to start without one).
func stdinIsTTY() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}
