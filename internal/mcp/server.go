package mcp

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/semcs/ck/internal/core"
	ckerrors "github.com/semcs/ck/internal/errors"
	"github.com/semcs/ck/internal/engine"
	"github.com/semcs/ck/internal/index"
	"github.com/semcs/ck/internal/session"
	"github.com/semcs/ck/pkg/version"
)

// Server bridges MCP clients with the search engine.
type Server struct {
	mcp      *mcp.Server
	engine   *engine.Engine
	sessions *session.Manager
	locks    *indexLocks
	stats    *statsCache
	logger   *slog.Logger
}

// NewServer wires the engine into an MCP server and registers the tools.
func NewServer(eng *engine.Engine) *Server {
	s := &Server{
		engine:   eng,
		sessions: session.NewManager(0),
		locks:    newIndexLocks(),
		stats:    newStatsCache(),
		logger:   slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "ck",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves MCP over stdio until the context is cancelled. stdout carries
// only JSON-RPC; logging goes to the file sink.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp_server_started", slog.String("version", version.Version))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "semantic_search",
		Description: "Search code by meaning using embeddings. Finds conceptually related code even when keywords differ. Results are paginated; pass the returned cursor for the next page.",
	}, s.semanticSearchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "lexical_search",
		Description: "BM25 keyword search over indexed chunks. Fast and precise for identifier and phrase lookups.",
	}, s.lexicalSearchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "regex_search",
		Description: "Grep-compatible regex search with byte-accurate spans. No index required.",
	}, s.regexSearchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "hybrid_search",
		Description: "Reciprocal-rank fusion of regex and semantic results. Best default when you are unsure which mode fits.",
	}, s.hybridSearchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report whether an index exists for a directory, its size, and freshness.",
	}, s.indexStatusHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reindex",
		Description: "Build or refresh the semantic index for a directory, with progress notifications.",
	}, s.reindexHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "default_ckignore",
		Description: "Return the default .ckignore template.",
	}, s.defaultCkignoreHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "health_check",
		Description: "Report server version and working directory.",
	}, s.healthCheckHandler)
}

func (s *Server) semanticSearchHandler(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchResponse, error) {
	return s.runSearch(ctx, req, input, core.ModeSemantic)
}

func (s *Server) lexicalSearchHandler(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchResponse, error) {
	return s.runSearch(ctx, req, input, core.ModeLexical)
}

func (s *Server) regexSearchHandler(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchResponse, error) {
	return s.runSearch(ctx, req, input, core.ModeRegex)
}

func (s *Server) hybridSearchHandler(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchResponse, error) {
	return s.runSearch(ctx, req, input, core.ModeHybrid)
}

// runSearch is the shared search path: validate, page-by-cursor shortcut,
// execute with the semantic fallback policy, create the session, respond.
func (s *Server) runSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchInput, mode core.SearchMode) (*mcp.CallToolResult, SearchResponse, error) {
	if input.Path == "" {
		return nil, SearchResponse{}, InvalidParams("path is required")
	}
	if input.queryText() == "" {
		return nil, SearchResponse{}, InvalidParams("query is required")
	}

	opts := input.toOptions(mode)
	cfg := input.pageConfig()
	start := time.Now()

	// A cursor continues a prior session; no new search runs.
	if input.Cursor != "" {
		page, err := s.sessions.GetPageByCursor(input.Cursor, cfg)
		if err != nil {
			return nil, SearchResponse{}, InvalidParams("%s", err.Error())
		}
		stats := s.cachedStats(input.Path)
		return nil, buildResponse(opts, page, nil, stats, time.Since(start).Milliseconds(), ""), nil
	}

	n := newNotifier(req)
	n.send(ctx, "search started", false)

	results, fallback, err := s.executeWithFallback(ctx, opts, n)
	if err != nil {
		n.send(ctx, "search failed", true)
		return nil, SearchResponse{}, MapError(err)
	}
	n.send(ctx, "search completed", true)

	page, err := s.sessions.CreateSession(opts, results.Matches, cfg)
	if err != nil {
		return nil, SearchResponse{}, Internal("%s", err.Error())
	}

	stats := s.cachedStats(input.Path)
	resp := buildResponse(opts, page, results.ClosestBelowThreshold, stats, time.Since(start).Milliseconds(), fallback)
	return nil, resp, nil
}

// executeWithFallback applies the semantic fallback policy: on missing
// embeddings or a dimension mismatch, retry with an implicit reindex; if
// that also fails, fall back to lexical search and annotate the response.
func (s *Server) executeWithFallback(ctx context.Context, opts core.SearchOptions, n *notifier) (*core.SearchResults, string, error) {
	indexingCB := func(file string) { n.send(ctx, "indexing "+file, false) }
	searchCB := func(msg string) { n.send(ctx, msg, false) }

	results, err := s.engine.Search(ctx, opts, searchCB, indexingCB, nil)
	if err == nil || opts.Mode != core.ModeSemantic || !ckerrors.IsKind(err, ckerrors.KindIndex) {
		return results, "", err
	}

	s.logger.Warn("semantic_search_retrying_with_reindex", slog.String("error", err.Error()))
	retryOpts := opts
	retryOpts.Reindex = true
	results, retryErr := s.engine.Search(ctx, retryOpts, searchCB, indexingCB, nil)
	if retryErr == nil {
		return results, "", nil
	}

	s.logger.Warn("semantic_search_falling_back_to_lexical", slog.String("error", retryErr.Error()))
	lexOpts := opts
	lexOpts.Mode = core.ModeLexical
	results, lexErr := s.engine.Search(ctx, lexOpts, searchCB, indexingCB, nil)
	if lexErr != nil {
		return nil, "", retryErr
	}
	return results, "semantic (lexical fallback)", nil
}

func (s *Server) indexStatusHandler(_ context.Context, _ *mcp.CallToolRequest, input IndexStatusInput) (*mcp.CallToolResult, IndexStatusOutput, error) {
	if input.Path == "" {
		return nil, IndexStatusOutput{}, InvalidParams("path is required")
	}

	root := core.FindRepoRoot(input.Path)
	if cached, ok := s.stats.get(root); ok {
		return nil, cached.(IndexStatusOutput), nil
	}

	stats, err := s.engine.Manager().Stats(root)
	if err != nil {
		return nil, IndexStatusOutput{}, MapError(err)
	}

	out := IndexStatusOutput{
		Exists:         stats.TotalFiles > 0 || stats.IndexUpdated > 0,
		Path:           root,
		TotalFiles:     stats.TotalFiles,
		TotalChunks:    stats.TotalChunks,
		EmbeddedChunks: stats.EmbeddedChunks,
		IndexSizeBytes: stats.IndexSizeBytes,
		LastModified:   stats.IndexUpdated,
		EmbeddingModel: s.engine.Manager().EmbeddingModel(root),
	}
	s.stats.put(root, out)
	return nil, out, nil
}

func (s *Server) reindexHandler(ctx context.Context, req *mcp.CallToolRequest, input ReindexInput) (*mcp.CallToolResult, ReindexOutput, error) {
	if input.Path == "" {
		return nil, ReindexOutput{}, InvalidParams("path is required")
	}

	root := core.FindRepoRoot(input.Path)
	release := s.locks.acquire(root)
	defer release()

	n := newNotifier(req)
	stats, err := s.engine.Manager().SmartUpdate(ctx, root, index.Options{
		ComputeEmbeddings: true,
		RespectGitignore:  true,
		ExcludePatterns:   core.DefaultExcludePatterns(),
		Model:             input.Model,
		Force:             input.Force,
		Progress: func(file string) {
			n.send(ctx, "indexing "+file, false)
		},
	})
	if err != nil {
		return nil, ReindexOutput{}, MapError(err)
	}
	n.send(ctx, "indexing complete", true)
	s.stats.invalidate(root)

	return nil, ReindexOutput{
		FilesAdded:    stats.FilesAdded,
		FilesModified: stats.FilesModified,
		FilesUpToDate: stats.FilesUpToDate,
		FilesIndexed:  stats.FilesIndexed,
		FilesErrored:  stats.FilesErrored,
	}, nil
}

func (s *Server) defaultCkignoreHandler(_ context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, CkignoreOutput, error) {
	return nil, CkignoreOutput{Template: core.DefaultCkignoreTemplate}, nil
}

func (s *Server) healthCheckHandler(_ context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, HealthOutput, error) {
	wd, _ := os.Getwd()
	return nil, HealthOutput{
		Status:           "ok",
		Version:          version.Version,
		WorkingDirectory: wd,
	}, nil
}

// cachedStats returns index stats without failing the search on error.
func (s *Server) cachedStats(path string) core.IndexStats {
	root := core.FindRepoRoot(path)
	stats, err := s.engine.Manager().Stats(root)
	if err != nil {
		return core.IndexStats{}
	}
	return stats
}
