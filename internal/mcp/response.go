package mcp

import (
	"github.com/semcs/ck/internal/core"
	"github.com/semcs/ck/internal/session"
)

// SearchResponse is the paged response shape shared by every search tool.
type SearchResponse struct {
	Search     SearchBlock     `json:"search"`
	Results    ResultsBlock    `json:"results"`
	Pagination PaginationBlock `json:"pagination"`
	Metadata   MetadataBlock   `json:"metadata"`
}

// SearchBlock echoes the query.
type SearchBlock struct {
	Query      string         `json:"query"`
	Mode       string         `json:"mode"`
	Parameters map[string]any `json:"parameters"`
}

// ResultsBlock carries one page of matches.
type ResultsBlock struct {
	Matches               []core.SearchResult `json:"matches"`
	Count                 int                 `json:"count"`
	TotalCount            int                 `json:"total_count"`
	HasMore               bool                `json:"has_more"`
	Truncated             bool                `json:"truncated"`
	ClosestBelowThreshold *core.SearchResult  `json:"closest_below_threshold,omitempty"`
}

// PaginationBlock carries the cursor. NextCursor is null on the last page.
type PaginationBlock struct {
	NextCursor  *string `json:"next_cursor"`
	PageSize    int     `json:"page_size"`
	CurrentPage int     `json:"current_page"`
}

// MetadataBlock carries timings and index stats.
type MetadataBlock struct {
	SearchTimeMs int64           `json:"search_time_ms"`
	IndexStats   core.IndexStats `json:"index_stats"`
	Fallback     string          `json:"fallback,omitempty"`
}

// buildResponse assembles the response from a session page.
func buildResponse(opts core.SearchOptions, page *session.Page, closest *core.SearchResult,
	stats core.IndexStats, elapsedMs int64, fallback string) SearchResponse {

	var nextCursor *string
	if page.NextCursor != "" {
		c := page.NextCursor
		nextCursor = &c
	}

	params := map[string]any{
		"path":             opts.Path,
		"case_insensitive": opts.CaseInsensitive,
		"whole_word":       opts.WholeWord,
	}
	if opts.TopK != nil {
		params["top_k"] = *opts.TopK
	}
	if opts.Threshold != nil {
		params["threshold"] = *opts.Threshold
	}

	return SearchResponse{
		Search: SearchBlock{
			Query:      opts.Query,
			Mode:       string(opts.Mode),
			Parameters: params,
		},
		Results: ResultsBlock{
			Matches:               page.Matches,
			Count:                 page.Count,
			TotalCount:            page.TotalCount,
			HasMore:               page.HasMore,
			Truncated:             page.Truncated,
			ClosestBelowThreshold: closest,
		},
		Pagination: PaginationBlock{
			NextCursor:  nextCursor,
			PageSize:    page.OriginalPageSize,
			CurrentPage: page.CurrentPage,
		},
		Metadata: MetadataBlock{
			SearchTimeMs: elapsedMs,
			IndexStats:   stats,
			Fallback:     fallback,
		},
	}
}
