// Package session caches completed search result sets for the MCP server
// and pages them behind opaque base64 cursors. Sessions are bounded by an
// LRU cap and an idle TTL; cursors are invalidated by parameter changes and
// by age.
package session

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/semcs/ck/internal/core"
)

const (
	// DefaultTTL is how long an idle session survives.
	DefaultTTL = 300 * time.Second
	// MaxSessions caps concurrent sessions; the least-recently-accessed one
	// is evicted at the cap.
	MaxSessions = 100

	// DefaultPageSize applies when the caller does not pick one.
	DefaultPageSize = 50
	// MaxPageSize clamps the page size.
	MaxPageSize = 200
	// MaxSnippetLength clamps snippet truncation.
	MaxSnippetLength = 2000
	// MaxContextLines clamps context lines.
	MaxContextLines = 10

	// CursorVersion is the only accepted cursor version.
	CursorVersion = 1

	// SnippetOmitted replaces previews when snippets are disabled.
	SnippetOmitted = "[snippet omitted]"
)

// SearchSession is one cached result set.
type SearchSession struct {
	ID               uuid.UUID
	SearchOptions    core.SearchOptions
	Results          []core.SearchResult
	CreatedAt        time.Time
	LastAccessed     time.Time
	TotalCount       int
	SearchParamsHash string
}

// PaginationCursor is the decoded cursor. Transport form is base64(JSON).
type PaginationCursor struct {
	SessionID        uuid.UUID `json:"session_id"`
	Offset           int       `json:"offset"`
	SearchParamsHash string    `json:"search_params_hash"`
	Timestamp        int64     `json:"timestamp"`
	Version          int       `json:"version"`
	OriginalPageSize int       `json:"original_page_size"`
}

// Encode serializes the cursor to its transport form.
func (c PaginationCursor) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeCursor parses a transport-form cursor without validating it.
func DecodeCursor(s string) (PaginationCursor, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return PaginationCursor{}, fmt.Errorf("invalid cursor encoding: %w", err)
	}
	var c PaginationCursor
	if err := json.Unmarshal(data, &c); err != nil {
		return PaginationCursor{}, fmt.Errorf("invalid cursor structure: %w", err)
	}
	return c, nil
}

// Page is one page of a session's results.
type Page struct {
	Matches          []core.SearchResult
	Count            int
	TotalCount       int
	HasMore          bool
	Truncated        bool
	NextCursor       string // "" on the last page
	CurrentPage      int
	OriginalPageSize int
}

// Config shapes a page. Validate clamps everything into range.
type Config struct {
	PageSize       int
	IncludeSnippet bool
	SnippetLength  int
	ContextLines   int
}

// DefaultConfig returns the defaults: 50-item pages with snippets.
func DefaultConfig() Config {
	return Config{
		PageSize:       DefaultPageSize,
		IncludeSnippet: true,
		SnippetLength:  500,
		ContextLines:   0,
	}
}

// Validate clamps page size to [1, 200], snippet length to [0, 2000], and
// context lines to [0, 10].
func (c Config) Validate() Config {
	if c.PageSize < 1 {
		c.PageSize = DefaultPageSize
	}
	if c.PageSize > MaxPageSize {
		c.PageSize = MaxPageSize
	}
	if c.SnippetLength < 0 {
		c.SnippetLength = 0
	}
	if c.SnippetLength > MaxSnippetLength {
		c.SnippetLength = MaxSnippetLength
	}
	if c.ContextLines < 0 {
		c.ContextLines = 0
	}
	if c.ContextLines > MaxContextLines {
		c.ContextLines = MaxContextLines
	}
	return c
}

// HashSearchOptions hashes the semantically significant inputs so cursor
// holders are invalidated when parameters shift.
func HashSearchOptions(opts core.SearchOptions) string {
	var b strings.Builder
	b.WriteString(opts.Query)
	b.WriteByte(0)
	b.WriteString(opts.Path)
	b.WriteByte(0)
	b.WriteString(string(opts.Mode))
	b.WriteByte(0)
	if opts.TopK != nil {
		b.WriteString(strconv.Itoa(*opts.TopK))
	}
	b.WriteByte(0)
	if opts.Threshold != nil {
		b.WriteString(strconv.FormatFloat(*opts.Threshold, 'g', -1, 64))
	}
	b.WriteByte(0)
	b.WriteString(strconv.FormatBool(opts.CaseInsensitive))
	b.WriteByte(0)
	b.WriteString(strconv.FormatBool(opts.WholeWord))
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(opts.ContextLines))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}
