// Package errors defines the structured error type used across ck. Errors
// carry a kind for dispatch (exit codes, MCP error taxonomy, fallback
// decisions) and an optional suggestion shown to the user.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for dispatch.
type Kind string

const (
	// KindIO is an underlying filesystem or network failure.
	KindIO Kind = "io"
	// KindParse is a malformed sidecar or manifest; the affected file is
	// treated as missing and re-indexed on the next update.
	KindParse Kind = "parse"
	// KindRegex is a compilation failure of a user pattern.
	KindRegex Kind = "regex"
	// KindIndex covers missing .ck/, missing embeddings, and dimension
	// mismatches.
	KindIndex Kind = "index"
	// KindSearch covers nonexistent paths and unreachable external tools.
	KindSearch Kind = "search"
	// KindEmbedding covers embedder and reranker failures.
	KindEmbedding Kind = "embedding"
	// KindUsage is an argument error; the CLI exits 2.
	KindUsage Kind = "usage"
)

// Error is the structured error type for ck.
type Error struct {
	Kind       Kind
	Message    string
	Suggestion string
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches errors by kind so errors.Is works with sentinel kinds.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// WithSuggestion attaches an actionable suggestion and returns the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates a cause with a kind and message. Returns nil for a nil cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the kind of err, or "" for errors that are not *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// SuggestionOf returns the attached suggestion, if any.
func SuggestionOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Suggestion
	}
	return ""
}

// DimensionMismatch builds the fatal embedding-dimension error. The message
// identifies expected vs actual and instructs the user to rebuild.
func DimensionMismatch(expected, actual int) *Error {
	e := New(KindIndex, "embedding dimension mismatch: index has %d, model produced %d", expected, actual)
	return e.WithSuggestion("run 'ck clean' and reindex; cosine similarity across models is meaningless")
}

// MissingEmbeddings is returned when a semantic query runs against an index
// built without embeddings.
func MissingEmbeddings(path string) *Error {
	e := New(KindIndex, "index at %s has no embeddings", path)
	return e.WithSuggestion("run 'ck index' or pass --reindex to build embeddings")
}
