// Package mcp implements the Model Context Protocol server for ck: tool
// routing over stdio, cursor-based pagination of large result sets, progress
// notifications, and per-directory indexing locks.
package mcp

import (
	"errors"
	"fmt"

	ckerrors "github.com/semcs/ck/internal/errors"
)

// Standard JSON-RPC error codes used by the MCP taxonomy.
const (
	CodeInvalidParams = -32602
	CodeInternalError = -32603
)

// Error is an MCP protocol error with a JSON-RPC code.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// InvalidParams builds an invalid_params error.
func InvalidParams(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

// Internal builds an internal_error.
func Internal(format string, args ...any) *Error {
	return &Error{Code: CodeInternalError, Message: fmt.Sprintf(format, args...)}
}

// MapError converts an engine error to the MCP taxonomy: usage and regex
// problems are the caller's fault, everything else is internal.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var me *Error
	if errors.As(err, &me) {
		return me
	}

	switch ckerrors.KindOf(err) {
	case ckerrors.KindUsage, ckerrors.KindRegex:
		return InvalidParams("%s", err.Error())
	default:
		msg := err.Error()
		if s := ckerrors.SuggestionOf(err); s != "" {
			msg += " (" + s + ")"
		}
		return Internal("%s", msg)
	}
}
