// ABOUTME: Protocol error taxonomy and the mapping from Go errors to JSON-RPC errors.
// ABOUTME: Errors that already carry a protocol code keep it.

package mcp

import (
	"errors"
	"fmt"

	"github.com/2389/coven-mcp/internal/tools"
)

// Code is a protocol error code.
type Code int

// Error codes reported in JSON-RPC error envelopes.
const (
	CodeBadRequest          Code = 400
	CodeNotFound            Code = 404
	CodeInternalServerError Code = 500
)

func (c Code) String() string {
	switch c {
	case CodeBadRequest:
		return "BadRequest"
	case CodeNotFound:
		return "NotFound"
	case CodeInternalServerError:
		return "InternalServerError"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// ErrMalformedRequest is returned by Process when there is no request at all.
// It is a caller contract violation and is never wrapped in a response.
var ErrMalformedRequest = errors.New("malformed request")

// Error is a JSON-RPC error object. It is also a Go error, so handlers and
// tools can return one to choose the code reported to the client.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e == nil {
		return "nil protocol error"
	}
	return e.Message
}

// NewError creates a protocol error with a formatted message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ToError maps any error to a protocol error:
//   - a non-nil *Error in the chain is returned as-is
//   - tools.ErrInvalidArgument becomes CodeBadRequest
//   - everything else becomes CodeInternalServerError
func ToError(err error) *Error {
	if err == nil {
		return nil
	}

	var perr *Error
	if errors.As(err, &perr) && perr != nil {
		return perr
	}

	switch {
	case errors.Is(err, tools.ErrInvalidArgument):
		return &Error{Code: CodeBadRequest, Message: err.Error()}
	default:
		return &Error{Code: CodeInternalServerError, Message: err.Error()}
	}
}
