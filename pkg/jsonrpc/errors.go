package jsonrpc

import (
	"fmt"

	"go.lsp.dev/jsonrpc2"
)

// Error codes shared with every JSON-RPC 2.0 peer.
const (
	CodeParseError     = jsonrpc2.ParseError
	CodeInvalidRequest = jsonrpc2.InvalidRequest
	CodeMethodNotFound = jsonrpc2.MethodNotFound
	CodeInvalidParams  = jsonrpc2.InvalidParams
	CodeInternalError  = jsonrpc2.InternalError
)

// Error is the error member of a failure response. Data is free text and omitted when empty.
type Error struct {
	Code    jsonrpc2.Code `json:"code"`
	Message string        `json:"message"`
	Data    string        `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e.Data == "" {
		return fmt.Sprintf("%d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s: %s", e.Code, e.Message, e.Data)
}

// WithData returns a copy of e carrying data.
func (e *Error) WithData(data string) *Error {
	return &Error{Code: e.Code, Message: e.Message, Data: data}
}

func newError(code jsonrpc2.Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// ErrParse reports text that is not valid JSON.
func ErrParse(data string) *Error {
	return newError(CodeParseError, "JSON parse error").WithData(data)
}

// ErrInvalidRequest reports valid JSON that is not a JSON-RPC 2.0 request.
func ErrInvalidRequest(data string) *Error {
	return newError(CodeInvalidRequest, "Invalid request").WithData(data)
}

// ErrMethodNotFound reports a method name absent from the registry.
func ErrMethodNotFound(data string) *Error {
	return newError(CodeMethodNotFound, "Method not found").WithData(data)
}

// ErrInvalidParams reports params that are missing or do not fit the method's shape.
func ErrInvalidParams(data string) *Error {
	return newError(CodeInvalidParams, "Invalid parameters").WithData(data)
}

// ErrInternal reports a failure raised while invoking a method.
func ErrInternal(data string) *Error {
	return newError(CodeInternalError, "Internal error").WithData(data)
}
