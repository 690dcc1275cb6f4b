package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Response is either a success (Result set) or a failure (Error set), never both.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      ID              `json:"id"`
}

// NewResult converts result into a generic JSON value and wraps it in a success response.
func NewResult(id ID, result any) (*Response, error) {
	b, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &Response{JSONRPC: Version, Result: b, ID: id}, nil
}

// NewErrorResponse wraps err in a failure response.
func NewErrorResponse(id ID, err *Error) *Response {
	return &Response{JSONRPC: Version, Error: err, ID: id}
}

// IsError reports whether r is a failure response.
func (r *Response) IsError() bool {
	return r.Error != nil
}

// Encode serializes r to its wire text.
func Encode(r *Response) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil response")
	}
	if (r.Error == nil) == (r.Result == nil) {
		return nil, errors.New("response must carry exactly one of result or error")
	}
	return json.Marshal(r)
}

// DecodeResponse parses the wire text of a response.
func DecodeResponse(data []byte) (*Response, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if r.JSONRPC != Version {
		return nil, fmt.Errorf("unexpected jsonrpc version %q", r.JSONRPC)
	}
	return &r, nil
}
