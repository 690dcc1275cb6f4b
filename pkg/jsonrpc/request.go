package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the only protocol version accepted and emitted.
const Version = "2.0"

// Request is a JSON-RPC 2.0 request that passed envelope validation.
type Request struct {
	ID     ID
	Method string
	// Params is nil when the member was absent and the literal null when it was sent as null.
	Params json.RawMessage
}

// ParamsNull reports whether params were absent or explicitly null.
func (r *Request) ParamsNull() bool {
	return r.Params == nil || bytes.Equal(bytes.TrimSpace(r.Params), []byte("null"))
}

// ParseCause tells why a message could not be turned into a Request.
type ParseCause int

const (
	// CauseUnknown is never produced by ParseRequest; callers treat it as a JSON failure.
	CauseUnknown ParseCause = iota
	// CauseJSON means the text is not valid JSON.
	CauseJSON
	// CauseProtocol means the text is valid JSON but not a JSON-RPC 2.0 request.
	CauseProtocol
)

func (c ParseCause) String() string {
	switch c {
	case CauseJSON:
		return "json"
	case CauseProtocol:
		return "protocol"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// ParseError is returned by ParseRequest.
type ParseError struct {
	Cause   ParseCause
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ParseError) Unwrap() error { return e.Err }

func protocolError(format string, args ...any) *ParseError {
	return &ParseError{Cause: CauseProtocol, Message: "Invalid JSON-RPC 2.0 request: " + fmt.Sprintf(format, args...)}
}

// ParseRequest validates raw message text as a single JSON-RPC 2.0 request.
// The returned error is always a *ParseError.
func ParseRequest(text []byte) (*Request, error) {
	if !json.Valid(text) {
		var v any
		err := json.Unmarshal(text, &v)
		if err == nil {
			err = errors.New("invalid JSON")
		}
		return nil, &ParseError{Cause: CauseJSON, Message: "Invalid JSON", Err: err}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(text, &fields); err != nil || fields == nil {
		return nil, protocolError("message must be a JSON object")
	}

	rawVersion, ok := fields["jsonrpc"]
	if !ok {
		return nil, protocolError("missing \"jsonrpc\" member")
	}
	var version string
	if err := json.Unmarshal(rawVersion, &version); err != nil || version != Version {
		return nil, protocolError("\"jsonrpc\" must be %q", Version)
	}

	rawMethod, ok := fields["method"]
	if !ok {
		return nil, protocolError("missing \"method\" member")
	}
	var method string
	if err := json.Unmarshal(rawMethod, &method); err != nil || isNull(rawMethod) {
		return nil, protocolError("\"method\" must be a string")
	}
	if method == "" {
		return nil, protocolError("\"method\" must not be empty")
	}

	req := &Request{Method: method}

	if rawID, ok := fields["id"]; ok {
		if err := req.ID.UnmarshalJSON(rawID); err != nil {
			return nil, protocolError("%v", err)
		}
	}

	if rawParams, ok := fields["params"]; ok {
		trimmed := bytes.TrimSpace(rawParams)
		if !isNull(trimmed) && trimmed[0] != '{' && trimmed[0] != '[' {
			return nil, protocolError("\"params\" must be an object, an array or null")
		}
		req.Params = append(json.RawMessage(nil), trimmed...)
	}

	return req, nil
}

func isNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
