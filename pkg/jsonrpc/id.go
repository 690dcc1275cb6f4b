package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is the correlation token of a request: a JSON string, a JSON number, or null.
// Numbers are kept verbatim so that an echoed id is byte-for-byte what the client sent.
// The zero value is the null id.
type ID struct {
	raw json.RawMessage
}

// NullID returns the null id used when a request could not be parsed far enough to trust its id.
func NullID() ID { return ID{} }

// StringID returns a string id.
func StringID(s string) ID {
	b, _ := json.Marshal(s)
	return ID{raw: b}
}

// NumberID returns a numeric id.
func NumberID(n int64) ID {
	return ID{raw: json.RawMessage(strconv.FormatInt(n, 10))}
}

// IsNull reports whether the id is null or was absent.
func (id ID) IsNull() bool {
	return len(id.raw) == 0 || bytes.Equal(id.raw, []byte("null"))
}

// String renders the id for logs.
func (id ID) String() string {
	if id.IsNull() {
		return "null"
	}
	return string(id.raw)
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsNull() {
		return []byte("null"), nil
	}
	return id.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler. Only strings, numbers and null are accepted.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty id")
	}
	switch c := data[0]; {
	case c == 'n':
		if !bytes.Equal(data, []byte("null")) {
			return fmt.Errorf("invalid id %s", data)
		}
		*id = ID{}
		return nil
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
	default:
		return fmt.Errorf("id must be a string, a number or null, got %s", data)
	}
	*id = ID{raw: append(json.RawMessage(nil), data...)}
	return nil
}
