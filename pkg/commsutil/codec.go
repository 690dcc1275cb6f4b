package commsutil

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const codecLogPrefix = "commsutil:codec"

// EncodePayload serializes a message payload to JSON bytes.
func EncodePayload(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s - encode payload: %w", codecLogPrefix, err)
	}
	return data, nil
}

// DecodePayload deserializes a JSON message payload into v. Numbers decode as json.Number
// when v is an interface so that large product ids survive.
func DecodePayload(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%s - decode payload: %w", codecLogPrefix, err)
	}
	if dec.More() {
		return fmt.Errorf("%s - decode payload: trailing data after JSON value", codecLogPrefix)
	}
	return nil
}
