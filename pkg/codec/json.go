// Package codec provides encoding and decoding functionality for request and response bodies.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// ErrInvalidJSON is returned when a body declared as application/json cannot be parsed.
var ErrInvalidJSON = errors.New("invalid JSON body")

// DecodeJSON unmarshals raw JSON into a generic value.
// Objects become map[string]any, arrays []any and numbers float64.
func DecodeJSON(raw []byte) (any, error) {
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return data, nil
}

// MarshalJSON serializes a response payload.
// Slices and arrays are never emitted at the top level; they are wrapped as {"data": v}.
// Byte slices are not lists: they keep encoding/json's meaning (base64 text, or the raw
// document for json.RawMessage).
func MarshalJSON(v any) ([]byte, error) {
	if isList(v) {
		v = map[string]any{"data": v}
	}
	return json.Marshal(v)
}

func isList(v any) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	switch t.Kind() {
	case reflect.Slice:
		return t.Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}
