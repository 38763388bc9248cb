package codec

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

// TestDecodeBodyJSON tests that JSON bodies are parsed into generic values
func TestDecodeBodyJSON(t *testing.T) {
	data, err := DecodeBody("application/json; charset=utf-8", []byte(`{"name":"John","age":30,"tags":["a","b"]}`))
	if err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}

	obj, ok := data.(map[string]any)
	if !ok {
		t.Fatalf("Expected map[string]any, got %T", data)
	}
	if obj["name"] != "John" {
		t.Errorf("Expected name to be %q, got %v", "John", obj["name"])
	}
	if obj["age"] != float64(30) {
		t.Errorf("Expected age to be %v, got %v", float64(30), obj["age"])
	}
	if _, ok := obj["tags"].([]any); !ok {
		t.Errorf("Expected tags to be []any, got %T", obj["tags"])
	}
}

// TestDecodeBodyInvalidJSON tests that malformed JSON yields ErrInvalidJSON
func TestDecodeBodyInvalidJSON(t *testing.T) {
	_, err := DecodeBody("application/json", []byte(`{"name":`))
	if !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("Expected ErrInvalidJSON, got %v", err)
	}
}

// TestDecodeBodyForm tests that urlencoded bodies keep repeated keys as arrays
func TestDecodeBodyForm(t *testing.T) {
	data, err := DecodeBody("application/x-www-form-urlencoded", []byte("name=john&tag=a&tag=b"))
	if err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}

	form, ok := data.(map[string]any)
	if !ok {
		t.Fatalf("Expected map[string]any, got %T", data)
	}
	if form["name"] != "john" {
		t.Errorf("Expected name to be %q, got %v", "john", form["name"])
	}
	if !reflect.DeepEqual(form["tag"], []string{"a", "b"}) {
		t.Errorf("Expected tag to be %v, got %v", []string{"a", "b"}, form["tag"])
	}
}

// TestDecodeBodyText tests that other content types keep the raw text
func TestDecodeBodyText(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		raw         string
	}{
		{"plain text", "text/plain", "hello"},
		{"no content type", "", `{"not":"parsed"}`},
		{"empty body", "application/octet-stream", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := DecodeBody(tt.contentType, []byte(tt.raw))
			if err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			if data != tt.raw {
				t.Errorf("Expected %q, got %v", tt.raw, data)
			}
		})
	}
}

// TestMarshalJSONWrapsArrays tests that top-level arrays are wrapped in a data object
func TestMarshalJSONWrapsArrays(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"int slice", []int{1, 2, 3}, `{"data":[1,2,3]}`},
		{"fixed array", [2]string{"a", "b"}, `{"data":["a","b"]}`},
		{"object", map[string]int{"a": 1}, `{"a":1}`},
		{"nil", nil, `null`},
		{"string", "ok", `"ok"`},
		{"byte slice", []byte("hi"), `"aGk="`},
		{"raw message", json.RawMessage(`[1,2]`), `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalJSON(tt.in)
			if err != nil {
				t.Fatalf("Failed to marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}
