package codec

import (
	"mime"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	// ContentTypeJSON is decoded with DecodeJSON.
	ContentTypeJSON = "application/json"

	// ContentTypeForm is decoded into a map of string or []string values.
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// DecodeBody turns a fully drained request body into a value according to its content type.
//
//   - application/json: the parsed JSON value, or ErrInvalidJSON
//   - application/x-www-form-urlencoded: map[string]any holding string or []string
//   - anything else, including an empty content type: the text as a string
//
// Invalid UTF-8 sequences are replaced with U+FFFD before decoding.
func DecodeBody(contentType string, raw []byte) (any, error) {
	text := toUTF8(raw)

	switch mediaType(contentType) {
	case ContentTypeJSON:
		return DecodeJSON([]byte(text))
	case ContentTypeForm:
		return DecodeForm(text)
	default:
		return text, nil
	}
}

// DecodeForm parses a urlencoded body. Keys with a single value map to a string,
// repeated keys map to []string in the order they appeared.
func DecodeForm(text string) (map[string]any, error) {
	values, err := url.ParseQuery(text)
	if err != nil {
		return nil, err
	}
	return FlattenValues(values), nil
}

// FlattenValues converts url.Values into the string-or-string-array shape used for
// query strings and form bodies.
func FlattenValues(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		switch len(v) {
		case 0:
			out[k] = ""
		case 1:
			out[k] = v[0]
		default:
			out[k] = append([]string(nil), v...)
		}
	}
	return out
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Malformed parameters; fall back to the bare type.
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func toUTF8(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	return strings.ToValidUTF8(string(raw), "\uFFFD")
}
