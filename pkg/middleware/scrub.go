package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"sort"
	"strconv"

	"github.com/Suhaibinator/capi/pkg/common"
)

// FieldType is the expected kind of a validated field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldEmail   FieldType = "email"
	FieldObject  FieldType = "object"
	FieldArray   FieldType = "array"
)

// Fields maps field names to their expected kind.
type Fields map[string]FieldType

// URLSchema declares the query string and path parameter fields.
type URLSchema struct {
	Query  Fields
	Params Fields
}

// ScrubSchema declares which fields a route requires and what kind each must be.
type ScrubSchema struct {
	URL    *URLSchema
	Header Fields
	Body   Fields
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Scrub creates a validation gate. Sections are checked in the order query, params,
// header, body, and fields within a section in name order. The first missing or
// mistyped field ends the call with 400 and an {"error": message} body.
func Scrub(schema ScrubSchema) Middleware {
	return func(req *common.Request, res *common.Response, next common.Next) {
		if msg, ok := scrubRequest(schema, req); !ok {
			_ = res.Status(http.StatusBadRequest).JSON(map[string]string{"error": msg})
			return
		}
		next()
	}
}

func scrubRequest(schema ScrubSchema, req *common.Request) (string, bool) {
	if schema.URL != nil {
		if msg, ok := scrubSection("query", schema.URL.Query, true, func(name string) any {
			return req.QueryValue(name)
		}); !ok {
			return msg, false
		}
		if msg, ok := scrubSection("params", schema.URL.Params, true, func(name string) any {
			if v, found := req.Params[name]; found {
				return v
			}
			return nil
		}); !ok {
			return msg, false
		}
	}

	if msg, ok := scrubSection("header", schema.Header, true, func(name string) any {
		v := req.Headers.Values(name)
		switch len(v) {
		case 0:
			return nil
		case 1:
			return v[0]
		default:
			return append([]string(nil), v...)
		}
	}); !ok {
		return msg, false
	}

	body, _ := req.Body.(map[string]any)
	return scrubSection("body", schema.Body, false, func(name string) any {
		return body[name]
	})
}

// scrubSection checks one section. Textual sections carry only strings, so number and
// boolean fields there accept their string forms.
func scrubSection(section string, fields Fields, textual bool, lookup func(string) any) (string, bool) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := lookup(name)
		if value == nil {
			return fmt.Sprintf("Missing %s.%s", section, name), false
		}
		kind := fields[name]
		if !matchesKind(kind, value, textual) {
			return fmt.Sprintf("%s.%s must be %s", section, name, kindPhrase(kind)), false
		}
	}
	return "", true
}

func matchesKind(kind FieldType, value any, textual bool) bool {
	switch kind {
	case FieldString:
		_, ok := value.(string)
		return ok
	case FieldNumber:
		if s, ok := value.(string); ok {
			_, err := strconv.ParseFloat(s, 64)
			return textual && err == nil
		}
		return isNumber(value)
	case FieldBoolean:
		if s, ok := value.(string); ok {
			return textual && (s == "true" || s == "false")
		}
		_, ok := value.(bool)
		return ok
	case FieldEmail:
		s, ok := value.(string)
		return ok && emailPattern.MatchString(s)
	case FieldObject:
		k := reflect.ValueOf(value).Kind()
		return k == reflect.Map || k == reflect.Struct
	case FieldArray:
		k := reflect.ValueOf(value).Kind()
		return k == reflect.Slice || k == reflect.Array
	}
	// Unknown kinds only require presence.
	return true
}

func isNumber(value any) bool {
	if n, ok := value.(json.Number); ok {
		_, err := n.Float64()
		return err == nil
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func kindPhrase(kind FieldType) string {
	switch kind {
	case FieldEmail:
		return "a valid email"
	case FieldObject, FieldArray:
		return "an " + string(kind)
	default:
		return "a " + string(kind)
	}
}
