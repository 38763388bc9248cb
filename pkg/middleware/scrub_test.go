package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestScrubEmail(t *testing.T) {
	mw := Scrub(ScrubSchema{Body: Fields{"email": FieldEmail}})

	tests := []struct {
		name    string
		body    string
		allowed bool
		message string
	}{
		{"valid", `{"email":"a@b.co"}`, true, ""},
		{"invalid", `{"email":"not-an-email"}`, false, "body.email must be a valid email"},
		{"not a string", `{"email":42}`, false, "body.email must be a valid email"},
		{"missing", `{}`, false, "Missing body.email"},
		{"null", `{"email":null}`, false, "Missing body.email"},
		{"body not an object", `[1]`, false, "Missing body.email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, called := run(t, mw, jsonRequest(tt.body))

			assert.Equal(t, tt.allowed, called)
			if tt.allowed {
				assert.Equal(t, http.StatusOK, rr.Code)
				return
			}
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.JSONEq(t, `{"error":"`+tt.message+`"}`, rr.Body.String())
		})
	}
}

func TestScrubBodyKinds(t *testing.T) {
	schema := ScrubSchema{Body: Fields{
		"active": FieldBoolean,
		"age":    FieldNumber,
		"meta":   FieldObject,
		"name":   FieldString,
		"tags":   FieldArray,
	}}
	valid := `{"active":true,"age":30,"meta":{"k":"v"},"name":"ann","tags":["x"]}`

	_, called := run(t, Scrub(schema), jsonRequest(valid))
	assert.True(t, called)

	tests := []struct {
		body    string
		message string
	}{
		{`{"active":"true","age":30,"meta":{},"name":"ann","tags":[]}`, "body.active must be a boolean"},
		{`{"active":true,"age":"30","meta":{},"name":"ann","tags":[]}`, "body.age must be a number"},
		{`{"active":true,"age":30,"meta":[],"name":"ann","tags":[]}`, "body.meta must be an object"},
		{`{"active":true,"age":30,"meta":{},"name":1,"tags":[]}`, "body.name must be a string"},
		{`{"active":true,"age":30,"meta":{},"name":"ann","tags":{}}`, "body.tags must be an array"},
	}
	for _, tt := range tests {
		rr, called := run(t, Scrub(schema), jsonRequest(tt.body))
		assert.False(t, called, tt.message)
		assert.JSONEq(t, `{"error":"`+tt.message+`"}`, rr.Body.String())
	}
}

func TestScrubFirstFailureWins(t *testing.T) {
	schema := ScrubSchema{
		URL:    &URLSchema{Query: Fields{"page": FieldNumber}},
		Header: Fields{"X-Tenant": FieldString},
		Body:   Fields{"b": FieldString, "a": FieldString},
	}

	// Query is checked before header and body.
	rr, _ := run(t, Scrub(schema), jsonRequest(`{}`))
	assert.JSONEq(t, `{"error":"Missing query.page"}`, rr.Body.String())

	r := jsonRequest(`{}`)
	r.URL.RawQuery = "page=2"
	rr, _ = run(t, Scrub(schema), r)
	assert.JSONEq(t, `{"error":"Missing header.X-Tenant"}`, rr.Body.String())

	// Fields within a section are checked in name order.
	r = jsonRequest(`{}`)
	r.URL.RawQuery = "page=2"
	r.Header.Set("X-Tenant", "acme")
	rr, _ = run(t, Scrub(schema), r)
	assert.JSONEq(t, `{"error":"Missing body.a"}`, rr.Body.String())
}

func TestScrubQuery(t *testing.T) {
	schema := ScrubSchema{URL: &URLSchema{Query: Fields{
		"debug": FieldBoolean,
		"ids":   FieldArray,
		"limit": FieldNumber,
	}}}

	r := httptest.NewRequest(http.MethodGet, "/items?debug=true&ids=1&ids=2&limit=10.5", nil)
	_, called := run(t, Scrub(schema), r)
	assert.True(t, called)

	r = httptest.NewRequest(http.MethodGet, "/items?debug=yes&ids=1&ids=2&limit=10", nil)
	rr, called := run(t, Scrub(schema), r)
	assert.False(t, called)
	assert.JSONEq(t, `{"error":"query.debug must be a boolean"}`, rr.Body.String())

	r = httptest.NewRequest(http.MethodGet, "/items?debug=false&ids=1&limit=10", nil)
	rr, _ = run(t, Scrub(schema), r)
	assert.JSONEq(t, `{"error":"query.ids must be an array"}`, rr.Body.String())

	r = httptest.NewRequest(http.MethodGet, "/items?debug=false&ids=1&ids=2&limit=ten", nil)
	rr, _ = run(t, Scrub(schema), r)
	assert.JSONEq(t, `{"error":"query.limit must be a number"}`, rr.Body.String())
}

func TestScrubParamsAlwaysMissing(t *testing.T) {
	schema := ScrubSchema{URL: &URLSchema{Params: Fields{"id": FieldString}}}

	rr, called := run(t, Scrub(schema), httptest.NewRequest(http.MethodGet, "/users", nil))

	assert.False(t, called)
	assert.JSONEq(t, `{"error":"Missing params.id"}`, rr.Body.String())
}

func TestScrubHeaderCaseInsensitive(t *testing.T) {
	schema := ScrubSchema{Header: Fields{"x-user-email": FieldEmail}}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-User-Email", "dev@example.com")

	_, called := run(t, Scrub(schema), r)

	assert.True(t, called)
}

func TestScrubFormBody(t *testing.T) {
	schema := ScrubSchema{Body: Fields{"name": FieldString, "colors": FieldArray}}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("name=ann&colors=red&colors=blue"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, called := run(t, Scrub(schema), r)

	assert.True(t, called)
}

func TestScrubEmptySchema(t *testing.T) {
	_, called := run(t, Scrub(ScrubSchema{}), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestMatchesKindGoValues(t *testing.T) {
	assert.True(t, matchesKind(FieldNumber, 3, false))
	assert.True(t, matchesKind(FieldNumber, uint8(3), false))
	assert.False(t, matchesKind(FieldNumber, "3", false))
	assert.True(t, matchesKind(FieldObject, struct{}{}, false))
	assert.True(t, matchesKind(FieldArray, [2]int{}, false))
	assert.True(t, matchesKind(FieldType("enum"), "anything", false))
}
