package common

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/Suhaibinator/capi/pkg/codec"
)

// Request wraps an inbound call.
//
// Method, URL, Path, Query and Headers are captured when the call arrives. Body is set
// by ParseBody, which the engine runs before any middleware sees the request.
type Request struct {
	Method  string      // Request method, e.g. "GET"
	URL     string      // Request URI as received, including the query string
	Path    string      // URL path used for route matching
	Query   url.Values  // Parsed query string
	Headers http.Header // Request headers

	// Params is always empty: routes match on the exact path and carry no parameters.
	Params map[string]string

	// Body is the decoded body: a JSON value, a map for form bodies, or the raw text.
	Body any

	// RawBody holds the drained body bytes once ParseBody has run.
	RawBody []byte

	raw    *http.Request
	parsed bool
	values map[string]map[string]any
}

// NewRequest wraps r. The body is left untouched until ParseBody is called.
func NewRequest(r *http.Request) *Request {
	return &Request{
		Method:  r.Method,
		URL:     r.URL.RequestURI(),
		Path:    r.URL.Path,
		Query:   r.URL.Query(),
		Headers: r.Header,
		Params:  map[string]string{},
		raw:     r,
	}
}

// ParseBody drains the body and decodes it according to the Content-Type header.
// It runs once; later calls return nil without reading again.
func (r *Request) ParseBody() error {
	if r.parsed {
		return nil
	}
	r.parsed = true

	var raw []byte
	if r.raw.Body != nil && r.raw.Body != http.NoBody {
		var err error
		raw, err = io.ReadAll(r.raw.Body)
		_ = r.raw.Body.Close()
		if err != nil {
			return err
		}
	}
	r.RawBody = raw
	r.raw.Body = io.NopCloser(bytes.NewReader(raw))

	body, err := codec.DecodeBody(r.Header("Content-Type"), raw)
	if err != nil {
		return err
	}
	r.Body = body
	return nil
}

// Header returns the first value of the named header, matched case-insensitively.
func (r *Request) Header(name string) string {
	return r.Headers.Get(name)
}

// LookupHeader is like Header but reports whether the header was present at all.
func (r *Request) LookupHeader(name string) (string, bool) {
	v := r.Headers.Values(name)
	if len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// QueryValue returns a string for a single query value, []string for repeated keys
// and nil when the key is absent.
func (r *Request) QueryValue(name string) any {
	v, ok := r.Query[name]
	if !ok {
		return nil
	}
	if len(v) == 1 {
		return v[0]
	}
	return append([]string(nil), v...)
}

// Param returns a path parameter. Exact-path routes never define any, so it returns "".
func (r *Request) Param(name string) string {
	return r.Params[name]
}

// Set stores a value in the per-call side channel under a middleware-chosen namespace.
func (r *Request) Set(namespace, key string, value any) {
	if r.values == nil {
		r.values = make(map[string]map[string]any)
	}
	ns, ok := r.values[namespace]
	if !ok {
		ns = make(map[string]any)
		r.values[namespace] = ns
	}
	ns[key] = value
}

// Get reads a value stored with Set.
func (r *Request) Get(namespace, key string) (any, bool) {
	v, ok := r.values[namespace][key]
	return v, ok
}

// Values returns the whole namespace map, or nil if nothing was stored under it.
func (r *Request) Values(namespace string) map[string]any {
	return r.values[namespace]
}

// Context returns the context of the underlying request.
func (r *Request) Context() context.Context {
	return r.raw.Context()
}

// Raw returns the wrapped *http.Request.
func (r *Request) Raw() *http.Request {
	return r.raw
}
