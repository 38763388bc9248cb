// Package common provides shared types and utilities used across the capi toolkit.
package common

import (
	"net/http"
	"unsafe"
)

// Next advances the middleware chain of the current call.
type Next func()

// Middleware is a unit of request processing. It either calls next to continue the
// chain or terminates the call by writing a response and returning without calling next.
type Middleware func(req *Request, res *Response, next Next)

// Handler is the terminal step of a route. It never receives a continuation.
type Handler func(req *Request, res *Response)

// HTTPHandler adapts a standard http.Handler into a terminal Handler.
// The request body has already been drained by ParseBody and is replayed from RawBody.
func HTTPHandler(h http.Handler) Handler {
	return func(req *Request, res *Response) {
		h.ServeHTTP(res.Writer(), req.Raw())
	}
}

// MiddlewareID returns an identity handle for mw. Two copies of the same func value share
// a handle. Closures that capture state get a handle per instance, even when built by
// the same factory; a function literal that captures nothing is a single static value.
func MiddlewareID(mw Middleware) uintptr {
	if mw == nil {
		return 0
	}
	// A func value is a pointer to its closure record.
	return *(*uintptr)(unsafe.Pointer(&mw))
}
