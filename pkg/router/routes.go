package router

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/Suhaibinator/capi/pkg/common"
)

// endpointPattern is the grammar every registered endpoint must match:
// a leading slash followed by lowercase letters, digits, hyphens and slashes.
var endpointPattern = regexp.MustCompile(`^/[a-z0-9\-/]*$`)

// Methods lists the verbs routes can be registered for.
var Methods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodPatch,
	http.MethodOptions,
}

var (
	// ErrInvalidEndpoint is the reason for registering an endpoint outside the path grammar.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrInvalidMethod is the reason for registering an unsupported method.
	ErrInvalidMethod = errors.New("invalid method")

	// ErrNilHandler is the reason for registering a route without a handler.
	ErrNilHandler = errors.New("nil handler")
)

// RegistrationError describes a route that could not be registered.
type RegistrationError struct {
	Method   string
	Endpoint string
	Reason   error
}

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("cannot register %s %q: %v", e.Method, e.Endpoint, e.Reason)
}

// Unwrap returns the reason, so errors.Is works with the sentinel errors above.
func (e *RegistrationError) Unwrap() error {
	return e.Reason
}

// RouteEntry is one registered (method, endpoint) pair with its middleware and handler.
type RouteEntry struct {
	Method      string
	Endpoint    string
	Middlewares common.MiddlewareChain
	Handler     Handler
}

func newRouteEntry(method, endpoint string, handler Handler, middlewares []Middleware) (RouteEntry, error) {
	method = strings.ToUpper(method)
	if err := validateRoute(method, endpoint, handler); err != nil {
		return RouteEntry{}, err
	}
	return RouteEntry{
		Method:      method,
		Endpoint:    endpoint,
		Middlewares: common.NewMiddlewareChain(middlewares...),
		Handler:     handler,
	}, nil
}

func validateRoute(method, endpoint string, handler Handler) error {
	var reason error
	switch {
	case !validMethod(method):
		reason = ErrInvalidMethod
	case !endpointPattern.MatchString(endpoint):
		reason = ErrInvalidEndpoint
	case handler == nil:
		reason = ErrNilHandler
	default:
		return nil
	}
	return &RegistrationError{Method: method, Endpoint: endpoint, Reason: reason}
}

func validMethod(method string) bool {
	for _, m := range Methods {
		if m == method {
			return true
		}
	}
	return false
}

// clone returns a copy whose middleware slice is not shared with e.
func (e RouteEntry) clone() RouteEntry {
	e.Middlewares = common.NewMiddlewareChain(e.Middlewares...)
	return e
}

// routeTable keeps entries in registration order. Lookups scan it and the first exact
// match wins, so a later duplicate is never reached.
type routeTable []RouteEntry

func (t routeTable) find(method, path string) (RouteEntry, bool) {
	for _, e := range t {
		if e.Method == method && e.Endpoint == path {
			return e, true
		}
	}
	return RouteEntry{}, false
}

func (t routeTable) has(method, endpoint string) bool {
	_, ok := t.find(method, endpoint)
	return ok
}

func (t routeTable) entries() []RouteEntry {
	out := make([]RouteEntry, len(t))
	for i, e := range t {
		out[i] = e.clone()
	}
	return out
}
