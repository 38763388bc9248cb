package router

import (
	"net/http"

	"github.com/Suhaibinator/capi/pkg/common"
)

// registrar provides the verb helpers for anything with a Handle method.
// The helpers panic on a registration error, as http.ServeMux.Handle does.
type registrar struct {
	handle func(method, endpoint string, handler Handler, middlewares ...Middleware) error
}

func (r registrar) must(method, endpoint string, handler Handler, middlewares []Middleware) {
	if err := r.handle(method, endpoint, handler, middlewares...); err != nil {
		panic(err)
	}
}

// Get registers a GET route.
func (r registrar) Get(endpoint string, handler Handler, middlewares ...Middleware) {
	r.must(http.MethodGet, endpoint, handler, middlewares)
}

// Post registers a POST route.
func (r registrar) Post(endpoint string, handler Handler, middlewares ...Middleware) {
	r.must(http.MethodPost, endpoint, handler, middlewares)
}

// Put registers a PUT route.
func (r registrar) Put(endpoint string, handler Handler, middlewares ...Middleware) {
	r.must(http.MethodPut, endpoint, handler, middlewares)
}

// Delete registers a DELETE route.
func (r registrar) Delete(endpoint string, handler Handler, middlewares ...Middleware) {
	r.must(http.MethodDelete, endpoint, handler, middlewares)
}

// Patch registers a PATCH route.
func (r registrar) Patch(endpoint string, handler Handler, middlewares ...Middleware) {
	r.must(http.MethodPatch, endpoint, handler, middlewares)
}

// Options registers an OPTIONS route.
func (r registrar) Options(endpoint string, handler Handler, middlewares ...Middleware) {
	r.must(http.MethodOptions, endpoint, handler, middlewares)
}

// Router is a group of routes sharing a path prefix and group middleware.
// It serves nothing by itself; mount it on an Engine with Engine.Mount or
// EngineConfig.SubRouters.
type Router struct {
	registrar

	prefix      string
	middlewares common.MiddlewareChain
	routes      routeTable
}

// NewRouter creates a Router whose endpoints all start with prefix.
func NewRouter(prefix string) *Router {
	g := &Router{prefix: prefix}
	g.registrar = registrar{handle: g.Handle}
	return g
}

// Prefix returns the path prefix given to NewRouter.
func (g *Router) Prefix() string {
	return g.prefix
}

// Use adds group middleware. It runs ahead of each route's own middleware.
// A middleware already in the group is not added again.
func (g *Router) Use(middlewares ...Middleware) {
	for _, mw := range middlewares {
		if mw == nil || g.middlewares.Contains(mw) {
			continue
		}
		g.middlewares = g.middlewares.Append(mw)
	}
}

// Handle registers handler for method and the prefixed endpoint.
// The prefixed endpoint is validated immediately.
func (g *Router) Handle(method, endpoint string, handler Handler, middlewares ...Middleware) error {
	entry, err := newRouteEntry(method, g.prefix+endpoint, handler, middlewares)
	if err != nil {
		return err
	}
	g.routes = append(g.routes, entry)
	return nil
}

// Routes returns copies of the registered routes, with the group middleware placed ahead
// of each route's own middleware.
func (g *Router) Routes() []RouteEntry {
	out := g.routes.entries()
	for i := range out {
		out[i].Middlewares = out[i].Middlewares.Prepend(g.middlewares...)
	}
	return out
}
