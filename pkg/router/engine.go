package router

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/Suhaibinator/capi/pkg/codec"
	"github.com/Suhaibinator/capi/pkg/common"
	"github.com/Suhaibinator/capi/pkg/middleware"
	"go.uber.org/zap"
)

// Engine owns the route table and the global middleware list, and dispatches calls.
//
// For each call the engine finds the first route whose method and endpoint equal the
// call's method and path, parses the body, and drives the global middleware, then the
// route's middleware, then the route's handler. Routes and middleware must be registered
// before Start; registering while serving is not supported.
type Engine struct {
	registrar

	config      EngineConfig
	logger      *zap.Logger
	middlewares common.MiddlewareChain
	routes      routeTable

	wg         sync.WaitGroup
	shutdown   bool
	shutdownMu sync.RWMutex
	server     *http.Server
	serverMu   sync.Mutex
}

// errorBody is the shape of every error response the engine writes itself.
type errorBody struct {
	Error string `json:"error"`
}

type notFoundBody struct {
	Error  string `json:"error"`
	URL    string `json:"url"`
	Method string `json:"method"`
}

// New creates an Engine with the given configuration.
// It installs the built-in middleware the configuration asks for, then the configured
// global middleware, then mounts the configured sub-routers. It panics if a sub-router
// cannot be mounted.
func New(config EngineConfig) *Engine {
	logger := config.Logger
	if logger == nil {
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			logger = zap.NewNop()
		}
	}

	e := &Engine{
		config: config,
		logger: logger,
	}
	e.registrar = registrar{handle: e.Handle}

	// Trace goes first so every later middleware and log line can see the ID.
	if config.EnableTraceID {
		e.Use(middleware.Trace(middleware.DefaultTraceHeader))
	}
	if config.IPConfig != nil {
		e.Use(middleware.ClientIP(config.IPConfig))
	}
	if config.Metrics != nil {
		e.Use(middleware.Metrics(config.Metrics))
	}
	e.Use(config.Middlewares...)

	for _, sr := range config.SubRouters {
		if err := e.Mount("", sr); err != nil {
			panic(err)
		}
	}

	return e
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *zap.Logger {
	return e.logger
}

// Use appends global middleware. Global middleware runs for every route, ahead of the
// route's own middleware. A middleware already in the global list is not added again.
func (e *Engine) Use(middlewares ...Middleware) {
	for _, mw := range middlewares {
		if mw == nil || e.middlewares.Contains(mw) {
			continue
		}
		e.middlewares = e.middlewares.Append(mw)
	}
}

// Handle registers handler for method and endpoint, behind the given route middleware.
// It returns a *RegistrationError if the method, endpoint or handler is invalid.
func (e *Engine) Handle(method, endpoint string, handler Handler, middlewares ...Middleware) error {
	entry, err := newRouteEntry(method, endpoint, handler, middlewares)
	if err != nil {
		return err
	}
	e.addRoute(entry)
	return nil
}

// Mount copies every route of r into the engine with prefix prepended to its endpoint.
// Middleware order and handlers are carried over unchanged. Nothing is mounted if any
// resulting endpoint is invalid.
func (e *Engine) Mount(prefix string, r *Router) error {
	if r == nil {
		return nil
	}

	entries := r.Routes()
	for i := range entries {
		entries[i].Endpoint = prefix + entries[i].Endpoint
		if err := validateRoute(entries[i].Method, entries[i].Endpoint, entries[i].Handler); err != nil {
			return err
		}
	}

	for _, entry := range entries {
		e.addRoute(entry)
	}
	return nil
}

func (e *Engine) addRoute(entry RouteEntry) {
	if e.routes.has(entry.Method, entry.Endpoint) {
		e.logger.Warn("Duplicate route registered; the earlier registration will handle every call",
			zap.String("method", entry.Method),
			zap.String("endpoint", entry.Endpoint),
		)
	}
	e.routes = append(e.routes, entry)
}

// Routes returns copies of the registered routes in registration order.
func (e *Engine) Routes() []RouteEntry {
	return e.routes.entries()
}

// ServeHTTP dispatches one call.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res := common.NewResponse(w)

	// Add to the wait group before checking the shutdown flag, so Shutdown cannot miss
	// a call that got past the check.
	e.wg.Add(1)
	e.shutdownMu.RLock()
	isShutdown := e.shutdown
	e.shutdownMu.RUnlock()
	if isShutdown {
		e.wg.Done()
		_ = res.Status(http.StatusServiceUnavailable).JSON(errorBody{Error: "service unavailable"})
		return
	}
	defer e.wg.Done()

	if e.config.MaxBodySize > 0 && r.Body != nil {
		r.Body = http.MaxBytesReader(res.Writer(), r.Body, e.config.MaxBodySize)
	}
	req := common.NewRequest(r)

	defer e.recoverPanic(req, res)

	route, ok := e.routes.find(strings.ToUpper(req.Method), req.Path)
	if !ok {
		_ = res.Status(http.StatusNotFound).JSON(notFoundBody{
			Error:  "routes not found",
			URL:    req.URL,
			Method: strings.ToUpper(req.Method),
		})
		return
	}

	// Only routed calls have their body drained; parsing still finishes before the chain.
	if err := req.ParseBody(); err != nil {
		e.rejectBody(req, res, err)
		return
	}

	e.middlewares.Append(route.Middlewares...).Run(req, res, route.Handler)
}

// rejectBody answers a call whose body could not be parsed. The chain never runs.
func (e *Engine) rejectBody(req *common.Request, res *common.Response, err error) {
	status, message := http.StatusBadRequest, "invalid request body"

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		status, message = http.StatusRequestEntityTooLarge, "request body too large"
	case errors.Is(err, codec.ErrInvalidJSON):
		message = "Invalid JSON body"
	}

	e.logger.Warn("Failed to parse request body", append(e.requestFields(req), zap.Error(err))...)
	_ = res.Status(status).JSON(errorBody{Error: message})
}

// recoverPanic must be deferred directly by ServeHTTP.
func (e *Engine) recoverPanic(req *common.Request, res *common.Response) {
	rec := recover()
	if rec == nil {
		return
	}

	fields := append(e.requestFields(req),
		zap.Any("panic", rec),
		zap.String("stack", string(debug.Stack())),
	)
	e.logger.Error("Panic recovered", fields...)

	if !res.Written() {
		_ = res.Status(http.StatusInternalServerError).JSON(errorBody{Error: "internal server error"})
	}
}

func (e *Engine) requestFields(req *common.Request) []zap.Field {
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.Path),
	}
	if e.config.EnableTraceID {
		if traceID := middleware.TraceID(req); traceID != "" {
			fields = append([]zap.Field{zap.String("trace_id", traceID)}, fields...)
		}
	}
	return fields
}

// Start listens on port and serves until Shutdown is called.
// banner is logged once the listener is open; an empty banner logs the default
// "server is running at http://localhost:<port>".
func (e *Engine) Start(port int, banner string) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", port, err)
	}
	return e.Serve(ln, banner)
}

// Serve is like Start but uses an existing listener.
func (e *Engine) Serve(ln net.Listener, banner string) error {
	srv := &http.Server{
		Handler:           e,
		ReadHeaderTimeout: e.config.ReadHeaderTimeout,
		ErrorLog:          zap.NewStdLog(e.logger),
	}
	e.serverMu.Lock()
	e.server = srv
	e.serverMu.Unlock()

	if banner == "" {
		port := 0
		if addr, ok := ln.Addr().(*net.TCPAddr); ok {
			port = addr.Port
		}
		banner = fmt.Sprintf("server is running at http://localhost:%d", port)
	}
	e.logger.Info(banner)
	for _, route := range e.routes {
		e.logger.Debug("Route",
			zap.String("method", route.Method),
			zap.String("endpoint", route.Endpoint),
			zap.Int("middlewares", len(e.middlewares)+len(route.Middlewares)),
		)
	}

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the engine.
// New calls are answered with 503 and Shutdown waits for calls in flight to finish.
// If ctx is done first, its error is returned.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.shutdownMu.Lock()
	e.shutdown = true
	e.shutdownMu.Unlock()

	e.serverMu.Lock()
	srv := e.server
	e.serverMu.Unlock()
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
