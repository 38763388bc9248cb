// Package router provides the capi engine: an exact-path route table, a global middleware
// list and the dispatcher that drives each call through them.
package router

import (
	"time"

	"github.com/Suhaibinator/capi/pkg/common"
	"github.com/Suhaibinator/capi/pkg/metrics"
	"github.com/Suhaibinator/capi/pkg/middleware"
	"go.uber.org/zap"
)

// Middleware is an alias for common.Middleware.
type Middleware = common.Middleware

// Handler is an alias for common.Handler.
type Handler = common.Handler

// EngineConfig defines the global configuration for an Engine.
type EngineConfig struct {
	Logger            *zap.Logger          // Logger for all engine operations; a production logger when nil
	MaxBodySize       int64                // Maximum request body size in bytes; 0 means unlimited
	Middlewares       []Middleware         // Global middlewares, installed as by Use
	SubRouters        []*Router            // Routers mounted at construction without an extra prefix
	EnableTraceID     bool                 // Give every call a trace ID and log it
	IPConfig          *middleware.IPConfig // Resolve the client IP for every call when set
	Metrics           *metrics.Collector   // Record request metrics when set
	ReadHeaderTimeout time.Duration        // Passed to the http.Server built by Start
}
