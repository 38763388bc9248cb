// Package middleware provides a collection of middleware components for capi engines.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/Suhaibinator/capi/pkg/common"
	"go.uber.org/zap"
)

// Use the Middleware type from the common package
type Middleware = common.Middleware

// Chain folds several middlewares into one that runs them in order.
// The returned middleware continues with next once the last of them calls its continuation.
func Chain(middlewares ...Middleware) Middleware {
	chain := common.NewMiddlewareChain(middlewares...)
	return func(req *common.Request, res *common.Response, next common.Next) {
		chain.Run(req, res, func(*common.Request, *common.Response) { next() })
	}
}

// Recovery is a middleware that recovers from panics further down the chain
func Recovery(logger *zap.Logger) Middleware {
	return func(req *common.Request, res *common.Response, next common.Next) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("Panic recovered",
					zap.Any("panic", rec),
					zap.String("stack", string(debug.Stack())),
					zap.String("method", req.Method),
					zap.String("path", req.Path),
				)

				if !res.Written() {
					_ = res.Status(http.StatusInternalServerError).JSON(map[string]string{"error": "internal server error"})
				}
			}
		}()

		next()
	}
}

// Logging is a middleware that logs requests once the rest of the chain has returned
func Logging(logger *zap.Logger) Middleware {
	return func(req *common.Request, res *common.Response, next common.Next) {
		start := time.Now()

		next()

		duration := time.Since(start)
		status := res.StatusCode()
		fields := []zap.Field{
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		}
		if traceID := TraceID(req); traceID != "" {
			fields = append([]zap.Field{zap.String("trace_id", traceID)}, fields...)
		}

		// Use appropriate log level based on status code and duration
		switch {
		case status >= 500:
			logger.Error("Server error", fields...)
		case status >= 400:
			logger.Warn("Client error", fields...)
		case duration > 1*time.Second:
			logger.Warn("Slow request", fields...)
		default:
			logger.Debug("Request", fields...)
		}
	}
}
