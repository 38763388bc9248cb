package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Suhaibinator/capi/pkg/common"
	"go.uber.org/zap"
)

const (
	// DefaultCORSMethods is sent in Access-Control-Allow-Methods when neither the config
	// nor the pre-flight request names any methods.
	DefaultCORSMethods = "GET, POST, PUT, DELETE, OPTIONS"

	// DefaultCORSHeaders is the Access-Control-Allow-Headers fallback.
	DefaultCORSHeaders = "Content-Type, Authorization"
)

// CORSConfig configures the CORS gate.
type CORSConfig struct {
	// Origins lists the allowed origins, compared exactly but case-insensitively.
	// A "*" entry allows every origin.
	Origins []string

	// Methods overrides Access-Control-Allow-Methods.
	Methods string

	// Headers overrides Access-Control-Allow-Headers.
	Headers string

	// Credentials sets Access-Control-Allow-Credentials: true and makes the gate reflect
	// the caller's origin instead of "*".
	Credentials bool

	// Silent suppresses the warnings logged for rejected origins and risky configuration.
	Silent bool

	// Logger receives the warnings. zap.L() is used when nil.
	Logger *zap.Logger
}

// CORS creates an admission gate for cross-origin calls.
//
// Calls from origins outside the allowlist are answered with 403 and do not continue.
// Admitted calls get the Access-Control-* response headers; OPTIONS calls then end with
// 204 and no body, every other method continues the chain.
func CORS(config CORSConfig) Middleware {
	logger := config.Logger
	if logger == nil {
		logger = zap.L()
	}
	warn := func(msg string, fields ...zap.Field) {
		if !config.Silent {
			logger.Warn(msg, fields...)
		}
	}

	allowed := make(map[string]struct{}, len(config.Origins))
	allowAll := false
	for _, origin := range config.Origins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			allowAll = true
			continue
		}
		if origin != "" {
			allowed[strings.ToLower(origin)] = struct{}{}
		}
	}

	if allowAll && config.Credentials {
		warn("CORS allows every origin with credentials; each caller's origin will be reflected")
	}

	return func(req *common.Request, res *common.Response, next common.Next) {
		origin := strings.TrimSpace(req.Header("Origin"))

		if !allowAll && !originAllowed(origin, allowed) {
			warn("CORS origin rejected",
				zap.String("origin", origin),
				zap.String("method", req.Method),
				zap.String("path", req.Path),
			)
			_ = res.Status(http.StatusForbidden).JSON(map[string]string{
				"error": fmt.Sprintf("CORS blocked: Origin %s not allowed", displayOrigin(origin)),
			})
			return
		}

		if config.Credentials {
			res.SetHeader("Access-Control-Allow-Credentials", "true")
		}

		switch {
		case allowAll && !config.Credentials:
			res.SetHeader("Access-Control-Allow-Origin", "*")
		case origin != "":
			res.SetHeader("Access-Control-Allow-Origin", origin)
			res.Header().Add("Vary", "Origin")
		}

		res.SetHeader("Access-Control-Allow-Methods",
			firstNonEmpty(config.Methods, req.Header("Access-Control-Request-Method"), DefaultCORSMethods))
		res.SetHeader("Access-Control-Allow-Headers",
			firstNonEmpty(config.Headers, req.Header("Access-Control-Request-Headers"), DefaultCORSHeaders))

		if req.Method == http.MethodOptions {
			_ = res.Status(http.StatusNoContent).End(nil)
			return
		}

		next()
	}
}

// originAllowed checks origin against the allowlist. "null" is never allowed here: the
// allow-all case is decided before this is called.
func originAllowed(origin string, allowed map[string]struct{}) bool {
	if origin == "" || strings.EqualFold(origin, "null") {
		return false
	}
	_, ok := allowed[strings.ToLower(origin)]
	return ok
}

func displayOrigin(origin string) string {
	if origin == "" {
		return "(none)"
	}
	return origin
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
