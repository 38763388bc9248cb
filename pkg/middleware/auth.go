package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Suhaibinator/capi/pkg/common"
	"go.uber.org/zap"
)

// AuthNamespace is the request side-channel namespace used by the auth gates.
const AuthNamespace = "auth"

// AuthProvider defines an interface for authentication providers.
type AuthProvider interface {
	// Authenticate reports whether the request carries valid credentials.
	Authenticate(req *common.Request) bool
}

// BasicAuthProvider provides HTTP Basic Authentication.
type BasicAuthProvider struct {
	Credentials map[string]string // username -> password
}

// Authenticate checks the Basic credentials against the stored map.
func (p *BasicAuthProvider) Authenticate(req *common.Request) bool {
	username, password, ok := req.Raw().BasicAuth()
	if !ok {
		return false
	}

	expected, exists := p.Credentials[username]
	if !exists {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(expected)) == 1
}

// BearerTokenProvider provides Bearer Token Authentication.
// Validator takes precedence over ValidTokens when set.
type BearerTokenProvider struct {
	ValidTokens map[string]bool         // token -> valid
	Validator   func(token string) bool // optional token validator
}

// Authenticate checks the bearer token.
func (p *BearerTokenProvider) Authenticate(req *common.Request) bool {
	token, ok := bearerToken(req)
	if !ok {
		return false
	}
	if p.Validator != nil {
		return p.Validator(token)
	}
	return p.ValidTokens[token]
}

// APIKeyProvider provides API Key Authentication from a header or a query parameter.
type APIKeyProvider struct {
	ValidKeys map[string]bool // key -> valid
	Header    string          // header name (e.g., "X-API-Key")
	Query     string          // query parameter name (e.g., "api_key")
}

// Authenticate checks the header first, then the query parameter.
func (p *APIKeyProvider) Authenticate(req *common.Request) bool {
	if p.Header != "" {
		if key := req.Header(p.Header); key != "" && p.ValidKeys[key] {
			return true
		}
	}
	if p.Query != "" {
		if key := req.Query.Get(p.Query); key != "" && p.ValidKeys[key] {
			return true
		}
	}
	return false
}

// Authentication is a gate that admits requests accepted by provider and answers
// everything else with 401.
func Authentication(provider AuthProvider, logger *zap.Logger) Middleware {
	return func(req *common.Request, res *common.Response, next common.Next) {
		if !provider.Authenticate(req) {
			logger.Warn("Authentication failed",
				zap.String("method", req.Method),
				zap.String("path", req.Path),
				zap.String("remote_addr", req.Raw().RemoteAddr),
			)
			unauthorized(res)
			return
		}
		next()
	}
}

// BearerAuth is a gate that resolves the bearer token to a user with authFunc.
// The user is stored under AuthNamespace and can be read back with GetUser.
func BearerAuth[U any](authFunc func(ctx context.Context, token string) (U, bool), logger *zap.Logger) Middleware {
	return func(req *common.Request, res *common.Response, next common.Next) {
		token, ok := bearerToken(req)
		if !ok {
			logger.Debug("Missing bearer token",
				zap.String("method", req.Method),
				zap.String("path", req.Path),
			)
			unauthorized(res)
			return
		}

		user, valid := authFunc(req.Context(), token)
		if !valid {
			logger.Warn("Authentication failed",
				zap.String("method", req.Method),
				zap.String("path", req.Path),
				zap.String("remote_addr", req.Raw().RemoteAddr),
			)
			unauthorized(res)
			return
		}

		req.Set(AuthNamespace, "user", user)
		next()
	}
}

// GetUser returns the user stored by BearerAuth.
func GetUser[U any](req *common.Request) (U, bool) {
	v, ok := req.Get(AuthNamespace, "user")
	if !ok {
		var zero U
		return zero, false
	}
	user, ok := v.(U)
	return user, ok
}

func bearerToken(req *common.Request) (string, bool) {
	header := req.Header("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func unauthorized(res *common.Response) {
	_ = res.Status(http.StatusUnauthorized).JSON(map[string]string{"error": "unauthorized"})
}
