package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func corsRequest(method, origin string) *http.Request {
	r := httptest.NewRequest(method, "/resource", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestCORSAllowedOrigin(t *testing.T) {
	mw := CORS(CORSConfig{Origins: []string{"http://a.com"}, Logger: zap.NewNop()})

	rr, called := run(t, mw, corsRequest(http.MethodGet, "http://a.com"))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "http://a.com", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rr.Header().Get("Vary"))
	assert.Equal(t, DefaultCORSMethods, rr.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, DefaultCORSHeaders, rr.Header().Get("Access-Control-Allow-Headers"))
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSOriginCaseInsensitive(t *testing.T) {
	mw := CORS(CORSConfig{Origins: []string{" HTTP://A.com "}, Logger: zap.NewNop()})

	rr, called := run(t, mw, corsRequest(http.MethodGet, "http://a.COM"))

	assert.True(t, called)
	assert.Equal(t, "http://a.COM", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRejectedOrigin(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	mw := CORS(CORSConfig{Origins: []string{"http://a.com"}, Logger: zap.New(core)})

	rr, called := run(t, mw, corsRequest(http.MethodGet, "http://b.com"))

	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.JSONEq(t, `{"error":"CORS blocked: Origin http://b.com not allowed"}`, rr.Body.String())
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "http://b.com", logs.All()[0].ContextMap()["origin"])
}

func TestCORSMissingOrigin(t *testing.T) {
	mw := CORS(CORSConfig{Origins: []string{"http://a.com"}, Silent: true})

	rr, called := run(t, mw, corsRequest(http.MethodGet, ""))

	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.JSONEq(t, `{"error":"CORS blocked: Origin (none) not allowed"}`, rr.Body.String())
}

func TestCORSNullOrigin(t *testing.T) {
	mw := CORS(CORSConfig{Origins: []string{"http://a.com", "null"}, Silent: true})
	_, called := run(t, mw, corsRequest(http.MethodGet, "null"))
	assert.False(t, called)

	mw = CORS(CORSConfig{Origins: []string{"*"}})
	rr, called := run(t, mw, corsRequest(http.MethodGet, "null"))
	assert.True(t, called)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	mw := CORS(CORSConfig{Origins: []string{"http://a.com"}, Logger: zap.NewNop()})
	r := corsRequest(http.MethodOptions, "http://a.com")
	r.Header.Set("Access-Control-Request-Method", "PATCH")
	r.Header.Set("Access-Control-Request-Headers", "X-Custom")

	rr, called := run(t, mw, r)

	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.Equal(t, "http://a.com", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "PATCH", rr.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "X-Custom", rr.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSConfiguredMethodsAndHeaders(t *testing.T) {
	mw := CORS(CORSConfig{
		Origins: []string{"http://a.com"},
		Methods: "GET",
		Headers: "X-Token",
		Logger:  zap.NewNop(),
	})
	r := corsRequest(http.MethodOptions, "http://a.com")
	r.Header.Set("Access-Control-Request-Method", "DELETE")

	rr, _ := run(t, mw, r)

	assert.Equal(t, "GET", rr.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "X-Token", rr.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSAllowAll(t *testing.T) {
	mw := CORS(CORSConfig{Origins: []string{"*"}})

	rr, called := run(t, mw, corsRequest(http.MethodGet, "http://anything.example"))

	assert.True(t, called)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rr.Header().Get("Vary"))

	rr, called = run(t, mw, corsRequest(http.MethodGet, ""))
	assert.True(t, called)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAllowAllWithCredentials(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	mw := CORS(CORSConfig{Origins: []string{"*"}, Credentials: true, Logger: zap.New(core)})
	assert.Equal(t, 1, logs.Len())

	rr, called := run(t, mw, corsRequest(http.MethodGet, "http://c.com"))
	assert.True(t, called)
	assert.Equal(t, "http://c.com", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "Origin", rr.Header().Get("Vary"))

	rr, called = run(t, mw, corsRequest(http.MethodGet, ""))
	assert.True(t, called)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSSilent(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	mw := CORS(CORSConfig{
		Origins:     []string{"*", "http://a.com"},
		Credentials: true,
		Silent:      true,
		Logger:      zap.New(core),
	})
	run(t, mw, corsRequest(http.MethodGet, "http://a.com"))

	mw = CORS(CORSConfig{Origins: []string{"http://a.com"}, Silent: true, Logger: zap.New(core)})
	run(t, mw, corsRequest(http.MethodGet, "http://b.com"))

	assert.Equal(t, 0, logs.Len())
}
