package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/task-manager/internal/config"
	"github.com/iliyamo/task-manager/internal/utils"
)

func newIssuer(t *testing.T) *utils.TokenIssuer {
	t.Helper()
	issuer, err := utils.NewTokenIssuer("s3cret", 0)
	require.NoError(t, err)
	return issuer
}

func serveProtected(t *testing.T, issuer *utils.TokenIssuer, header string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/api/tasks", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"user_id":  c.Get(UserIDKey),
			"username": c.Get(UsernameKey),
		})
	}, JWTAuth(issuer))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	issuer := newIssuer(t)
	token, err := issuer.Issue(42, "alice")
	require.NoError(t, err)

	other, err := utils.NewTokenIssuer("different", 0)
	require.NoError(t, err)
	foreign, err := other.Issue(42, "alice")
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		status   int
		contains string
	}{
		{"valid", "Bearer " + token, http.StatusOK, `"user_id":42`},
		{"lowercase scheme", "bearer " + token, http.StatusOK, `"username":"alice"`},
		{"no header", "", http.StatusUnauthorized, "Access token required"},
		{"scheme only", "Bearer", http.StatusUnauthorized, "Access token required"},
		{"blank token", "Bearer   ", http.StatusUnauthorized, "Access token required"},
		{"basic auth", "Basic dXNlcjpwdw==", http.StatusUnauthorized, "Access token required"},
		{"garbage token", "Bearer abc.def.ghi", http.StatusForbidden, "Invalid token"},
		{"foreign signature", "Bearer " + foreign, http.StatusForbidden, "Invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveProtected(t, issuer, tt.header)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/auth/login")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}
	assert.Equal(t, "rl:ip:10.0.0.1:route:POST /api/auth/login", buildRateKey(cfg, c))

	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:anon", buildRateKey(cfg, c))

	c.Set(UserIDKey, uint64(7))
	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:ip:10.0.0.1:user:7:route:POST /api/auth/login", buildRateKey(cfg, c))
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 0, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(1))
	assert.Equal(t, 3, retryAfterSeconds(2500))
	assert.Equal(t, 0, retryAfterSeconds(-10))
}

func TestDisabledMiddlewarePassThrough(t *testing.T) {
	e := echo.New()
	cache := NewResponseCache(config.CacheConfig{Enabled: true}, nil)
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	}, NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil), cache.Middleware())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Cache"))

	assert.NoError(t, cache.InvalidateUser(context.Background(), 1))
	var nilCache *ResponseCache
	assert.NoError(t, nilCache.InvalidateUser(context.Background(), 1))
}

func TestCacheKeyIsPerUserPathAndGeneration(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Prefix: "cache"}, nil)
	a := rc.key("1", "0", httptest.NewRequest(http.MethodGet, "/api/tasks/3", nil))
	b := rc.key("1", "0", httptest.NewRequest(http.MethodGet, "/api/tasks/4", nil))
	c := rc.key("2", "0", httptest.NewRequest(http.MethodGet, "/api/tasks/3", nil))
	d := rc.key("1", "0", httptest.NewRequest(http.MethodGet, "/api/tasks/3?q=milk", nil))
	e := rc.key("1", "1", httptest.NewRequest(http.MethodGet, "/api/tasks/3", nil))

	assert.True(t, strings.HasPrefix(a, "cache:user:1:g0:"))
	assert.True(t, strings.HasPrefix(c, "cache:user:2:g0:"))
	assert.True(t, strings.HasPrefix(e, "cache:user:1:g1:"))
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, d)
	assert.Equal(t, "cache:user:1:gen", rc.genKey("1"))
}

func TestCacheableMethods(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{
		Methods: map[string]bool{"GET": true, "PUT": true, "DELETE": true},
	}, nil)
	assert.True(t, rc.cacheable(http.MethodGet))
	assert.True(t, rc.cacheable("get"))
	assert.False(t, rc.cacheable(http.MethodHead))
	assert.False(t, rc.cacheable(http.MethodPut))
	assert.False(t, rc.cacheable(http.MethodDelete))
	assert.False(t, rc.cacheable(http.MethodPost))
}

func TestPayloadEncoding(t *testing.T) {
	hdr := http.Header{echo.HeaderContentType: []string{echo.MIMEApplicationJSON}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`[{"id":1}]`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, echo.MIMEApplicationJSON, gotHdr.Get(echo.HeaderContentType))
	assert.Equal(t, `[{"id":1}]`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0})
	assert.False(t, ok)
}
