package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-vault/internal/config"
	"github.com/iliyamo/event-ticket-vault/internal/logger"
	"github.com/iliyamo/event-ticket-vault/internal/utils"
)

const testSecret = "test-secret"

func ownerEcho() *echo.Echo {
	e := echo.New()
	e.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, Owner(c))
	}, JWTAuth(testSecret))
	return e
}

func TestJWTAuth(t *testing.T) {
	e := ownerEcho()
	tok, err := utils.NewAccessToken(testSecret, "alice", time.Hour)
	require.NoError(t, err)
	foreign, err := utils.NewAccessToken("someone-else", "alice", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid token", "Bearer " + tok.Token, http.StatusOK, "alice"},
		{"missing header", "", http.StatusUnauthorized, "missing bearer token"},
		{"wrong scheme", "Basic " + tok.Token, http.StatusUnauthorized, "missing bearer token"},
		{"foreign secret", "Bearer " + foreign.Token, http.StatusUnauthorized, "invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestJWTAuthEmptySecretRejectsForgedToken(t *testing.T) {
	e := echo.New()
	e.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, Owner(c))
	}, JWTAuth(""))

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "victim",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := forged.SignedString([]byte(""))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "victim")
}

func TestOwnerWithoutAuth(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, "", Owner(c))
	assert.Equal(t, "guest", rateIdentity(c))
	c.Set(ownerKey, "bob")
	assert.Equal(t, "bob", rateIdentity(c))
}

func TestRequestLoggerCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(&bytes.Buffer{}) })

	e := echo.New()
	e.Use(RequestLogger())
	var seen string
	e.GET("/ping", func(c echo.Context) error {
		seen = logger.CorrelationIDFrom(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := rec.Header().Get(HeaderCorrelationID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, seen)
	assert.Contains(t, buf.String(), generated)
	assert.Contains(t, buf.String(), `"path":"/ping"`)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderCorrelationID, "abc-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderCorrelationID))
	assert.Equal(t, "abc-123", seen)
}

func TestRequestLoggerRecordsErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(&bytes.Buffer{}) })

	e := echo.New()
	e.Use(RequestLogger())
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), `"status":418`)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/events/concert/verify", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/events/:name/verify")
	c.SetParamNames("name")
	c.SetParamValues("concert")
	c.Set(ownerKey, "alice")

	tests := map[string]string{
		"ip":            "rl:ip:10.0.0.1",
		"owner":         "rl:owner:alice",
		"route":         "rl:route:POST /v1/events/:name/verify",
		"owner_event":   "rl:owner:alice:event:concert",
		"ip_owner":      "rl:ip:10.0.0.1:owner:alice",
		"ip_user_route": "rl:ip:10.0.0.1:owner:alice:route:POST /v1/events/:name/verify",
	}
	for strategy, want := range tests {
		cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}
		assert.Equal(t, want, buildRateKey(cfg, c), strategy)
	}
}

func TestParseBucketResult(t *testing.T) {
	res, ok := parseBucketResult([]interface{}{int64(1), int64(4), int64(0)})
	require.True(t, ok)
	assert.Equal(t, bucketResult{allowed: true, remaining: 4}, res)

	res, ok = parseBucketResult([]interface{}{int64(0), int64(0), int64(1500)})
	require.True(t, ok)
	assert.False(t, res.allowed)
	assert.Equal(t, 2, retryAfterSeconds(res.retryMs))

	_, ok = parseBucketResult("nope")
	assert.False(t, ok)
	_, ok = parseBucketResult([]interface{}{int64(1)})
	assert.False(t, ok)

	assert.Equal(t, 0, retryAfterSeconds(-10))
}

func TestTokenBucketPassThrough(t *testing.T) {
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil)
	called := false
	h := mw(func(c echo.Context) error { called = true; return nil })
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	require.NoError(t, h(c))
	assert.True(t, called)
}

func TestRateHeadersHideKeyOutsideDebug(t *testing.T) {
	key := "rl:owner:alice"
	cfg := config.RateLimitConfig{Capacity: 5}

	h := http.Header{}
	setRateHeaders(h, cfg, key, bucketResult{allowed: true, remaining: 4})
	assert.Equal(t, "5", h.Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", h.Get("X-RateLimit-Remaining"))
	assert.Empty(t, h.Get("X-RateLimit-Key"))
	assert.Empty(t, h.Get("Retry-After"))

	h = http.Header{}
	setRateHeaders(h, cfg, key, bucketResult{remaining: 0, retryMs: 1500})
	assert.Empty(t, h.Get("X-RateLimit-Key"))
	assert.Equal(t, "2", h.Get("Retry-After"))

	cfg.Debug = true
	h = http.Header{}
	setRateHeaders(h, cfg, key, bucketResult{allowed: true, remaining: 4})
	assert.Equal(t, key, h.Get("X-RateLimit-Key"))
}
