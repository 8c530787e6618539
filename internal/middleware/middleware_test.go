package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-seat-booking/internal/config"
	"github.com/iliyamo/cinema-seat-booking/internal/utils"
)

const secret = "test-secret"

// whoami echoes the authenticated user id.
func whoami(c echo.Context) error {
	id, ok := UserID(c)
	if !ok {
		return c.String(http.StatusTeapot, "anonymous")
	}
	return c.String(http.StatusOK, strconv.FormatUint(id, 10))
}

func serve(t *testing.T, h echo.HandlerFunc, authHeader string, mws ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/me", h, mws...)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAcceptsIssuedToken(t *testing.T) {
	tok, err := utils.NewAccessToken(secret, 42, "USER", 5)
	require.NoError(t, err)

	rec := serve(t, whoami, "Bearer "+tok.Token, JWTAuth(secret), RequireRole("USER"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", rec.Body.String())
}

func TestJWTAuthRejects(t *testing.T) {
	wrongKey, err := utils.NewAccessToken("other-secret", 42, "USER", 5)
	require.NoError(t, err)
	expired, err := utils.NewAccessToken(secret, 42, "USER", -5)
	require.NoError(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "42", "role": "USER"})
	noExpSigned, err := noExp.SignedString([]byte(secret))
	require.NoError(t, err)

	badSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice", "role": "USER", "exp": time.Now().Add(time.Hour).Unix(),
	})
	badSubSigned, err := badSub.SignedString([]byte(secret))
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing header": "",
		"not bearer":     "Basic abc",
		"garbage":        "Bearer not-a-jwt",
		"wrong key":      "Bearer " + wrongKey.Token,
		"expired":        "Bearer " + expired.Token,
		"no expiry":      "Bearer " + noExpSigned,
		"bad subject":    "Bearer " + badSubSigned,
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, whoami, header, JWTAuth(secret))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	tok, err := utils.NewAccessToken(secret, 7, "OWNER", 5)
	require.NoError(t, err)
	rec := serve(t, whoami, "Bearer "+tok.Token, JWTAuth(secret), RequireRole("USER"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestParseSubject(t *testing.T) {
	id, ok := parseSubject("15")
	assert.True(t, ok)
	assert.Equal(t, uint64(15), id)

	id, ok = parseSubject(float64(9))
	assert.True(t, ok)
	assert.Equal(t, uint64(9), id)

	for _, v := range []any{"0", "-3", 1.5, float64(0), nil, true} {
		_, ok := parseSubject(v)
		assert.False(t, ok, "%v", v)
	}
}

func TestRateLimitKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings")

	cfg := config.RateLimitConfig{Prefix: "rl"}
	assert.Equal(t, "rl:ip:10.0.0.1", rateLimitKey(cfg, c), "anonymous falls back to ip")

	c.Set(ctxUserID, uint64(3))
	assert.Equal(t, "rl:user:3", rateLimitKey(cfg, c))
	cfg.KeyStrategy = "user_route"
	assert.Equal(t, "rl:user:3:POST /v1/bookings", rateLimitKey(cfg, c))
	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:10.0.0.1", rateLimitKey(cfg, c))
}

func TestRetryAfterSecondsRoundsUp(t *testing.T) {
	assert.Equal(t, 0, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(10*time.Millisecond))
	assert.Equal(t, 1, retryAfterSeconds(time.Second))
	assert.Equal(t, 2, retryAfterSeconds(1001*time.Millisecond))
}

func TestDisabledRedisMiddlewaresPassThrough(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }

	rec := serve(t, ok, "", NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, logger))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, ok, "", NewRedisCache(config.CacheConfig{Enabled: true}, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestCacheKey(t *testing.T) {
	e := echo.New()
	newCtx := func(target, id string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/v1/shows/:id")
		c.SetParamNames("id")
		c.SetParamValues(id)
		return c
	}
	cfg := config.CacheConfig{Prefix: "cache"}

	a := cacheKey(cfg, newCtx("/v1/shows/1?page=2&movie=x", "1"))
	b := cacheKey(cfg, newCtx("/v1/shows/1?movie=x&page=2", "1"))
	other := cacheKey(cfg, newCtx("/v1/shows/2?movie=x&page=2", "2"))
	assert.Equal(t, a, b, "query order must not matter")
	assert.NotEqual(t, a, other, "different shows must not share an entry")
	assert.True(t, strings.HasPrefix(a, "cache:"))

	cfg.KeyStrategy = "route"
	assert.Equal(t, cacheKey(cfg, newCtx("/v1/shows/1?page=1", "1")), cacheKey(cfg, newCtx("/v1/shows/1?page=9", "1")))
}

func TestBodyRecorderStopsAtLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	br := &bodyRecorder{ResponseWriter: rec, status: http.StatusOK, limit: 8}

	_, err := br.Write([]byte("12345"))
	require.NoError(t, err)
	assert.False(t, br.overflow)
	assert.Equal(t, "12345", br.buf.String())

	_, err = br.Write([]byte("6789"))
	require.NoError(t, err)
	assert.True(t, br.overflow)
	assert.Zero(t, br.buf.Len())
	assert.Equal(t, "123456789", rec.Body.String(), "client still receives the full body")
}

func TestRequestLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	fail := func(c echo.Context) error { return echo.NewHTTPError(http.StatusConflict, "taken") }

	rec := serve(t, fail, "", RequestLogger(logger))
	assert.Equal(t, http.StatusConflict, rec.Code)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, http.StatusConflict, entry.Data["status"])
	assert.Equal(t, "/me", entry.Data["path"])
}
