package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-seat-booking/internal/config"
)

const defaultCacheTTL = 30 * time.Second

// cachedResponse is what a cache entry holds.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// bodyRecorder tees the response body into buf until limit bytes, after
// which it only forwards and marks the recording as overflowed.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if !r.overflow {
		if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
			r.overflow = true
			r.buf.Reset()
		} else {
			r.buf.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// cacheKey derives the entry key from the route and, depending on the
// strategy, the method and query.  Query parameters are sorted first so
// "?page=2&movie=x" and "?movie=x&page=2" share an entry.
//
//	route               route only
//	method_route        method + route
//	method_route_query  method + route + query
//	route_query         route + query (default)
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	route := c.Path()
	for _, name := range c.ParamNames() {
		route = strings.Replace(route, ":"+name, c.Param(name), 1)
	}
	query := r.URL.Query().Encode()

	var id string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		id = route
	case "method_route":
		id = r.Method + " " + route
	case "method_route_query":
		id = r.Method + " " + route + "?" + query
	default:
		id = route + "?" + query
	}
	sum := sha1.Sum([]byte(id))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

// NewRedisCache caches successful responses of public show listings in
// Redis.  Status, headers and body are stored together so a hit replays
// the same bytes.  Seat maps must never be routed through it since they
// have to reflect the latest committed bookings.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Caches(c.Request().Method) {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var hit cachedResponse
				if json.Unmarshal(raw, &hit) == nil && hit.Status != 0 {
					return replay(c, hit)
				}
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.overflow {
				return nil
			}

			entry := cachedResponse{Status: rec.status, Header: c.Response().Header().Clone(), Body: rec.buf.Bytes()}
			entry.Header.Del("X-Cache")
			entry.Header.Del(echo.HeaderXRequestID)
			if raw, err := json.Marshal(entry); err == nil {
				// the request context may already be cancelled once the body is written
				_ = rdb.Set(context.WithoutCancel(ctx), key, raw, ttl).Err()
			}
			return nil
		}
	}
}

func replay(c echo.Context, hit cachedResponse) error {
	h := c.Response().Header()
	for k, vals := range hit.Header {
		if strings.EqualFold(k, echo.HeaderContentLength) {
			continue
		}
		for _, v := range vals {
			h.Add(k, v)
		}
	}
	h.Set("X-Cache", "HIT")
	return c.Blob(hit.Status, h.Get(echo.HeaderContentType), hit.Body)
}
