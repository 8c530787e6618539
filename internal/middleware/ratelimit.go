package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/config"
)

// takeToken refills the bucket at KEYS[1] by whole intervals elapsed since
// the last refill and tries to take one token.
// ARGV: now_ms, capacity, refill_tokens, interval_ms, ttl_ms.
// Returns {allowed (0|1), tokens left, ms until the next refill}.
var takeToken = redis.NewScript(`
local now = tonumber(ARGV[1])
local cap = tonumber(ARGV[2])
local step = tonumber(ARGV[3])
local every = tonumber(ARGV[4])

local tokens = tonumber(redis.call('HGET', KEYS[1], 't'))
local stamp = tonumber(redis.call('HGET', KEYS[1], 'ts'))
if tokens == nil or stamp == nil then
	tokens, stamp = cap, now
end

local n = math.floor(math.max(0, now - stamp) / every)
if n > 0 then
	tokens = math.min(cap, tokens + n * step)
	stamp = stamp + n * every
end

local allowed, wait = 0, 0
if tokens >= 1 then
	allowed, tokens = 1, tokens - 1
else
	wait = math.max(0, every - (now - stamp))
end

redis.call('HSET', KEYS[1], 't', tokens, 'ts', stamp)
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {allowed, tokens, wait}
`)

// rateDecision is the outcome of one takeToken call.
type rateDecision struct {
	Allowed   bool
	Remaining int64
	Wait      time.Duration
}

type tokenBucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
}

func (b *tokenBucket) take(ctx context.Context, key string) (rateDecision, error) {
	res, err := takeToken.Run(ctx, b.rdb, []string{key},
		time.Now().UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		b.cfg.TTL.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return rateDecision{}, err
	}
	if len(res) != 3 {
		return rateDecision{}, fmt.Errorf("token bucket: unexpected reply %v", res)
	}
	return rateDecision{
		Allowed:   res[0] == 1,
		Remaining: res[1],
		Wait:      time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// NewTokenBucket limits booking traffic with a token bucket per key (see
// rateLimitKey) kept in Redis so every server instance shares it.  It is a
// no-op when disabled or when rdb is nil, and lets requests through when
// Redis fails.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	bucket := &tokenBucket{cfg: cfg, rdb: rdb}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateLimitKey(cfg, c)
			d, err := bucket.take(c.Request().Context(), key)
			if err != nil {
				log.WithError(err).WithField("key", key).Warn("ratelimit: redis unavailable, allowing request")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if d.Allowed {
				return next(c)
			}

			retry := retryAfterSeconds(d.Wait)
			h.Set("Retry-After", strconv.Itoa(retry))
			if cfg.Debug {
				log.WithFields(logrus.Fields{"key": key, "retry_after": retry}).Info("ratelimit: blocked")
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "rate limit exceeded",
				"retry_after": retry,
			})
		}
	}
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// retryAfterSeconds rounds up, so a client never retries too early.
func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// rateLimitKey names the bucket a request draws from.  Strategies:
//
//	user        authenticated user, falling back to the client IP
//	ip          client IP
//	user_route  user (or IP) per method and route
//
// Anything else, including the empty string, means "user".
func rateLimitKey(cfg config.RateLimitConfig, c echo.Context) string {
	who := "ip:" + clientIP(c)
	if id, ok := UserID(c); ok {
		who = "user:" + strconv.FormatUint(id, 10)
	}
	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip:"+clientIP(c))
	case "user_route":
		parts = append(parts, who, c.Request().Method+" "+c.Path())
	default:
		parts = append(parts, who)
	}
	return strings.Join(parts, ":")
}

func clientIP(c echo.Context) string {
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	return "unknown"
}
