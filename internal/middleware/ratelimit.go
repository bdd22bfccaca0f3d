package middleware

import (
    "context"
    "log/slog"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/pkg/errors"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/geo-reservation/internal/config"
)

// verdict is the outcome of taking one token from a bucket.
type verdict struct {
    Allowed    bool
    Remaining  int64
    RetryAfter time.Duration
}

// bucket takes one token for key.
type bucket interface {
    Take(ctx context.Context, key string) (verdict, error)
}

// takeScript refills the bucket for the whole intervals elapsed since the
// stored stamp, then takes one token if any is left.  It returns
// {allowed, remaining, wait_ms}.
var takeScript = redis.NewScript(`
local capacity = tonumber(ARGV[2])
local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens') or capacity)
local stamp = tonumber(redis.call('HGET', KEYS[1], 'stamp') or ARGV[1])
local now = tonumber(ARGV[1])
local every = tonumber(ARGV[3])
local gained = math.floor(math.max(0, now - stamp) / every)
tokens = math.min(capacity, tokens + gained * tonumber(ARGV[4]))
stamp = stamp + gained * every
local wait = 0
local ok = 0
if tokens > 0 then
  tokens = tokens - 1
  ok = 1
else
  wait = every - (now - stamp)
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {ok, tokens, wait}
`)

// redisBucket keeps one bucket per key in a Redis hash so every instance of
// the service shares the same budget.
type redisBucket struct {
    rdb *redis.Client
    cfg config.RateLimitConfig
}

func (b redisBucket) Take(ctx context.Context, key string) (verdict, error) {
    every := b.cfg.RefillInterval.Milliseconds()
    if every < 1 {
        every = 1
    }
    res, err := takeScript.Run(ctx, b.rdb, []string{key},
        time.Now().UnixMilli(),
        b.cfg.Capacity,
        every,
        b.cfg.RefillTokens,
        b.cfg.TTL.Milliseconds(),
    ).Int64Slice()
    if err != nil {
        return verdict{}, err
    }
    return decodeVerdict(res)
}

func decodeVerdict(res []int64) (verdict, error) {
    if len(res) != 3 {
        return verdict{}, errors.Errorf("rate limit script returned %d values", len(res))
    }
    wait := res[2]
    if wait < 0 {
        wait = 0
    }
    return verdict{
        Allowed:    res[0] == 1,
        Remaining:  res[1],
        RetryAfter: time.Duration(wait) * time.Millisecond,
    }, nil
}

// NewTokenBucket limits each caller per route with a token bucket kept in
// Redis.  Without Redis, or when disabled, it passes every request through.
// Redis errors fail open.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, logger *slog.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return limit(cfg, redisBucket{rdb: rdb, cfg: cfg}, logger)
}

func limit(cfg config.RateLimitConfig, b bucket, logger *slog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg.Prefix, c)
            v, err := b.Take(c.Request().Context(), key)
            if err != nil {
                logger.Warn("ratelimit: bucket unavailable, allowing request", slog.String("key", key), slog.Any("error", err))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.Remaining, 10))
            if v.Allowed {
                return next(c)
            }

            secs := int(math.Ceil(v.RetryAfter.Seconds()))
            h.Set("Retry-After", strconv.Itoa(secs))
            logger.Debug("ratelimit: blocked", slog.String("key", key), slog.Duration("retry_after", v.RetryAfter))
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "too_many_requests",
                "message":     "rate limit exceeded",
                "retry_after": secs,
            })
        }
    }
}

// rateKey identifies the caller by the userId query parameter, the only
// identity the reservation API has, falling back to the client IP.
func rateKey(prefix string, c echo.Context) string {
    who := "ip:" + c.RealIP()
    if uid := strings.TrimSpace(c.QueryParam("userId")); uid != "" {
        who = "user:" + uid
    }
    return prefix + ":" + who + ":" + c.Path()
}
