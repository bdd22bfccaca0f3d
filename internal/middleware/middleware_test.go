package middleware

import (
    "bytes"
    "context"
    "io"
    "log/slog"
    "net/http"
    "net/http/httptest"
    "strconv"
    "sync"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/geo-reservation/internal/config"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func okHandler(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func newLimited(mw echo.MiddlewareFunc) *echo.Echo {
    e := echo.New()
    e.GET("/reservation", okHandler, mw)
    e.GET("/reservationAll", okHandler, mw)
    return e
}

func do(e *echo.Echo, target string) *httptest.ResponseRecorder {
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
    return rec
}

// memBucket mirrors the Redis bucket without refills: each key starts with
// capacity tokens and every Take spends one.
type memBucket struct {
    mu       sync.Mutex
    capacity int64
    wait     time.Duration
    used     map[string]int64
}

func newMemBucket(capacity int64, wait time.Duration) *memBucket {
    return &memBucket{capacity: capacity, wait: wait, used: map[string]int64{}}
}

func (b *memBucket) Take(_ context.Context, key string) (verdict, error) {
    b.mu.Lock()
    defer b.mu.Unlock()
    if b.used[key] >= b.capacity {
        return verdict{Allowed: false, RetryAfter: b.wait}, nil
    }
    b.used[key]++
    return verdict{Allowed: true, Remaining: b.capacity - b.used[key]}, nil
}

func TestLimit_BlocksAfterCapacity(t *testing.T) {
    cfg := config.RateLimitConfig{Enabled: true, Prefix: "rl", Capacity: 3}
    e := newLimited(limit(cfg, newMemBucket(3, 1500*time.Millisecond), discard))

    for i := 2; i >= 0; i-- {
        rec := do(e, "/reservation?userId=u1")
        require.Equal(t, http.StatusOK, rec.Code)
        assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
        assert.Equal(t, strconv.Itoa(i), rec.Header().Get("X-RateLimit-Remaining"))
    }

    rec := do(e, "/reservation?userId=u1")
    require.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.Equal(t, "2", rec.Header().Get("Retry-After"))
    assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
    assert.JSONEq(t, `{"error":"too_many_requests","message":"rate limit exceeded","retry_after":2}`, rec.Body.String())

    // other users and other routes have their own buckets
    assert.Equal(t, http.StatusOK, do(e, "/reservation?userId=u2").Code)
    assert.Equal(t, http.StatusOK, do(e, "/reservationAll?userId=u1").Code)
}

type brokenBucket struct{}

func (brokenBucket) Take(context.Context, string) (verdict, error) {
    return verdict{}, assert.AnError
}

func TestLimit_FailsOpen(t *testing.T) {
    var buf bytes.Buffer
    logger := slog.New(slog.NewTextHandler(&buf, nil))
    e := newLimited(limit(config.RateLimitConfig{Capacity: 1}, brokenBucket{}, logger))

    for i := 0; i < 3; i++ {
        rec := do(e, "/reservation")
        assert.Equal(t, http.StatusOK, rec.Code)
        assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
    }
    assert.Contains(t, buf.String(), "ratelimit: bucket unavailable")
}

func TestNewTokenBucket_PassThrough(t *testing.T) {
    tests := []struct {
        name string
        cfg  config.RateLimitConfig
        rdb  *redis.Client
    }{
        {"disabled", config.RateLimitConfig{Enabled: false}, redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})},
        {"no redis", config.RateLimitConfig{Enabled: true, Capacity: 1}, nil},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            e := newLimited(NewTokenBucket(tt.cfg, tt.rdb, discard))
            for i := 0; i < 3; i++ {
                rec := do(e, "/reservation")
                assert.Equal(t, http.StatusOK, rec.Code)
                assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
            }
        })
    }
}

func TestNewTokenBucket_UnreachableRedisFailsOpen(t *testing.T) {
    rdb := redis.NewClient(&redis.Options{
        Addr:        "127.0.0.1:1",
        DialTimeout: 50 * time.Millisecond,
        MaxRetries:  -1,
    })
    t.Cleanup(func() { _ = rdb.Close() })
    cfg := config.RateLimitConfig{Enabled: true, Prefix: "rl", Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute}

    e := newLimited(NewTokenBucket(cfg, rdb, discard))
    assert.Equal(t, http.StatusOK, do(e, "/reservation").Code)
}

func TestDecodeVerdict(t *testing.T) {
    v, err := decodeVerdict([]int64{1, 4, 0})
    require.NoError(t, err)
    assert.Equal(t, verdict{Allowed: true, Remaining: 4}, v)

    v, err = decodeVerdict([]int64{0, 0, 250})
    require.NoError(t, err)
    assert.Equal(t, verdict{Allowed: false, RetryAfter: 250 * time.Millisecond}, v)

    v, err = decodeVerdict([]int64{0, 0, -5})
    require.NoError(t, err)
    assert.Zero(t, v.RetryAfter)

    _, err = decodeVerdict([]int64{1})
    assert.Error(t, err)
}

func TestRateKey(t *testing.T) {
    e := echo.New()

    req := httptest.NewRequest(http.MethodGet, "/reservation?userId=u1", nil)
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/reservation")
    assert.Equal(t, "rl:user:u1:/reservation", rateKey("rl", c))

    req = httptest.NewRequest(http.MethodGet, "/reservation?userId=%20", nil)
    req.RemoteAddr = "10.0.0.1:1234"
    c = e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/reservation")
    assert.Equal(t, "rl:ip:10.0.0.1:/reservation", rateKey("rl", c))
}

func TestRequestID(t *testing.T) {
    var buf bytes.Buffer
    logger := slog.New(slog.NewJSONHandler(&buf, nil))

    e := echo.New()
    e.Use(RequestID(logger))
    e.GET("/", func(c echo.Context) error {
        return c.String(http.StatusOK, c.Get("request_id").(string))
    })

    rec := do(e, "/")
    require.Equal(t, http.StatusOK, rec.Code)
    generated := rec.Header().Get(HeaderXRequestID)
    assert.Len(t, generated, 36)
    assert.Equal(t, generated, rec.Body.String())

    req := httptest.NewRequest(http.MethodGet, "/", nil)
    req.Header.Set(HeaderXRequestID, "abc-123")
    rec = httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    assert.Equal(t, "abc-123", rec.Header().Get(HeaderXRequestID))
    assert.Equal(t, "abc-123", rec.Body.String())
}
