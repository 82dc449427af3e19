// Package ratelimit throttles public endpoints with a token bucket kept in
// Redis, so every server instance shares the same budget per client.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abrezinsky/chanceraffle/internal/logger"
)

// bucketScript refills continuously at rate tokens per second and takes one
// token if available. Returns {allowed, remaining, retry_after_ms}.
var bucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local rate = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
	tokens = capacity
	ts = now_ms
end

local elapsed = math.max(0, now_ms - ts)
tokens = math.min(capacity, tokens + elapsed * rate / 1000)

local allowed = 0
local retry_ms = 0
if tokens >= 1 then
	allowed = 1
	tokens = tokens - 1
else
	retry_ms = math.ceil((1 - tokens) * 1000 / rate)
end

redis.call('HSET', key, 'tokens', tokens, 'ts', now_ms)
redis.call('EXPIRE', key, ttl)
return {allowed, math.floor(tokens), retry_ms}
`)

// Config sizes the bucket
type Config struct {
	Capacity        int
	RefillPerSecond float64
	Prefix          string
}

// Result is the outcome of one Allow call
type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter applies the bucket. A nil *Limiter allows everything.
type Limiter struct {
	rdb redis.Scripter
	cfg Config
	ttl time.Duration
	log logger.Logger
	now func() time.Time
}

// New creates a Limiter. It returns nil when rdb is nil so callers can
// disable limiting by not configuring Redis.
func New(log logger.Logger, rdb redis.Scripter, cfg Config) *Limiter {
	if rdb == nil {
		return nil
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "ratelimit"
	}
	// Keep keys until a drained bucket would be full again
	ttl := time.Duration(float64(cfg.Capacity)/cfg.RefillPerSecond*float64(time.Second)) + time.Minute
	return &Limiter{rdb: rdb, cfg: cfg, ttl: ttl, log: log, now: time.Now}
}

// Allow takes a token from key's bucket
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	vals, err := bucketScript.Run(ctx, l.rdb, []string{l.cfg.Prefix + ":" + key},
		l.now().UnixMilli(), l.cfg.Capacity, l.cfg.RefillPerSecond, int64(l.ttl/time.Second)).Slice()
	if err != nil {
		return Result{}, err
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("unexpected rate limit reply: %v", vals)
	}
	return Result{
		Allowed:    asInt64(vals[0]) == 1,
		Remaining:  asInt64(vals[1]),
		RetryAfter: time.Duration(asInt64(vals[2])) * time.Millisecond,
	}, nil
}

// Middleware limits requests per client IP and route. Redis failures let
// the request through.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r) + ":" + r.Method + ":" + r.URL.Path
		res, err := l.Allow(r.Context(), key)
		if err != nil {
			l.log.Warn("Rate limiter unavailable", "key", key, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Capacity))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		if !res.Allowed {
			secs := int(math.Ceil(res.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintf(w, `{"code":"RATE_LIMITED","error":"Too many requests","retryable":true,"retry_after":%d}`, secs)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// NewClient connects to Redis and pings it. It returns nil if addr is empty
// or the server cannot be reached, which disables rate limiting.
func NewClient(ctx context.Context, log logger.Logger, addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unreachable, rate limiting disabled", "addr", addr, "error", err)
		client.Close()
		return nil
	}
	return client
}
