// Package ratelimit throttles the unauthenticated auth endpoints per client IP.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
	"github.com/yamdb/apiserver/config"
	"github.com/yamdb/apiserver/internal/logging"
)

const keyPrefix = "yamdb:ratelimit"

// Middleware builds the limiter selected by cfg.Backend. onLimit writes the
// response for throttled requests. The returned close func releases the
// backend's connections.
func Middleware(cfg config.RateLimitConfig, redisCfg config.RedisConfig, onLimit http.HandlerFunc) (func(http.Handler) http.Handler, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "off", "":
		return func(next http.Handler) http.Handler { return next }, noop, nil
	case "memory":
		return httprate.Limit(
			cfg.Requests,
			cfg.Window,
			httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
			httprate.WithLimitHandler(onLimit),
		), noop, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return NewRedisLimiter(client, cfg.Requests, cfg.Window).Handler(onLimit), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
	}
}

// Counter is the subset of redis.Cmdable used by RedisLimiter.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisLimiter is a fixed-window counter shared by every server instance.
type RedisLimiter struct {
	counter Counter
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewRedisLimiter(counter Counter, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		counter: counter,
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow increments the counter of key in the current window and reports
// whether the request fits in the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowStart := l.now().Truncate(l.window).Unix()
	redisKey := keyPrefix + ":" + key + ":" + strconv.FormatInt(windowStart, 10)

	count, err := l.counter.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.counter.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(l.limit), nil
}

// Handler returns middleware enforcing the limit per client IP and path.
// Requests are let through when Redis is unavailable.
func (l *RedisLimiter) Handler(onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, err := httprate.KeyByIP(r)
			if err != nil {
				ip = r.RemoteAddr
			}
			allowed, err := l.Allow(r.Context(), ip+":"+r.URL.Path)
			if err != nil {
				logging.Warn().Err(err).Msg("rate limit check failed")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
				onLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
