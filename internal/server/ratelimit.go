package server

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/sitescope/sitescope/config"
)

// Limiter is a fixed-window request counter keyed by client. Allow
// reports whether the key is still under its window budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// NewLimiter builds a redis-backed limiter when an address is configured
// and reachable, otherwise a process-local one. The API stays usable
// either way; redis only makes the window shared across replicas.
func NewLimiter(cfg config.RateLimitConfig) Limiter {
	logger := log.New(log.Writer(), "[RATELIMIT] ", log.LstdFlags)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Printf("redis unreachable (%s), using in-memory window: %v", cfg.RedisAddr, err)
		} else {
			return &redisLimiter{rdb: rdb, requests: cfg.Requests, window: cfg.Window}
		}
	}
	return newMemoryLimiter(cfg.Requests, cfg.Window)
}

type redisLimiter struct {
	rdb      *redis.Client
	requests int
	window   time.Duration
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	rkey := "ratelimit:" + key
	count, err := l.rdb.Incr(ctx, rkey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, rkey, l.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(l.requests), nil
}

type memoryLimiter struct {
	mu       sync.Mutex
	counts   map[string]int
	starts   map[string]time.Time
	requests int
	window   time.Duration
}

func newMemoryLimiter(requests int, window time.Duration) *memoryLimiter {
	return &memoryLimiter{
		counts:   make(map[string]int),
		starts:   make(map[string]time.Time),
		requests: requests,
		window:   window,
	}
}

func (l *memoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if start, ok := l.starts[key]; !ok || now.Sub(start) >= l.window {
		l.starts[key] = now
		l.counts[key] = 0
	}
	l.counts[key]++
	return l.counts[key] <= l.requests, nil
}

// rateLimitMiddleware rejects over-budget clients with 429. Limiter
// errors fail open: a broken redis must not take the API down.
func rateLimitMiddleware(limiter Limiter, logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, err := limiter.Allow(c.Request().Context(), c.RealIP())
			if err != nil {
				logger.Printf("rate limit check failed for %s: %v", c.RealIP(), err)
				return next(c)
			}
			if !ok {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
