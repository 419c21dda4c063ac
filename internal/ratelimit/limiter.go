package ratelimit

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/bizplannaija/internal/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

func newResult(allowed bool, burst int, tokens, perSecond float64) Result {
	res := Result{Allowed: allowed, Limit: burst, Remaining: int(nonNegative(tokens))}
	if !allowed && perSecond > 0 {
		if needed := 1 - tokens; needed > 0 {
			res.RetryAfter = time.Duration(needed / perSecond * float64(time.Second))
		}
	}
	return res
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// NewLimiter returns nil when rate limiting is disabled. With redis it
// shares buckets across replicas; otherwise each process keeps its own.
func NewLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) Limiter {
	rl := cfg.RateLimit
	if !rl.Enabled || rl.RPS <= 0 || rl.Burst <= 0 {
		return nil
	}
	if client != nil {
		log.Info("rate limiting via redis", zap.Float64("rps", rl.RPS), zap.Int("burst", rl.Burst))
		return &redisLimiter{bucket: NewTokenBucket(client), rps: rl.RPS, burst: rl.Burst}
	}
	log.Info("rate limiting in process", zap.Float64("rps", rl.RPS), zap.Int("burst", rl.Burst))
	return NewLocalLimiter(rl.RPS, rl.Burst)
}

type redisLimiter struct {
	bucket *TokenBucket
	rps    float64
	burst  int
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	return l.bucket.Allow(ctx, "ratelimit:"+key, l.rps, l.burst)
}

// LocalLimiter keeps one token bucket per key; idle buckets are evicted.
type LocalLimiter struct {
	buckets *cache.Cache
	rps     float64
	burst   int
}

func NewLocalLimiter(rps float64, burst int) *LocalLimiter {
	return &LocalLimiter{
		buckets: cache.New(10*time.Minute, 20*time.Minute),
		rps:     rps,
		burst:   burst,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (Result, error) {
	lim := l.bucket(key)
	allowed := lim.Allow()
	return newResult(allowed, l.burst, lim.Tokens(), l.rps), nil
}

func (l *LocalLimiter) bucket(key string) *rate.Limiter {
	if v, ok := l.buckets.Get(key); ok {
		lim := v.(*rate.Limiter)
		l.buckets.Set(key, lim, cache.DefaultExpiration)
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(l.rps), l.burst)
	if err := l.buckets.Add(key, lim, cache.DefaultExpiration); err != nil {
		// Lost the race to another request for the same key.
		if v, ok := l.buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}
