package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/bizplannaija/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalLimiter_BurstThenDeny(t *testing.T) {
	l := NewLocalLimiter(1, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "client-a")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
		assert.Equal(t, 3, res.Limit)
	}

	res, err := l.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	res, err = l.Allow(ctx, "client-b")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "keys are independent")
}

func TestNewLimiter_Disabled(t *testing.T) {
	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: false, RPS: 1, Burst: 1}}
	assert.Nil(t, NewLimiter(cfg, nil, zap.NewNop()))

	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0, Burst: 1}
	assert.Nil(t, NewLimiter(cfg, nil, zap.NewNop()))

	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 5, Burst: 5}
	assert.IsType(t, &LocalLimiter{}, NewLimiter(cfg, nil, zap.NewNop()))
}

type fakeLock struct {
	held     map[string]string
	released []string
	fail     error
}

func (f *fakeLock) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	if f.fail != nil {
		return "", false, f.fail
	}
	if _, ok := f.held[key]; ok {
		return "", false, nil
	}
	f.held[key] = "tok"
	return "tok", true, nil
}

func (f *fakeLock) Release(_ context.Context, key, token string) error {
	if f.held[key] == token {
		delete(f.held, key)
		f.released = append(f.released, key)
	}
	return nil
}

func TestWithLock(t *testing.T) {
	ctx := context.Background()

	ran := false
	require.NoError(t, WithLock(ctx, nil, "k", time.Second, func(context.Context) error {
		ran = true
		return nil
	}))
	assert.True(t, ran, "nil lock runs unguarded")

	lock := &fakeLock{held: map[string]string{}}
	require.NoError(t, WithLock(ctx, lock, "k", time.Second, func(context.Context) error { return nil }))
	assert.Equal(t, []string{"k"}, lock.released)

	lock.held["busy"] = "other"
	err := WithLock(ctx, lock, "busy", time.Second, func(context.Context) error {
		t.Fatal("must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	lock.fail = errors.New("redis down")
	err = WithLock(ctx, lock, "k2", time.Second, func(context.Context) error { return nil })
	assert.EqualError(t, err, "redis down")
}
