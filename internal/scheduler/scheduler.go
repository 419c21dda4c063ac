// Package scheduler runs background maintenance jobs. The only job today is
// the expiry sweep, which persists downgrades for paid plans that lapsed
// without being read.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizplannaija/internal/clock"
	"github.com/smallbiznis/bizplannaija/internal/observability/metrics"
	"github.com/smallbiznis/bizplannaija/internal/ratelimit"
	subscriptiondomain "github.com/smallbiznis/bizplannaija/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

const expirySweepLockKey = "scheduler:expiry_sweep"

type Params struct {
	fx.In

	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	SubscriptionSvc subscriptiondomain.Service
	Metrics         *metrics.Metrics `optional:"true"`
	Lock            ratelimit.Lock   `optional:"true"`
	Config          Config           `optional:"true"`
}

type Scheduler struct {
	log             *zap.Logger
	cfg             Config
	genID           *snowflake.Node
	clock           clock.Clock
	subscriptionSvc subscriptiondomain.Service
	metrics         *metrics.Metrics
	lock            ratelimit.Lock
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.SubscriptionSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:             p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:             p.Config.withDefaults(),
		genID:           p.GenID,
		clock:           p.Clock,
		subscriptionSvc: p.SubscriptionSvc,
		metrics:         p.Metrics,
		lock:            p.Lock,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.newJobRun(ctx, name, batchSize)
	err := fn(ctx)
	elapsed := s.clock.Now().Sub(start)
	s.logJobFinish(ctx, run, err)

	if err == nil {
		s.metrics.RecordSweepRun(ctx, "ok", elapsed)
		return nil
	}

	// A timed out run resumes on the next tick.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.RecordSweepRun(ctx, "timeout", elapsed)
		s.logger(ctx).Warn("job timed out", zap.String("job", name), zap.Duration("timeout", timeout), zap.Error(err))
		return nil
	}
	s.metrics.RecordSweepRun(ctx, "error", elapsed)
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs one sweep. With a shared lock only one replica sweeps per
// tick; the others skip.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	err := ratelimit.WithLock(ctx, s.lock, expirySweepLockKey, s.cfg.JobTimeout, func(ctx context.Context) error {
		return s.runJob(ctx, "expiry_sweep", s.cfg.BatchSize, s.cfg.JobTimeout, s.ExpirySweepJob)
	})
	if errors.Is(err, ratelimit.ErrLockNotAcquired) {
		s.log.Debug("expiry sweep held by another instance, skipping")
		return nil
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
