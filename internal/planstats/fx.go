package planstats

import (
	"context"
	"time"

	"github.com/smallbiznis/bizplannaija/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("plan.stats",
	fx.Provide(NewCollector),
	fx.Provide(NewPusher),
	fx.Invoke(startWorker),
)

// Worker refreshes and pushes the plan gauges on an interval.
type Worker struct {
	db        *gorm.DB
	collector *Collector
	pusher    Pusher
	log       *zap.Logger
}

func NewWorker(db *gorm.DB, collector *Collector, pusher Pusher, log *zap.Logger) *Worker {
	return &Worker{db: db, collector: collector, pusher: pusher, log: log.Named("plan.stats")}
}

// RunOnce refreshes the gauges and pushes them.
func (w *Worker) RunOnce(ctx context.Context) error {
	if err := w.collector.Refresh(ctx, w.db); err != nil {
		return err
	}
	if w.pusher == nil {
		return nil
	}
	return w.pusher.Push(ctx, w.collector.Registry())
}

func (w *Worker) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.log.Warn("plan stats push failed", zap.Error(err))
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func startWorker(lc fx.Lifecycle, cfg config.Config, db *gorm.DB, collector *Collector, pusher Pusher, log *zap.Logger) {
	if pusher == nil {
		return
	}
	interval := cfg.PlanStats.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	worker := NewWorker(db, collector, pusher, log)

	var (
		cancel context.CancelFunc
		done   chan struct{}
	)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			done = make(chan struct{})
			go func() {
				defer close(done)
				worker.run(ctx, interval)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}
