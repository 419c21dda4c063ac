package scheduler

import (
	"context"
	"errors"

	obscontext "github.com/smallbiznis/bizplannaija/internal/observability/context"
	"go.uber.org/zap"
)

// ExpirySweepJob pages through users on a paid plan and applies expiration
// to each. Failures for one user do not stop the sweep.
func (s *Scheduler) ExpirySweepJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	ctx = obscontext.WithTrigger(ctx, "sweep")

	var (
		jobErr error
		after  string
	)
	for {
		if err := ctx.Err(); err != nil {
			return errors.Join(jobErr, err)
		}

		users, err := s.subscriptionSvc.ListPaid(ctx, after, s.cfg.BatchSize)
		if err != nil {
			return errors.Join(jobErr, err)
		}
		if len(users) == 0 {
			return jobErr
		}
		run.AddProcessed(len(users))

		for _, user := range users {
			result, err := s.subscriptionSvc.ApplyExpiration(ctx, user.ID)
			if err != nil {
				run.IncError()
				jobErr = errors.Join(jobErr, err)
				s.logger(ctx).Warn("expiry sweep failed for user", zap.String("user_id", user.ID), zap.Error(err))
				continue
			}
			if result.Downgraded {
				run.AddChanged(1)
			}
		}

		after = users[len(users)-1].ID
		if len(users) < s.cfg.BatchSize {
			return jobErr
		}
	}
}
