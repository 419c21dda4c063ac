package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	activitydomain "github.com/smallbiznis/bizplannaija/internal/activity/domain"
	"github.com/smallbiznis/bizplannaija/internal/clock"
	"github.com/smallbiznis/bizplannaija/internal/config"
	"github.com/smallbiznis/bizplannaija/internal/entitlement"
	obscontext "github.com/smallbiznis/bizplannaija/internal/observability/context"
	"github.com/smallbiznis/bizplannaija/internal/observability/metrics"
	"github.com/smallbiznis/bizplannaija/internal/pricing"
	"github.com/smallbiznis/bizplannaija/internal/ratelimit"
	subscriptiondomain "github.com/smallbiznis/bizplannaija/internal/subscription/domain"
	"github.com/smallbiznis/bizplannaija/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const downgradeLockPrefix = "subscription:downgrade:"

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Config      config.Config
	Repo        subscriptiondomain.Repository
	Evaluator   *entitlement.Evaluator
	ActivitySvc activitydomain.Service
	Metrics     *metrics.Metrics `optional:"true"`
	Lock        ratelimit.Lock   `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	repo        subscriptiondomain.Repository
	evaluator   *entitlement.Evaluator
	activitySvc activitydomain.Service
	metrics     *metrics.Metrics
	lock        ratelimit.Lock
	lockTTL     time.Duration
}

func NewService(p Params) subscriptiondomain.Service {
	lockTTL := p.Config.Entitlement.DowngradeLockTTL
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("subscription.service"),
		clock:       p.Clock,
		repo:        p.Repo,
		evaluator:   p.Evaluator,
		activitySvc: p.ActivitySvc,
		metrics:     p.Metrics,
		lock:        p.Lock,
		lockTTL:     lockTTL,
	}
}

// GetState returns the stored state, creating a free row on first read.
func (s *Service) GetState(ctx context.Context, userID string) (*subscriptiondomain.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, subscriptiondomain.ErrInvalidUser
	}

	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	now := s.clock.Now()
	free := string(pricing.PlanFree)
	user = &subscriptiondomain.User{
		ID:        userID,
		Plan:      &free,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, user); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("create user: %w", err)
		}
		// A concurrent first read created the row.
		existing, findErr := s.repo.FindByID(ctx, s.db, userID)
		if findErr != nil {
			return nil, fmt.Errorf("find user: %w", findErr)
		}
		if existing == nil {
			return nil, subscriptiondomain.ErrUserNotFound
		}
		return existing, nil
	}
	s.log.Debug("created free subscription state", zap.String("user_id", userID))
	return user, nil
}

// Entitlement derives the user's entitlement without writing anything
// beyond the implicit first-read row.
func (s *Service) Entitlement(ctx context.Context, userID string) (entitlement.Entitlement, error) {
	user, err := s.GetState(ctx, userID)
	if err != nil {
		return entitlement.Entitlement{}, err
	}
	ent := s.evaluator.Derive(user.Record(), s.clock.Now())
	s.metrics.RecordEntitlementCheck(ctx, string(ent.CurrentPlan()), outcome(ent))
	return ent, nil
}

// ApplyExpiration persists the downgrade of an expired paid plan. Only the
// caller whose conditional reset changes the row records plan_expired.
func (s *Service) ApplyExpiration(ctx context.Context, userID string) (subscriptiondomain.ExpirationResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return subscriptiondomain.ExpirationResult{}, subscriptiondomain.ErrInvalidUser
	}

	var result subscriptiondomain.ExpirationResult
	err := ratelimit.WithLock(ctx, s.lock, downgradeLockPrefix+userID, s.lockTTL, func(ctx context.Context) error {
		var err error
		result, err = s.applyExpiration(ctx, userID)
		return err
	})
	if errors.Is(err, ratelimit.ErrLockNotAcquired) {
		// Another replica is writing the downgrade right now.
		ent, entErr := s.Entitlement(ctx, userID)
		return subscriptiondomain.ExpirationResult{Entitlement: ent}, entErr
	}
	if err != nil {
		return subscriptiondomain.ExpirationResult{}, err
	}
	return result, nil
}

func (s *Service) applyExpiration(ctx context.Context, userID string) (subscriptiondomain.ExpirationResult, error) {
	user, err := s.GetState(ctx, userID)
	if err != nil {
		return subscriptiondomain.ExpirationResult{}, err
	}

	now := s.clock.Now()
	ent := s.evaluator.Derive(user.Record(), now)
	if !ent.Expired {
		return subscriptiondomain.ExpirationResult{Entitlement: ent}, nil
	}

	expected := subscriptiondomain.PlanFields{
		Plan:          deref(user.Plan),
		BillingCycle:  user.BillingCycle,
		PlanUpdatedAt: user.PlanUpdatedAt,
	}
	rows, err := s.repo.ResetExpired(ctx, s.db, user.ID, expected, now)
	if err != nil {
		s.log.Warn("failed to downgrade expired plan",
			zap.String("user_id", user.ID),
			zap.String("plan", string(ent.StoredPlan)),
			zap.Error(err),
		)
		return subscriptiondomain.ExpirationResult{}, fmt.Errorf("reset expired plan: %w", err)
	}

	if rows == 0 {
		// Someone else reset or changed the plan since we read it.
		current, err := s.GetState(ctx, userID)
		if err != nil {
			return subscriptiondomain.ExpirationResult{}, err
		}
		return subscriptiondomain.ExpirationResult{Entitlement: s.evaluator.Derive(current.Record(), now)}, nil
	}

	s.log.Info("downgraded expired plan",
		zap.String("user_id", user.ID),
		zap.String("previous_plan", string(ent.StoredPlan)),
	)
	trigger := obscontext.TriggerFromContext(ctx)
	if trigger == "" {
		trigger = "read"
	}
	s.metrics.RecordPlanDowngrade(ctx, string(ent.StoredPlan), trigger)

	details := map[string]any{
		"trigger":         trigger,
		"previous_plan":   string(ent.StoredPlan),
		"billing_cycle":   deref(user.BillingCycle),
		"plan_updated_at": deref(user.PlanUpdatedAt),
	}
	if ent.ExpiresAt != nil {
		details["expired_at"] = entitlement.FormatTimestamp(*ent.ExpiresAt)
	}
	if _, err := s.activitySvc.Record(ctx, activitydomain.RecordRequest{
		UserID:     user.ID,
		Action:     activitydomain.ActionPlanExpired,
		EntityType: activitydomain.EntityTypeUser,
		EntityID:   user.ID,
		Details:    details,
	}); err != nil {
		// The reset is committed; the missing entry is only logged.
		s.log.Error("failed to record plan expiry", zap.String("user_id", user.ID), zap.Error(err))
	}

	return subscriptiondomain.ExpirationResult{
		Downgraded:   true,
		PreviousPlan: ent.StoredPlan,
		Entitlement:  s.evaluator.Derive(entitlement.Record{Plan: string(pricing.PlanFree)}, now),
		Notice:       ent.DowngradeNotice(),
	}, nil
}

// Resolve is the request-path entitlement lookup: it derives, persists a
// pending downgrade, and falls back to free when the store is unavailable.
func (s *Service) Resolve(ctx context.Context, userID string) (subscriptiondomain.Resolution, error) {
	ent, err := s.Entitlement(ctx, userID)
	if err != nil {
		if errors.Is(err, subscriptiondomain.ErrInvalidUser) {
			return subscriptiondomain.Resolution{}, err
		}
		s.log.Warn("entitlement lookup failed, serving free plan", zap.String("user_id", userID), zap.Error(err))
		return subscriptiondomain.Resolution{
			Entitlement: s.evaluator.Derive(entitlement.Record{}, s.clock.Now()),
			Degraded:    true,
		}, nil
	}
	if !ent.Expired {
		return subscriptiondomain.Resolution{Entitlement: ent}, nil
	}

	result, err := s.ApplyExpiration(ctx, userID)
	if err != nil {
		s.log.Warn("downgrade not persisted", zap.String("user_id", userID), zap.Error(err))
		// ent already reports the free plan; the write is retried on the next read.
		return subscriptiondomain.Resolution{Entitlement: ent, Degraded: true}, nil
	}
	return subscriptiondomain.Resolution{
		Entitlement: result.Entitlement,
		Downgraded:  result.Downgraded,
		Notice:      result.Notice,
	}, nil
}

func (s *Service) UpdatePlan(ctx context.Context, userID string, req subscriptiondomain.PlanUpdate) (*subscriptiondomain.User, error) {
	plan := pricing.Plan(strings.ToLower(strings.TrimSpace(req.Plan)))
	if !plan.Valid() {
		return nil, subscriptiondomain.ErrInvalidPlan
	}

	now := s.clock.Now()
	fields := subscriptiondomain.PlanFields{Plan: string(plan)}
	if plan.IsPaid() {
		if raw := trimmed(req.BillingCycle); raw != "" {
			cycle, ok := entitlement.ParseBillingCycle(raw)
			if !ok {
				return nil, subscriptiondomain.ErrInvalidBillingCycle
			}
			value := string(cycle)
			fields.BillingCycle = &value
		}

		stamp := now
		if raw := trimmed(req.PlanUpdatedAt); raw != "" {
			parsed, ok := entitlement.ParseTimestamp(raw)
			if !ok {
				return nil, subscriptiondomain.ErrInvalidPlanUpdatedAt
			}
			stamp = parsed
		}
		value := entitlement.FormatTimestamp(stamp)
		fields.PlanUpdatedAt = &value
	}

	previous, err := s.GetState(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.UpdatePlan(ctx, s.db, previous.ID, fields, now); err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}

	s.metrics.RecordPlanUpdate(ctx, string(plan))
	if _, err := s.activitySvc.Record(ctx, activitydomain.RecordRequest{
		UserID:     previous.ID,
		Action:     activitydomain.ActionPlanUpdated,
		EntityType: activitydomain.EntityTypeUser,
		EntityID:   previous.ID,
		Details: map[string]any{
			"previous_plan":   deref(previous.Plan),
			"plan":            fields.Plan,
			"billing_cycle":   deref(fields.BillingCycle),
			"plan_updated_at": deref(fields.PlanUpdatedAt),
		},
	}); err != nil {
		s.log.Warn("failed to record plan update", zap.String("user_id", previous.ID), zap.Error(err))
	}

	updated, err := s.repo.FindByID(ctx, s.db, previous.ID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if updated == nil {
		return nil, subscriptiondomain.ErrUserNotFound
	}
	return updated, nil
}

func (s *Service) ListPaid(ctx context.Context, afterID string, limit int) ([]subscriptiondomain.User, error) {
	return s.repo.ListPaid(ctx, s.db, afterID, limit)
}

func outcome(ent entitlement.Entitlement) string {
	switch {
	case ent.Expired:
		return "expired"
	case ent.StoredPlan == pricing.PlanFree:
		return "free"
	default:
		return "active"
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
