package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/bizplannaija/internal/entitlement"
	"github.com/smallbiznis/bizplannaija/internal/pricing"
)

// PlanUpdate is the body of an admin or checkout plan change.
type PlanUpdate struct {
	Plan          string  `json:"plan" validate:"required"`
	BillingCycle  *string `json:"billingCycle"`
	PlanUpdatedAt *string `json:"planUpdatedAt"`
}

type ExpirationResult struct {
	// Downgraded is true only for the call that performed the reset.
	Downgraded   bool
	PreviousPlan pricing.Plan
	Entitlement  entitlement.Entitlement
	Notice       string
}

// Resolution is the entitlement a request should be served with.
type Resolution struct {
	Entitlement entitlement.Entitlement
	Downgraded  bool
	Notice      string
	// Degraded is set when a store failure forced a fallback answer.
	Degraded bool
}

type Service interface {
	GetState(ctx context.Context, userID string) (*User, error)
	Entitlement(ctx context.Context, userID string) (entitlement.Entitlement, error)
	ApplyExpiration(ctx context.Context, userID string) (ExpirationResult, error)
	Resolve(ctx context.Context, userID string) (Resolution, error)
	UpdatePlan(ctx context.Context, userID string, req PlanUpdate) (*User, error)
	ListPaid(ctx context.Context, afterID string, limit int) ([]User, error)
}

var (
	ErrInvalidUser          = errors.New("invalid_user")
	ErrUserNotFound         = errors.New("user_not_found")
	ErrInvalidPlan          = errors.New("invalid_plan")
	ErrInvalidBillingCycle  = errors.New("invalid_billing_cycle")
	ErrInvalidPlanUpdatedAt = errors.New("invalid_plan_updated_at")
)
