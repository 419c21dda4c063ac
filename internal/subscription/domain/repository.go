package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// PlanFields are the three columns that make up a subscription.
type PlanFields struct {
	Plan          string
	BillingCycle  *string
	PlanUpdatedAt *string
}

type Repository interface {
	// FindByID returns nil, nil when the user has no row yet.
	FindByID(ctx context.Context, db *gorm.DB, id string) (*User, error)
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	UpdatePlan(ctx context.Context, db *gorm.DB, id string, fields PlanFields, now time.Time) (int64, error)
	// ResetExpired sets the row to free only while it still holds expected.
	// It returns the number of rows changed, so exactly one caller wins.
	ResetExpired(ctx context.Context, db *gorm.DB, id string, expected PlanFields, now time.Time) (int64, error)
	ListPaid(ctx context.Context, db *gorm.DB, afterID string, limit int) ([]User, error)
}
