// Package domain holds the per-user subscription state.
package domain

import (
	"time"

	"github.com/smallbiznis/bizplannaija/internal/entitlement"
)

// User is the stored subscription state of one account. Plan fields are
// kept as raw strings so malformed values written by older clients are
// preserved and interpreted at read time.
type User struct {
	ID            string    `gorm:"primaryKey;type:varchar(128)" json:"id"`
	Email         string    `gorm:"type:varchar(320)" json:"email,omitempty"`
	DisplayName   string    `gorm:"type:varchar(255)" json:"display_name,omitempty"`
	Plan          *string   `gorm:"type:varchar(32)" json:"plan"`
	BillingCycle  *string   `gorm:"type:varchar(32)" json:"billing_cycle"`
	PlanUpdatedAt *string   `gorm:"type:varchar(64)" json:"plan_updated_at"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u User) Record() entitlement.Record {
	return entitlement.Record{
		Plan:          deref(u.Plan),
		BillingCycle:  deref(u.BillingCycle),
		PlanUpdatedAt: deref(u.PlanUpdatedAt),
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
