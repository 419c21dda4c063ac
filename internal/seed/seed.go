// Package seed bootstraps accounts that must exist before the first request,
// such as staff or QA users that should start on a paid plan.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/bizplannaija/internal/pricing"
	subscriptiondomain "github.com/smallbiznis/bizplannaija/internal/subscription/domain"
	"gorm.io/gorm"
)

var ErrInvalidAccount = errors.New("seed: invalid account")

// Account is one seeded user. Paid accounts are created without billing
// fields, so they never expire until a real plan update replaces them.
type Account struct {
	UserID string
	Plan   pricing.Plan
}

// ParseAccounts reads "id:plan" pairs separated by commas. A missing plan
// means free.
func ParseAccounts(raw string) ([]Account, error) {
	var out []Account
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, planRaw, _ := strings.Cut(part, ":")
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAccount, part)
		}
		plan := pricing.PlanFree
		if planRaw = strings.ToLower(strings.TrimSpace(planRaw)); planRaw != "" {
			plan = pricing.Plan(planRaw)
			if !plan.Valid() {
				return nil, fmt.Errorf("%w: unknown plan %q", ErrInvalidAccount, planRaw)
			}
		}
		out = append(out, Account{UserID: id, Plan: plan})
	}
	return out, nil
}

// EnsureUsers creates missing accounts. Existing rows are never modified.
func EnsureUsers(ctx context.Context, db *gorm.DB, accounts []Account, now time.Time) (int, error) {
	if db == nil {
		return 0, errors.New("seed database handle is required")
	}
	if len(accounts) == 0 {
		return 0, nil
	}

	created := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, account := range accounts {
			ok, err := ensureUserTx(ctx, tx, account, now)
			if err != nil {
				return err
			}
			if ok {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func ensureUserTx(ctx context.Context, tx *gorm.DB, account Account, now time.Time) (bool, error) {
	var count int64
	if err := tx.WithContext(ctx).
		Model(&subscriptiondomain.User{}).
		Where("id = ?", account.UserID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	plan := string(account.Plan)
	user := subscriptiondomain.User{
		ID:        account.UserID,
		Plan:      &plan,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return false, err
	}
	return true, nil
}
