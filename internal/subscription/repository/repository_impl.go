package repository

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/bizplannaija/internal/pricing"
	subscriptiondomain "github.com/smallbiznis/bizplannaija/internal/subscription/domain"
	"gorm.io/gorm"
)

const userColumns = `id, email, display_name, plan, billing_cycle, plan_updated_at, created_at, updated_at`

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*subscriptiondomain.User, error) {
	var user subscriptiondomain.User
	res := db.WithContext(ctx).Raw(
		`SELECT `+userColumns+` FROM users WHERE id = ?`,
		id,
	).Scan(&user)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *subscriptiondomain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.DisplayName,
		user.Plan,
		user.BillingCycle,
		user.PlanUpdatedAt,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
}

func (r *repo) UpdatePlan(ctx context.Context, db *gorm.DB, id string, fields subscriptiondomain.PlanFields, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users SET plan = ?, billing_cycle = ?, plan_updated_at = ?, updated_at = ? WHERE id = ?`,
		fields.Plan,
		fields.BillingCycle,
		fields.PlanUpdatedAt,
		now,
		id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ResetExpired(ctx context.Context, db *gorm.DB, id string, expected subscriptiondomain.PlanFields, now time.Time) (int64, error) {
	var query strings.Builder
	query.WriteString(`UPDATE users SET plan = ?, billing_cycle = NULL, plan_updated_at = NULL, updated_at = ? WHERE id = ? AND plan = ?`)
	args := []any{string(pricing.PlanFree), now, id, expected.Plan}

	for _, col := range []struct {
		name  string
		value *string
	}{
		{"billing_cycle", expected.BillingCycle},
		{"plan_updated_at", expected.PlanUpdatedAt},
	} {
		if col.value == nil {
			query.WriteString(" AND " + col.name + " IS NULL")
			continue
		}
		query.WriteString(" AND " + col.name + " = ?")
		args = append(args, *col.value)
	}

	res := db.WithContext(ctx).Exec(query.String(), args...)
	return res.RowsAffected, res.Error
}

func (r *repo) ListPaid(ctx context.Context, db *gorm.DB, afterID string, limit int) ([]subscriptiondomain.User, error) {
	if limit <= 0 {
		limit = 100
	}
	var users []subscriptiondomain.User
	err := db.WithContext(ctx).Raw(
		`SELECT `+userColumns+` FROM users
		WHERE plan IS NOT NULL AND LOWER(plan) <> ? AND id > ?
		ORDER BY id ASC
		LIMIT ?`,
		string(pricing.PlanFree),
		afterID,
		limit,
	).Scan(&users).Error
	return users, err
}
