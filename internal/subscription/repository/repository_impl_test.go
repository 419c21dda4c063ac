package repository

import (
	"context"
	"testing"
	"time"

	subscriptiondomain "github.com/smallbiznis/bizplannaija/internal/subscription/domain"
	"github.com/smallbiznis/bizplannaija/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetExpired_OnlyMatchingRowChanges(t *testing.T) {
	db := testutil.NewDB(t, &subscriptiondomain.User{})
	r := Provide()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	plan, cycle, stamp := "basic", "monthly", "2025-01-01T00:00:00Z"
	require.NoError(t, r.Insert(ctx, db, &subscriptiondomain.User{
		ID: "u1", Plan: &plan, BillingCycle: &cycle, PlanUpdatedAt: &stamp,
		CreatedAt: now, UpdatedAt: now,
	}))

	stale := subscriptiondomain.PlanFields{Plan: "basic", BillingCycle: &cycle, PlanUpdatedAt: ptr("2024-12-01T00:00:00Z")}
	rows, err := r.ResetExpired(ctx, db, "u1", stale, now)
	require.NoError(t, err)
	assert.Zero(t, rows, "a renewed plan must not be reset")

	expected := subscriptiondomain.PlanFields{Plan: "basic", BillingCycle: &cycle, PlanUpdatedAt: &stamp}
	rows, err = r.ResetExpired(ctx, db, "u1", expected, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	rows, err = r.ResetExpired(ctx, db, "u1", expected, now)
	require.NoError(t, err)
	assert.Zero(t, rows, "second reset is a no-op")

	user, err := r.FindByID(ctx, db, "u1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "free", *user.Plan)
	assert.Nil(t, user.BillingCycle)
	assert.Nil(t, user.PlanUpdatedAt)
}

func TestFindByID_Missing(t *testing.T) {
	db := testutil.NewDB(t, &subscriptiondomain.User{})
	user, err := Provide().FindByID(context.Background(), db, "nobody")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUpdatePlan_ClearsFields(t *testing.T) {
	db := testutil.NewDB(t, &subscriptiondomain.User{})
	r := Provide()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, r.Insert(ctx, db, &subscriptiondomain.User{ID: "u1", Plan: ptr("premium"), BillingCycle: ptr("yearly"), CreatedAt: now, UpdatedAt: now}))

	rows, err := r.UpdatePlan(ctx, db, "u1", subscriptiondomain.PlanFields{Plan: "free"}, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	user, err := r.FindByID(ctx, db, "u1")
	require.NoError(t, err)
	assert.Equal(t, "free", *user.Plan)
	assert.Nil(t, user.BillingCycle)
}

func ptr(s string) *string { return &s }
