package seed

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/bizplannaija/internal/pricing"
	subscriptiondomain "github.com/smallbiznis/bizplannaija/internal/subscription/domain"
	"github.com/smallbiznis/bizplannaija/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccounts(t *testing.T) {
	accounts, err := ParseAccounts(" staff-1:Premium, qa:basic ,guest,, ")
	require.NoError(t, err)
	assert.Equal(t, []Account{
		{UserID: "staff-1", Plan: pricing.PlanPremium},
		{UserID: "qa", Plan: pricing.PlanBasic},
		{UserID: "guest", Plan: pricing.PlanFree},
	}, accounts)

	accounts, err = ParseAccounts("")
	require.NoError(t, err)
	assert.Empty(t, accounts)

	_, err = ParseAccounts("x:gold")
	assert.ErrorIs(t, err, ErrInvalidAccount)

	_, err = ParseAccounts(":basic")
	assert.ErrorIs(t, err, ErrInvalidAccount)
}

func TestEnsureUsers_CreatesOnlyMissing(t *testing.T) {
	db := testutil.NewDB(t, &subscriptiondomain.User{})
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	basic := "basic"
	require.NoError(t, db.Create(&subscriptiondomain.User{ID: "qa", Plan: &basic, CreatedAt: now, UpdatedAt: now}).Error)

	created, err := EnsureUsers(ctx, db, []Account{
		{UserID: "staff-1", Plan: pricing.PlanPremium},
		{UserID: "qa", Plan: pricing.PlanFree},
	}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	var staff subscriptiondomain.User
	require.NoError(t, db.First(&staff, "id = ?", "staff-1").Error)
	require.NotNil(t, staff.Plan)
	assert.Equal(t, "premium", *staff.Plan)
	assert.Nil(t, staff.BillingCycle)
	assert.Nil(t, staff.PlanUpdatedAt)

	var qa subscriptiondomain.User
	require.NoError(t, db.First(&qa, "id = ?", "qa").Error)
	assert.Equal(t, "basic", *qa.Plan)

	created, err = EnsureUsers(ctx, db, []Account{{UserID: "staff-1", Plan: pricing.PlanPremium}}, now)
	require.NoError(t, err)
	assert.Zero(t, created)
}
