package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	activitydomain "github.com/smallbiznis/bizplannaija/internal/activity/domain"
	activityrepo "github.com/smallbiznis/bizplannaija/internal/activity/repository"
	activityservice "github.com/smallbiznis/bizplannaija/internal/activity/service"
	"github.com/smallbiznis/bizplannaija/internal/clock"
	"github.com/smallbiznis/bizplannaija/internal/config"
	"github.com/smallbiznis/bizplannaija/internal/entitlement"
	"github.com/smallbiznis/bizplannaija/internal/pricing"
	subscriptiondomain "github.com/smallbiznis/bizplannaija/internal/subscription/domain"
	"github.com/smallbiznis/bizplannaija/internal/subscription/repository"
	"github.com/smallbiznis/bizplannaija/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	clock    *clock.FakeClock
	repo     subscriptiondomain.Repository
	activity activitydomain.Service
	svc      subscriptiondomain.Service
}

func newFixture(t *testing.T, now time.Time, policy entitlement.Policy) *fixture {
	t.Helper()
	db := testutil.NewDB(t, &subscriptiondomain.User{}, &activitydomain.Entry{})
	fake := clock.NewFakeClock(now)
	activitySvc := activityservice.NewService(activityservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Clock: fake,
		Repo:  activityrepo.Provide(),
	})
	repo := repository.Provide()
	svc := NewService(Params{
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       fake,
		Config:      config.Config{},
		Repo:        repo,
		Evaluator:   entitlement.NewEvaluator(entitlement.StaticCatalog(pricing.DefaultCatalog()), policy),
		ActivitySvc: activitySvc,
	})
	return &fixture{db: db, clock: fake, repo: repo, activity: activitySvc, svc: svc}
}

func (f *fixture) seed(t *testing.T, id string, plan, cycle, updatedAt *string) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, f.repo.Insert(context.Background(), f.db, &subscriptiondomain.User{
		ID:            id,
		Plan:          plan,
		BillingCycle:  cycle,
		PlanUpdatedAt: updatedAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}))
}

func (f *fixture) entries(t *testing.T, userID, action string) []activitydomain.Entry {
	t.Helper()
	resp, err := f.activity.List(context.Background(), activitydomain.ListRequest{UserID: userID, Action: action})
	require.NoError(t, err)
	return resp.Entries
}

func ptr(s string) *string { return &s }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGetState_CreatesFreeRowOnFirstRead(t *testing.T) {
	f := newFixture(t, date(2025, 1, 1), entitlement.DefaultPolicy())
	ctx := context.Background()

	user, err := f.svc.GetState(ctx, "uid-new")
	require.NoError(t, err)
	require.NotNil(t, user.Plan)
	assert.Equal(t, "free", *user.Plan)
	assert.Nil(t, user.BillingCycle)

	stored, err := f.repo.FindByID(ctx, f.db, "uid-new")
	require.NoError(t, err)
	require.NotNil(t, stored)

	again, err := f.svc.GetState(ctx, "uid-new")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	_, err = f.svc.GetState(ctx, "  ")
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidUser)
}

func TestEntitlement_FreeDefault(t *testing.T) {
	f := newFixture(t, date(2025, 1, 1), entitlement.DefaultPolicy())
	f.seed(t, "u1", nil, nil, nil)

	ent, err := f.svc.Entitlement(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, pricing.PlanFree, ent.CurrentPlan())
	assert.True(t, ent.IsFeatureLocked(pricing.FeatureAIContentGenerator))
}

func TestEntitlement_ActivePremium(t *testing.T) {
	f := newFixture(t, date(2025, 6, 1), entitlement.DefaultPolicy())
	f.seed(t, "u1", ptr("premium"), ptr("yearly"), ptr("2025-01-01T00:00:00Z"))

	ent, err := f.svc.Entitlement(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, ent.Expired)
	assert.True(t, ent.CanAccess(pricing.FeatureLanguageAndLocation))
	assert.True(t, ent.Limit(pricing.LimitMaxLandingPages).IsUnlimited())
	require.NotNil(t, ent.NextRenewal)
	assert.Equal(t, date(2026, 1, 1), *ent.NextRenewal)
}

func TestEntitlement_IsPureRead(t *testing.T) {
	f := newFixture(t, date(2025, 3, 1), entitlement.DefaultPolicy())
	f.seed(t, "u1", ptr("basic"), ptr("monthly"), ptr("2025-01-01T00:00:00Z"))

	ent, err := f.svc.Entitlement(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ent.Expired)
	assert.Equal(t, pricing.PlanFree, ent.CurrentPlan())

	stored, err := f.repo.FindByID(context.Background(), f.db, "u1")
	require.NoError(t, err)
	assert.Equal(t, "basic", *stored.Plan, "derivation must not write")
	assert.Empty(t, f.entries(t, "u1", activitydomain.ActionPlanExpired))
}

func TestApplyExpiration_ExpiredBasicMonthly(t *testing.T) {
	f := newFixture(t, date(2025, 3, 1), entitlement.DefaultPolicy())
	f.seed(t, "u1", ptr("basic"), ptr("monthly"), ptr("2025-01-01T00:00:00Z"))
	ctx := context.Background()

	res, err := f.svc.ApplyExpiration(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, res.Downgraded)
	assert.Equal(t, pricing.PlanBasic, res.PreviousPlan)
	assert.Equal(t, pricing.PlanFree, res.Entitlement.CurrentPlan())
	assert.Contains(t, res.Notice, "Basic")

	stored, err := f.repo.FindByID(ctx, f.db, "u1")
	require.NoError(t, err)
	assert.Equal(t, "free", *stored.Plan)
	assert.Nil(t, stored.BillingCycle)
	assert.Nil(t, stored.PlanUpdatedAt)

	entries := f.entries(t, "u1", activitydomain.ActionPlanExpired)
	require.Len(t, entries, 1)
	assert.Equal(t, activitydomain.EntityTypeUser, entries[0].EntityType)
	assert.Equal(t, "basic", entries[0].Details["previous_plan"])

	// Idempotent on an already-downgraded record.
	res, err = f.svc.ApplyExpiration(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, res.Downgraded)
	assert.Len(t, f.entries(t, "u1", activitydomain.ActionPlanExpired), 1)
}

func TestApplyExpiration_ConcurrentCallersWriteOnce(t *testing.T) {
	f := newFixture(t, date(2025, 3, 1), entitlement.DefaultPolicy())
	f.seed(t, "u1", ptr("premium"), ptr("monthly"), ptr("2025-01-01T00:00:00Z"))

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		downgrades int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.ApplyExpiration(context.Background(), "u1")
			assert.NoError(t, err)
			if res.Downgraded {
				mu.Lock()
				downgrades++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, downgrades)
	assert.Len(t, f.entries(t, "u1", activitydomain.ActionPlanExpired), 1)
}

func TestApplyExpiration_MonthlyBoundary(t *testing.T) {
	cases := []struct {
		name    string
		now     time.Time
		expired bool
	}{
		{"one second before", date(2025, 2, 1).Add(-time.Second), false},
		{"exactly one month", date(2025, 2, 1), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.now, entitlement.DefaultPolicy())
			f.seed(t, "u1", ptr("basic"), ptr("monthly"), ptr("2025-01-01T00:00:00Z"))

			res, err := f.svc.ApplyExpiration(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, tc.expired, res.Downgraded)
		})
	}
}

func TestApplyExpiration_PaidWithoutBillingFieldsNeverExpires(t *testing.T) {
	f := newFixture(t, date(2030, 1, 1), entitlement.DefaultPolicy())
	f.seed(t, "u1", ptr("premium"), nil, nil)

	res, err := f.svc.ApplyExpiration(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, res.Downgraded)
	assert.Equal(t, pricing.PlanPremium, res.Entitlement.CurrentPlan())
}

func TestApplyExpiration_MalformedTimestampPolicy(t *testing.T) {
	open := newFixture(t, date(2025, 3, 1), entitlement.Policy{MalformedTimestamp: entitlement.FailOpen})
	open.seed(t, "u1", ptr("basic"), ptr("monthly"), ptr("not-a-date"))
	res, err := open.svc.ApplyExpiration(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, res.Downgraded)
	assert.Equal(t, pricing.PlanBasic, res.Entitlement.CurrentPlan())

	closed := newFixture(t, date(2025, 3, 1), entitlement.Policy{MalformedTimestamp: entitlement.FailClosed})
	closed.seed(t, "u1", ptr("basic"), ptr("monthly"), ptr("not-a-date"))
	res, err = closed.svc.ApplyExpiration(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, res.Downgraded)
}

func TestResolve_DowngradesAndReportsNotice(t *testing.T) {
	f := newFixture(t, date(2025, 3, 1), entitlement.DefaultPolicy())
	f.seed(t, "u1", ptr("basic"), ptr("monthly"), ptr("2025-01-01T00:00:00Z"))

	res, err := f.svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, res.Downgraded)
	assert.NotEmpty(t, res.Notice)
	assert.False(t, res.Degraded)
	assert.Equal(t, pricing.PlanFree, res.Entitlement.CurrentPlan())

	res, err = f.svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, res.Downgraded)
	assert.Empty(t, res.Notice)
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) FindByID(ctx context.Context, db *gorm.DB, id string) (*subscriptiondomain.User, error) {
	args := m.Called(ctx, db, id)
	user, _ := args.Get(0).(*subscriptiondomain.User)
	return user, args.Error(1)
}

func (m *mockRepo) Insert(ctx context.Context, db *gorm.DB, user *subscriptiondomain.User) error {
	return m.Called(ctx, db, user).Error(0)
}

func (m *mockRepo) UpdatePlan(ctx context.Context, db *gorm.DB, id string, fields subscriptiondomain.PlanFields, now time.Time) (int64, error) {
	args := m.Called(ctx, db, id, fields, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) ResetExpired(ctx context.Context, db *gorm.DB, id string, expected subscriptiondomain.PlanFields, now time.Time) (int64, error) {
	args := m.Called(ctx, db, id, expected, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) ListPaid(ctx context.Context, db *gorm.DB, afterID string, limit int) ([]subscriptiondomain.User, error) {
	args := m.Called(ctx, db, afterID, limit)
	users, _ := args.Get(0).([]subscriptiondomain.User)
	return users, args.Error(1)
}

func newMockService(repo *mockRepo, now time.Time) subscriptiondomain.Service {
	return NewService(Params{
		Log:       zap.NewNop(),
		Clock:     clock.NewFakeClock(now),
		Repo:      repo,
		Evaluator: entitlement.NewEvaluator(nil, entitlement.DefaultPolicy()),
	})
}

func TestResolve_StoreReadFailureServesFree(t *testing.T) {
	repo := &mockRepo{}
	repo.On("FindByID", mock.Anything, mock.Anything, "u1").Return(nil, errors.New("connection reset"))

	res, err := newMockService(repo, date(2025, 3, 1)).Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, pricing.PlanFree, res.Entitlement.CurrentPlan())
}

func TestResolve_DowngradeWriteFailureKeepsDerivedFree(t *testing.T) {
	user := &subscriptiondomain.User{
		ID:            "u1",
		Plan:          ptr("premium"),
		BillingCycle:  ptr("monthly"),
		PlanUpdatedAt: ptr("2025-01-01T00:00:00Z"),
	}
	repo := &mockRepo{}
	repo.On("FindByID", mock.Anything, mock.Anything, "u1").Return(user, nil)
	repo.On("ResetExpired", mock.Anything, mock.Anything, "u1", mock.Anything, mock.Anything).
		Return(int64(0), errors.New("write timeout"))

	res, err := newMockService(repo, date(2025, 3, 1)).Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.False(t, res.Downgraded)
	assert.True(t, res.Entitlement.Expired)
	assert.Equal(t, pricing.PlanFree, res.Entitlement.CurrentPlan())
	repo.AssertExpectations(t)
}

func TestUpdatePlan(t *testing.T) {
	f := newFixture(t, date(2025, 5, 10), entitlement.DefaultPolicy())
	ctx := context.Background()

	_, err := f.svc.UpdatePlan(ctx, "u1", subscriptiondomain.PlanUpdate{Plan: "gold"})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidPlan)

	_, err = f.svc.UpdatePlan(ctx, "u1", subscriptiondomain.PlanUpdate{Plan: "basic", BillingCycle: ptr("weekly")})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidBillingCycle)

	_, err = f.svc.UpdatePlan(ctx, "u1", subscriptiondomain.PlanUpdate{Plan: "basic", PlanUpdatedAt: ptr("yesterday")})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidPlanUpdatedAt)

	user, err := f.svc.UpdatePlan(ctx, "u1", subscriptiondomain.PlanUpdate{Plan: "Basic", BillingCycle: ptr("monthly")})
	require.NoError(t, err)
	assert.Equal(t, "basic", *user.Plan)
	assert.Equal(t, "monthly", *user.BillingCycle)
	require.NotNil(t, user.PlanUpdatedAt)
	assert.Equal(t, "2025-05-10T00:00:00Z", *user.PlanUpdatedAt, "paid plan without timestamp is stamped now")

	user, err = f.svc.UpdatePlan(ctx, "u1", subscriptiondomain.PlanUpdate{
		Plan:          "premium",
		BillingCycle:  ptr("yearly"),
		PlanUpdatedAt: ptr("2025-04-01T12:00:00+01:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-04-01T11:00:00Z", *user.PlanUpdatedAt)

	user, err = f.svc.UpdatePlan(ctx, "u1", subscriptiondomain.PlanUpdate{Plan: "free", BillingCycle: ptr("yearly")})
	require.NoError(t, err)
	assert.Equal(t, "free", *user.Plan)
	assert.Nil(t, user.BillingCycle)
	assert.Nil(t, user.PlanUpdatedAt)

	entries := f.entries(t, "u1", activitydomain.ActionPlanUpdated)
	require.Len(t, entries, 3)
	assert.Equal(t, "free", entries[0].Details["plan"])
	assert.Equal(t, "premium", entries[0].Details["previous_plan"])
}

func TestUpdatePlan_KeepsSubSecondTimestamp(t *testing.T) {
	f := newFixture(t, date(2025, 5, 10), entitlement.DefaultPolicy())
	ctx := context.Background()

	user, err := f.svc.UpdatePlan(ctx, "u1", subscriptiondomain.PlanUpdate{
		Plan:          "basic",
		BillingCycle:  ptr("monthly"),
		PlanUpdatedAt: ptr("2025-04-10T00:00:00.500Z"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-04-10T00:00:00.5Z", *user.PlanUpdatedAt)

	// Expiry lands half a second after midnight, so midnight is still active.
	ent, err := f.svc.Entitlement(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ent.Expired)
	assert.Equal(t, pricing.PlanBasic, ent.Plan)

	f.clock.Advance(500 * time.Millisecond)
	ent, err = f.svc.Entitlement(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ent.Expired)
}

func TestListPaid(t *testing.T) {
	f := newFixture(t, date(2025, 1, 1), entitlement.DefaultPolicy())
	f.seed(t, "a", ptr("free"), nil, nil)
	f.seed(t, "b", ptr("basic"), ptr("monthly"), ptr("2025-01-01T00:00:00Z"))
	f.seed(t, "c", ptr("Premium"), nil, nil)
	f.seed(t, "d", nil, nil, nil)

	users, err := f.svc.ListPaid(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "b", users[0].ID)
	assert.Equal(t, "c", users[1].ID)

	users, err = f.svc.ListPaid(context.Background(), "b", 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
}
