package service

import (
	"context"
	"testing"
	"time"

	activitydomain "github.com/smallbiznis/bizplannaija/internal/activity/domain"
	"github.com/smallbiznis/bizplannaija/internal/activity/repository"
	"github.com/smallbiznis/bizplannaija/internal/clock"
	obscontext "github.com/smallbiznis/bizplannaija/internal/observability/context"
	"github.com/smallbiznis/bizplannaija/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (activitydomain.Service, *clock.FakeClock) {
	t.Helper()
	db := testutil.NewDB(t, &activitydomain.Entry{})
	fake := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Clock: fake,
		Repo:  repository.Provide(),
	})
	return svc, fake
}

func TestRecord_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, activitydomain.RecordRequest{UserID: "u1"})
	assert.ErrorIs(t, err, activitydomain.ErrInvalidAction)

	_, err = svc.Record(ctx, activitydomain.RecordRequest{Action: activitydomain.ActionPlanExpired})
	assert.ErrorIs(t, err, activitydomain.ErrInvalidUser)
}

func TestRecord_CapturesRequestContext(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := obscontext.WithRequestID(context.Background(), "req-77")
	ctx = obscontext.WithClient(ctx, "192.0.2.1", "test-agent")

	entry, err := svc.Record(ctx, activitydomain.RecordRequest{
		UserID:  "u1",
		Action:  activitydomain.ActionPlanExpired,
		Details: map[string]any{"previous_plan": "basic", "": "dropped"},
	})
	require.NoError(t, err)

	assert.Equal(t, activitydomain.EntityTypeUnknown, entry.EntityType)
	assert.Equal(t, fake.Now(), entry.CreatedAt)
	assert.Equal(t, "basic", entry.Details["previous_plan"])
	assert.Equal(t, "req-77", entry.Details["request_id"])
	assert.NotContains(t, entry.Details, "")
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "192.0.2.1", *entry.IPAddress)

	resp, err := svc.List(ctx, activitydomain.ListRequest{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, entry.ID, resp.Entries[0].ID)
	assert.Equal(t, "basic", resp.Entries[0].Details["previous_plan"])
}

func TestList_PaginatesNewestFirst(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Record(ctx, activitydomain.RecordRequest{UserID: "u1", Action: activitydomain.ActionPlanUpdated})
		require.NoError(t, err)
		fake.Advance(time.Minute)
	}
	_, err := svc.Record(ctx, activitydomain.RecordRequest{UserID: "u2", Action: activitydomain.ActionPlanUpdated})
	require.NoError(t, err)

	req := activitydomain.ListRequest{UserID: "u1"}
	req.PageSize = 2

	var seen []time.Time
	for page := 0; page < 5; page++ {
		resp, err := svc.List(ctx, req)
		require.NoError(t, err)
		for _, e := range resp.Entries {
			seen = append(seen, e.CreatedAt)
		}
		if !resp.HasMore {
			break
		}
		req.PageToken = resp.NextPageToken
	}

	require.Len(t, seen, 5)
	for i := 1; i < len(seen); i++ {
		assert.True(t, seen[i-1].After(seen[i]), "entries must be newest first")
	}
}

func TestList_RejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := activitydomain.ListRequest{}
	req.PageToken = "not-a-token"
	_, err := svc.List(ctx, req)
	assert.ErrorIs(t, err, activitydomain.ErrInvalidPageToken)

	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err = svc.List(ctx, activitydomain.ListRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, activitydomain.ErrInvalidTimeRange)
}
