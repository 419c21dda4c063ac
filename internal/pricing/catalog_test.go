package pricing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_TierFallsBackToFree(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		name string
		plan Plan
		want Plan
	}{
		{name: "free", plan: PlanFree, want: PlanFree},
		{name: "basic", plan: PlanBasic, want: PlanBasic},
		{name: "premium", plan: PlanPremium, want: PlanPremium},
		{name: "unknown", plan: Plan("gold"), want: PlanFree},
		{name: "empty", plan: Plan(""), want: PlanFree},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Tier(tt.plan).ID)
		})
	}
}

func TestCatalog_AccessorsMatchTable(t *testing.T) {
	c := DefaultCatalog()
	plans := []Plan{PlanFree, PlanBasic, PlanPremium, Plan("enterprise")}

	for _, plan := range plans {
		tier := c.Tier(plan)
		for _, feature := range AllFeatures {
			assert.Equal(t, tier.Access[feature], c.HasFeatureAccess(plan, feature), "plan=%s feature=%s", plan, feature)
		}
		for _, limit := range AllLimits {
			assert.Equal(t, tier.Limits[limit], c.FeatureLimit(plan, limit), "plan=%s limit=%s", plan, limit)
		}
	}
}

func TestCatalog_PremiumLimitsAreUnlimited(t *testing.T) {
	c := DefaultCatalog()
	for _, limit := range AllLimits {
		l := c.FeatureLimit(PlanPremium, limit)
		assert.True(t, l.IsUnlimited(), limit)
		assert.True(t, l.Allows(1_000_000))
	}
}

func TestCatalog_TierIsACopy(t *testing.T) {
	c := DefaultCatalog()
	tier := c.Tier(PlanFree)
	tier.Access[FeatureAIContentGenerator] = true
	tier.Limits[LimitMaxLandingPages] = 99

	assert.False(t, c.HasFeatureAccess(PlanFree, FeatureAIContentGenerator))
	assert.Equal(t, Limit(1), c.FeatureLimit(PlanFree, LimitMaxLandingPages))
}

func TestCatalog_NextTier(t *testing.T) {
	c := DefaultCatalog()

	next, ok := c.NextTier(PlanFree)
	require.True(t, ok)
	assert.Equal(t, PlanBasic, next.ID)

	next, ok = c.NextTier(PlanBasic)
	require.True(t, ok)
	assert.Equal(t, PlanPremium, next.ID)

	_, ok = c.NextTier(PlanPremium)
	assert.False(t, ok)
}

func TestNewCatalog_Validation(t *testing.T) {
	_, err := NewCatalog(PricingTier{ID: PlanBasic})
	assert.ErrorIs(t, err, ErrMissingFreeTier)

	_, err = NewCatalog(PricingTier{ID: PlanFree}, PricingTier{ID: "FREE"})
	assert.ErrorIs(t, err, ErrDuplicateTier)

	_, err = NewCatalog(PricingTier{ID: "gold"})
	assert.ErrorIs(t, err, ErrUnknownTier)

	_, err = NewCatalog(PricingTier{ID: PlanFree, Limits: map[LimitKey]Limit{"pages": 1}})
	assert.ErrorIs(t, err, ErrUnknownLimitKey)

	_, err = NewCatalog(PricingTier{ID: PlanFree, Access: map[FeatureKey]bool{"teleport": true}})
	assert.ErrorIs(t, err, ErrUnknownFeature)
}

func TestNewCatalog_CanonicalizesFoldedKeys(t *testing.T) {
	c, err := NewCatalog(PricingTier{
		ID:     "Free",
		Limits: map[LimitKey]Limit{"maxlandingpages": 4},
		Access: map[FeatureKey]bool{"aicontentgenerator": true},
	})
	require.NoError(t, err)

	assert.Equal(t, Limit(4), c.FeatureLimit(PlanFree, LimitMaxLandingPages))
	assert.True(t, c.HasFeatureAccess(PlanFree, FeatureAIContentGenerator))
	assert.False(t, c.HasFeatureAccess(PlanFree, FeatureLogoUpload))
	assert.Equal(t, "Free", c.Tier(PlanFree).Name)
	// Missing tiers fall back to free.
	assert.Equal(t, PlanFree, c.Tier(PlanPremium).ID)
}

func TestCatalog_PriceFor(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, int64(5000), c.PriceFor(PlanBasic, "monthly"))
	assert.Equal(t, int64(100000), c.PriceFor(PlanPremium, "yearly"))
	assert.Equal(t, int64(0), c.PriceFor(Plan("nope"), "yearly"))
}

func TestParsePlan(t *testing.T) {
	assert.Equal(t, PlanPremium, ParsePlan(" Premium "))
	assert.Equal(t, PlanBasic, ParsePlan("basic"))
	assert.Equal(t, PlanFree, ParsePlan(""))
	assert.Equal(t, PlanFree, ParsePlan("platinum"))
}

func TestLimit_JSON(t *testing.T) {
	out, err := json.Marshal(map[string]Limit{"a": 3, "b": Unlimited})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":3,"b":"unlimited"}`, string(out))

	var in map[string]Limit
	require.NoError(t, json.Unmarshal([]byte(`{"a":"7","b":-1,"c":"Infinity","d":2}`), &in))
	assert.Equal(t, Limit(7), in["a"])
	assert.True(t, in["b"].IsUnlimited())
	assert.True(t, in["c"].IsUnlimited())
	assert.Equal(t, Limit(2), in["d"])

	assert.Error(t, json.Unmarshal([]byte(`{"a":"lots"}`), &in))
}

func TestLimit_Allows(t *testing.T) {
	assert.True(t, Limit(1).Allows(0))
	assert.False(t, Limit(1).Allows(1))
	assert.False(t, Limit(0).Allows(0))
	assert.True(t, Unlimited.Allows(1<<30))
}
