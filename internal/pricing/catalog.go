package pricing

import (
	"errors"
	"fmt"
	"strings"
)

// PricingTier is one row of the plan table.
type PricingTier struct {
	ID           Plan                `json:"id" mapstructure:"id"`
	Name         string              `json:"name" mapstructure:"name"`
	Price        int64               `json:"price" mapstructure:"price"`
	PriceMonthly int64               `json:"priceMonthly" mapstructure:"priceMonthly"`
	PriceYearly  int64               `json:"priceYearly" mapstructure:"priceYearly"`
	Currency     string              `json:"currency" mapstructure:"currency"`
	Features     []PricingFeature    `json:"features" mapstructure:"features"`
	Limits       map[LimitKey]Limit  `json:"limits" mapstructure:"limits"`
	Access       map[FeatureKey]bool `json:"access" mapstructure:"access"`
}

func (t PricingTier) clone() PricingTier {
	out := t
	out.Features = append([]PricingFeature(nil), t.Features...)
	out.Limits = make(map[LimitKey]Limit, len(t.Limits))
	for k, v := range t.Limits {
		out.Limits[k] = v
	}
	out.Access = make(map[FeatureKey]bool, len(t.Access))
	for k, v := range t.Access {
		out.Access[k] = v
	}
	return out
}

var (
	ErrMissingFreeTier = errors.New("pricing: free tier is required")
	ErrDuplicateTier   = errors.New("pricing: duplicate tier")
	ErrUnknownTier     = errors.New("pricing: unknown tier id")
	ErrUnknownLimitKey = errors.New("pricing: unknown limit key")
	ErrUnknownFeature  = errors.New("pricing: unknown feature key")
)

// Catalog is an immutable plan table. The zero value is not usable; build one
// with NewCatalog or DefaultCatalog.
type Catalog struct {
	tiers map[Plan]PricingTier
	order []Plan
}

// NewCatalog validates tiers and canonicalizes their limit and access keys.
// Keys are matched case-insensitively so config loaders that fold case still
// produce a usable table. Missing limit keys default to 0, missing access
// keys to false.
func NewCatalog(tiers ...PricingTier) (*Catalog, error) {
	c := &Catalog{tiers: make(map[Plan]PricingTier, len(tiers))}
	for _, tier := range tiers {
		id := Plan(strings.ToLower(strings.TrimSpace(string(tier.ID))))
		if !id.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTier, tier.ID)
		}
		if _, ok := c.tiers[id]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTier, id)
		}

		normalized := tier.clone()
		normalized.ID = id
		if strings.TrimSpace(normalized.Name) == "" {
			normalized.Name = strings.ToUpper(string(id[:1])) + string(id[1:])
		}
		if normalized.Currency == "" {
			normalized.Currency = "NGN"
		}

		limits := make(map[LimitKey]Limit, len(AllLimits))
		for _, key := range AllLimits {
			limits[key] = 0
		}
		for rawKey, value := range tier.Limits {
			key, ok := ParseLimitKey(string(rawKey))
			if !ok {
				return nil, fmt.Errorf("%w: %q in tier %s", ErrUnknownLimitKey, rawKey, id)
			}
			limits[key] = value
		}
		normalized.Limits = limits

		access := make(map[FeatureKey]bool, len(AllFeatures))
		for _, key := range AllFeatures {
			access[key] = false
		}
		for rawKey, value := range tier.Access {
			key, ok := ParseFeatureKey(string(rawKey))
			if !ok {
				return nil, fmt.Errorf("%w: %q in tier %s", ErrUnknownFeature, rawKey, id)
			}
			access[key] = value
		}
		normalized.Access = access

		c.tiers[id] = normalized
	}

	if _, ok := c.tiers[PlanFree]; !ok {
		return nil, ErrMissingFreeTier
	}
	for _, plan := range planOrder {
		if _, ok := c.tiers[plan]; ok {
			c.order = append(c.order, plan)
		}
	}
	return c, nil
}

// Tier returns the tier for plan, or the free tier when plan is unknown.
func (c *Catalog) Tier(plan Plan) PricingTier {
	if c == nil {
		return PricingTier{ID: PlanFree}
	}
	if tier, ok := c.tiers[plan]; ok {
		return tier.clone()
	}
	return c.tiers[PlanFree].clone()
}

// HasFeatureAccess reports tier.Access[feature] for plan.
func (c *Catalog) HasFeatureAccess(plan Plan, feature FeatureKey) bool {
	if c == nil {
		return false
	}
	tier, ok := c.tiers[plan]
	if !ok {
		tier = c.tiers[PlanFree]
	}
	return tier.Access[feature]
}

// FeatureLimit reports tier.Limits[limit] for plan.
func (c *Catalog) FeatureLimit(plan Plan, limit LimitKey) Limit {
	if c == nil {
		return 0
	}
	tier, ok := c.tiers[plan]
	if !ok {
		tier = c.tiers[PlanFree]
	}
	return tier.Limits[limit]
}

// Tiers returns every tier in ascending entitlement order.
func (c *Catalog) Tiers() []PricingTier {
	if c == nil {
		return nil
	}
	out := make([]PricingTier, 0, len(c.order))
	for _, plan := range c.order {
		out = append(out, c.tiers[plan].clone())
	}
	return out
}

// NextTier returns the tier directly above plan, if any.
func (c *Catalog) NextTier(plan Plan) (PricingTier, bool) {
	if c == nil {
		return PricingTier{}, false
	}
	for i, p := range c.order {
		if p == plan && i+1 < len(c.order) {
			return c.tiers[c.order[i+1]].clone(), true
		}
	}
	return PricingTier{}, false
}

// PriceFor returns the charge for one billing cycle of plan.
func (c *Catalog) PriceFor(plan Plan, cycle string) int64 {
	tier := c.Tier(plan)
	switch strings.ToLower(strings.TrimSpace(cycle)) {
	case "yearly":
		return tier.PriceYearly
	case "monthly":
		return tier.PriceMonthly
	default:
		return tier.Price
	}
}
