// Package entitlement derives what a user may do from their stored
// subscription fields. Everything here is a pure function of a record, a
// plan table and a point in time; persisting a downgrade is the caller's job.
package entitlement

import (
	"fmt"
	"time"

	"github.com/smallbiznis/bizplannaija/internal/pricing"
)

// Record holds the raw subscription fields exactly as stored on a user.
type Record struct {
	Plan          string
	BillingCycle  string
	PlanUpdatedAt string
}

// CatalogSource supplies the current plan table.
type CatalogSource interface {
	Catalog() *pricing.Catalog
}

type staticCatalog struct {
	catalog *pricing.Catalog
}

func (s staticCatalog) Catalog() *pricing.Catalog { return s.catalog }

// StaticCatalog wraps a fixed Catalog as a CatalogSource.
func StaticCatalog(c *pricing.Catalog) CatalogSource {
	return staticCatalog{catalog: c}
}

// Evaluator derives entitlements against a plan table and policy.
type Evaluator struct {
	source CatalogSource
	policy Policy
}

func NewEvaluator(source CatalogSource, policy Policy) *Evaluator {
	if policy.MalformedTimestamp == "" {
		policy.MalformedTimestamp = FailOpen
	}
	return &Evaluator{source: source, policy: policy}
}

func (e *Evaluator) Catalog() *pricing.Catalog {
	if e == nil || e.source == nil {
		return pricing.DefaultCatalog()
	}
	if c := e.source.Catalog(); c != nil {
		return c
	}
	return pricing.DefaultCatalog()
}

func (e *Evaluator) Policy() Policy {
	if e == nil {
		return DefaultPolicy()
	}
	return e.policy
}

// Derive evaluates rec at now.
func (e *Evaluator) Derive(rec Record, now time.Time) Entitlement {
	return Derive(e.Catalog(), rec, now, e.Policy())
}

// Entitlement is the outcome of evaluating a Record at a point in time.
type Entitlement struct {
	StoredPlan    pricing.Plan `json:"stored_plan"`
	Plan          pricing.Plan `json:"plan"`
	BillingCycle  BillingCycle `json:"billing_cycle,omitempty"`
	PlanUpdatedAt *time.Time   `json:"plan_updated_at,omitempty"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
	NextRenewal   *time.Time   `json:"next_renewal,omitempty"`
	Expired       bool         `json:"expired"`
	ExpiryStatus  ExpiryStatus `json:"expiry_status"`

	catalog *pricing.Catalog
}

// Derive is the read half of the expiration check. It never writes and never
// fails: absent or malformed values fall back to the free plan.
func Derive(catalog *pricing.Catalog, rec Record, now time.Time, policy Policy) Entitlement {
	if catalog == nil {
		catalog = pricing.DefaultCatalog()
	}
	plan := pricing.ParsePlan(rec.Plan)
	out := Entitlement{
		StoredPlan:   plan,
		Plan:         plan,
		ExpiryStatus: ExpiryNone,
		catalog:      catalog,
	}
	if plan == pricing.PlanFree {
		return out
	}

	if cycle, ok := ParseBillingCycle(rec.BillingCycle); ok {
		out.BillingCycle = cycle
	}
	if ts, ok := ParseTimestamp(rec.PlanUpdatedAt); ok {
		out.PlanUpdatedAt = &ts
	}

	expiry, status := ComputeExpiry(rec.PlanUpdatedAt, rec.BillingCycle)
	out.ExpiryStatus = status
	switch status {
	case ExpiryNone:
		return out
	case ExpiryInvalid:
		if policy.MalformedTimestamp == FailClosed {
			out.Expired = true
			out.Plan = pricing.PlanFree
		}
		return out
	}

	out.ExpiresAt = &expiry
	if !now.Before(expiry) {
		out.Expired = true
		out.Plan = pricing.PlanFree
		return out
	}
	out.NextRenewal = &expiry
	return out
}

func (e *Entitlement) table() *pricing.Catalog {
	if e == nil || e.catalog == nil {
		return pricing.DefaultCatalog()
	}
	return e.catalog
}

func (e *Entitlement) effectivePlan() pricing.Plan {
	if e == nil {
		return pricing.PlanFree
	}
	return e.Plan
}

// CurrentPlan is the plan entitlements are evaluated against.
func (e *Entitlement) CurrentPlan() pricing.Plan {
	return e.effectivePlan()
}

func (e *Entitlement) CanAccess(feature pricing.FeatureKey) bool {
	return e.table().HasFeatureAccess(e.effectivePlan(), feature)
}

func (e *Entitlement) IsFeatureLocked(feature pricing.FeatureKey) bool {
	return !e.CanAccess(feature)
}

func (e *Entitlement) Limit(key pricing.LimitKey) pricing.Limit {
	return e.table().FeatureLimit(e.effectivePlan(), key)
}

// UpgradeMessage suggests the tier above the current plan for featureName.
func (e *Entitlement) UpgradeMessage(featureName string) string {
	catalog := e.table()
	plan := e.effectivePlan()
	if next, ok := catalog.NextTier(plan); ok {
		return fmt.Sprintf("Upgrade to %s to unlock %s", next.Name, featureName)
	}
	return fmt.Sprintf("%s is included in your %s plan", featureName, catalog.Tier(plan).Name)
}

// Features returns the full access table for the current plan.
func (e *Entitlement) Features() map[pricing.FeatureKey]bool {
	return e.table().Tier(e.effectivePlan()).Access
}

// Limits returns the full limits table for the current plan.
func (e *Entitlement) Limits() map[pricing.LimitKey]pricing.Limit {
	return e.table().Tier(e.effectivePlan()).Limits
}

// DowngradeNotice is shown to the user after an expired plan is reset.
func (e *Entitlement) DowngradeNotice() string {
	if e == nil || !e.Expired {
		return ""
	}
	catalog := e.table()
	return fmt.Sprintf("Your %s plan has expired. Your account has been moved to the %s plan.",
		catalog.Tier(e.StoredPlan).Name,
		catalog.Tier(pricing.PlanFree).Name,
	)
}
