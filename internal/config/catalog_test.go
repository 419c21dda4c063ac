package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smallbiznis/bizplannaija/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const plansYAML = `
plans:
  - id: free
    name: Free
    limits:
      maxLandingPages: 2
      styleTemplates: 4
    access:
      businessHours: true
  - id: basic
    name: Starter
    priceMonthly: 3000
    limits:
      maxLandingPages: 5
    access:
      logoUpload: true
  - id: premium
    name: Pro
    limits:
      maxLandingPages: unlimited
      styleTemplates: -1
    access:
      aiContentGenerator: true
`

func writePlans(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "plans.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestCatalogHolder_LoadsPlansFile(t *testing.T) {
	path := writePlans(t, t.TempDir(), plansYAML)

	holder, err := NewCatalogHolder(Config{PlansConfigPath: path}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, path, holder.Source())

	c := holder.Catalog()
	assert.Equal(t, pricing.Limit(2), c.FeatureLimit(pricing.PlanFree, pricing.LimitMaxLandingPages))
	assert.Equal(t, pricing.Limit(4), c.FeatureLimit(pricing.PlanFree, pricing.LimitStyleTemplates))
	assert.Equal(t, pricing.Limit(0), c.FeatureLimit(pricing.PlanFree, pricing.LimitFonts))
	assert.True(t, c.FeatureLimit(pricing.PlanPremium, pricing.LimitMaxLandingPages).IsUnlimited())
	assert.True(t, c.FeatureLimit(pricing.PlanPremium, pricing.LimitStyleTemplates).IsUnlimited())
	assert.True(t, c.HasFeatureAccess(pricing.PlanBasic, pricing.FeatureLogoUpload))
	assert.False(t, c.HasFeatureAccess(pricing.PlanBasic, pricing.FeatureAIContentGenerator))
	assert.Equal(t, "Starter", c.Tier(pricing.PlanBasic).Name)
	assert.Equal(t, int64(3000), c.Tier(pricing.PlanBasic).PriceMonthly)
}

func TestCatalogHolder_MissingFileUsesBuiltin(t *testing.T) {
	holder, err := NewCatalogHolder(Config{PlansConfigPath: filepath.Join(t.TempDir(), "absent.yml")}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "builtin", holder.Source())
	assert.Equal(t, pricing.Limit(1), holder.Catalog().FeatureLimit(pricing.PlanFree, pricing.LimitMaxLandingPages))
}

func TestCatalogHolder_RejectsInvalidFile(t *testing.T) {
	path := writePlans(t, t.TempDir(), "plans:\n  - id: basic\n    name: Basic\n")

	_, err := NewCatalogHolder(Config{PlansConfigPath: path}, zap.NewNop())
	assert.ErrorIs(t, err, pricing.ErrMissingFreeTier)
}

func TestCatalogHolder_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writePlans(t, dir, plansYAML)

	holder, err := NewCatalogHolder(Config{PlansConfigPath: path}, zap.NewNop())
	require.NoError(t, err)

	updated := `
plans:
  - id: free
    limits:
      maxLandingPages: 7
`
	writePlans(t, dir, updated)

	assert.Eventually(t, func() bool {
		return holder.Catalog().FeatureLimit(pricing.PlanFree, pricing.LimitMaxLandingPages) == 7
	}, 5*time.Second, 20*time.Millisecond)
}

func TestNilCatalogHolder(t *testing.T) {
	var holder *CatalogHolder
	assert.NotNil(t, holder.Catalog())
	assert.Empty(t, holder.Source())

	static := NewStaticCatalogHolder(nil)
	assert.Equal(t, "static", static.Source())
}
