// Package planstats publishes how accounts are spread across plans to an
// external Prometheus endpoint.
package planstats

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/bizplannaija/internal/pricing"
	"gorm.io/gorm"
)

// Collector keeps the plan gauges in a registry of its own, so a push only
// carries fleet totals and never per-instance request metrics.
type Collector struct {
	registry     *prometheus.Registry
	usersByPlan  *prometheus.GaugeVec
	businesses   prometheus.Gauge
	refreshError prometheus.Counter
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		usersByPlan: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bizplannaija_users_by_plan",
			Help: "Accounts per stored plan.",
		}, []string{"plan"}),
		businesses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bizplannaija_businesses_total",
			Help: "Landing pages across all accounts.",
		}),
		refreshError: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bizplannaija_plan_stats_refresh_errors_total",
			Help: "Failed plan statistics refreshes.",
		}),
	}
	c.registry.MustRegister(c.usersByPlan, c.businesses, c.refreshError)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

type planCount struct {
	Plan  *string
	Total int64
}

// Refresh recounts accounts and landing pages. Unknown or missing stored
// plans are reported as free, matching how they are served.
func (c *Collector) Refresh(ctx context.Context, db *gorm.DB) error {
	var rows []planCount
	if err := db.WithContext(ctx).
		Table("users").
		Select("plan, COUNT(*) AS total").
		Group("plan").
		Scan(&rows).Error; err != nil {
		c.refreshError.Inc()
		return err
	}

	totals := make(map[pricing.Plan]int64, 3)
	for _, plan := range []pricing.Plan{pricing.PlanFree, pricing.PlanBasic, pricing.PlanPremium} {
		totals[plan] = 0
	}
	for _, row := range rows {
		raw := ""
		if row.Plan != nil {
			raw = *row.Plan
		}
		totals[pricing.ParsePlan(raw)] += row.Total
	}
	for plan, total := range totals {
		c.usersByPlan.WithLabelValues(string(plan)).Set(float64(total))
	}

	var businesses int64
	if err := db.WithContext(ctx).Table("businesses").Count(&businesses).Error; err != nil {
		c.refreshError.Inc()
		return err
	}
	c.businesses.Set(float64(businesses))
	return nil
}
