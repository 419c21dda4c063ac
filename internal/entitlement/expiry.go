package entitlement

import (
	"strings"
	"time"
)

// BillingCycle determines the interval added to planUpdatedAt.
type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

// ParseBillingCycle reports false for anything other than monthly or yearly.
func ParseBillingCycle(raw string) (BillingCycle, bool) {
	switch BillingCycle(strings.ToLower(strings.TrimSpace(raw))) {
	case CycleMonthly:
		return CycleMonthly, true
	case CycleYearly:
		return CycleYearly, true
	default:
		return "", false
	}
}

// ExpiryStatus describes how an expiry date was (or was not) computed.
type ExpiryStatus string

const (
	// ExpiryNone: billing fields missing or cycle unrecognized; never expires.
	ExpiryNone ExpiryStatus = "none"
	// ExpiryInvalid: planUpdatedAt could not be parsed.
	ExpiryInvalid ExpiryStatus = "invalid"
	// ExpiryComputed: a concrete expiry date exists.
	ExpiryComputed ExpiryStatus = "computed"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a stored planUpdatedAt. Zone-less layouts are UTC.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp is the canonical stored form of planUpdatedAt. Sub-second
// precision is kept so the computed expiry does not move.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ComputeExpiry returns planUpdatedAt plus one calendar month or year.
//
// Month arithmetic uses time.AddDate, so day overflow normalizes forward
// (Jan 31 + 1 month = Mar 3, or Mar 2 in leap years).
func ComputeExpiry(planUpdatedAt, billingCycle string) (time.Time, ExpiryStatus) {
	if strings.TrimSpace(planUpdatedAt) == "" || strings.TrimSpace(billingCycle) == "" {
		return time.Time{}, ExpiryNone
	}
	cycle, ok := ParseBillingCycle(billingCycle)
	if !ok {
		return time.Time{}, ExpiryNone
	}
	start, ok := ParseTimestamp(planUpdatedAt)
	if !ok {
		return time.Time{}, ExpiryInvalid
	}

	switch cycle {
	case CycleYearly:
		return start.AddDate(1, 0, 0), ExpiryComputed
	default:
		return start.AddDate(0, 1, 0), ExpiryComputed
	}
}
