// Package pricing holds the plan tier table: which features and quantity
// limits each subscription plan grants.
package pricing

import "strings"

// Plan is a subscription tier, ordered free < basic < premium.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanBasic   Plan = "basic"
	PlanPremium Plan = "premium"
)

var planOrder = []Plan{PlanFree, PlanBasic, PlanPremium}

// ParsePlan normalizes a stored plan value. Anything unrecognized is free.
func ParsePlan(raw string) Plan {
	switch Plan(strings.ToLower(strings.TrimSpace(raw))) {
	case PlanBasic:
		return PlanBasic
	case PlanPremium:
		return PlanPremium
	default:
		return PlanFree
	}
}

func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanBasic, PlanPremium:
		return true
	default:
		return false
	}
}

func (p Plan) IsPaid() bool {
	return p == PlanBasic || p == PlanPremium
}

func (p Plan) String() string { return string(p) }

// FeatureKey names a boolean entitlement in a tier's access table.
type FeatureKey string

const (
	FeatureLogoUpload          FeatureKey = "logoUpload"
	FeatureOwnerUpload         FeatureKey = "ownerUpload"
	FeatureProfileAnalytics    FeatureKey = "profileAnalytics"
	FeatureAppointmentBooking  FeatureKey = "appointmentBooking"
	FeatureLeadCapture         FeatureKey = "leadCapture"
	FeatureRealTimeAnalytics   FeatureKey = "realTimeAnalytics"
	FeatureAIContentGenerator  FeatureKey = "aiContentGenerator"
	FeatureLanguageAndLocation FeatureKey = "languageAndLocation"
	FeatureWhatsappWidget      FeatureKey = "whatsappWidget"
	FeatureSocialMediaAndSeo   FeatureKey = "socialMediaAndSeo"
	FeatureBusinessHours       FeatureKey = "businessHours"
	FeatureContactOptions      FeatureKey = "contactOptions"
)

// AllFeatures lists every access key in display order.
var AllFeatures = []FeatureKey{
	FeatureLogoUpload,
	FeatureOwnerUpload,
	FeatureProfileAnalytics,
	FeatureAppointmentBooking,
	FeatureLeadCapture,
	FeatureRealTimeAnalytics,
	FeatureAIContentGenerator,
	FeatureLanguageAndLocation,
	FeatureWhatsappWidget,
	FeatureSocialMediaAndSeo,
	FeatureBusinessHours,
	FeatureContactOptions,
}

// ParseFeatureKey matches case-insensitively against the known keys.
func ParseFeatureKey(raw string) (FeatureKey, bool) {
	raw = strings.TrimSpace(raw)
	for _, key := range AllFeatures {
		if strings.EqualFold(string(key), raw) {
			return key, true
		}
	}
	return "", false
}

// LimitKey names a quantity limit in a tier's limits table.
type LimitKey string

const (
	LimitMaxLandingPages LimitKey = "maxLandingPages"
	LimitStyleTemplates  LimitKey = "styleTemplates"
	LimitColorSchemes    LimitKey = "colorSchemes"
	LimitFonts           LimitKey = "fonts"
	LimitLayoutStyles    LimitKey = "layoutStyles"
)

var AllLimits = []LimitKey{
	LimitMaxLandingPages,
	LimitStyleTemplates,
	LimitColorSchemes,
	LimitFonts,
	LimitLayoutStyles,
}

func ParseLimitKey(raw string) (LimitKey, bool) {
	raw = strings.TrimSpace(raw)
	for _, key := range AllLimits {
		if strings.EqualFold(string(key), raw) {
			return key, true
		}
	}
	return "", false
}

// PricingFeature is one bullet on a pricing card.
type PricingFeature struct {
	Text     string `json:"text" mapstructure:"text"`
	Included bool   `json:"included" mapstructure:"included"`
}
