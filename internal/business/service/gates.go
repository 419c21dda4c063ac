package service

import (
	"strings"

	businessdomain "github.com/smallbiznis/bizplannaija/internal/business/domain"
	"github.com/smallbiznis/bizplannaija/internal/entitlement"
	"github.com/smallbiznis/bizplannaija/internal/pricing"
)

var featureNames = map[pricing.FeatureKey]string{
	pricing.FeatureLogoUpload:          "logo upload",
	pricing.FeatureOwnerUpload:         "owner photo upload",
	pricing.FeatureProfileAnalytics:    "profile analytics",
	pricing.FeatureAppointmentBooking:  "appointment booking",
	pricing.FeatureLeadCapture:         "lead capture",
	pricing.FeatureRealTimeAnalytics:   "real-time analytics",
	pricing.FeatureAIContentGenerator:  "the AI content generator",
	pricing.FeatureLanguageAndLocation: "language and location settings",
	pricing.FeatureWhatsappWidget:      "the WhatsApp widget",
	pricing.FeatureSocialMediaAndSeo:   "social media and SEO",
	pricing.FeatureBusinessHours:       "business hours",
	pricing.FeatureContactOptions:      "contact options",
}

var optionNames = map[pricing.LimitKey]string{
	pricing.LimitStyleTemplates: "more style templates",
	pricing.LimitColorSchemes:   "more color schemes",
	pricing.LimitFonts:          "more fonts",
	pricing.LimitLayoutStyles:   "more layout styles",
}

// sectionFeatures maps lowercased section keys to the access key gating them.
var sectionFeatures = map[string]pricing.FeatureKey{
	"businesshours":     pricing.FeatureBusinessHours,
	"contact":           pricing.FeatureContactOptions,
	"sociallinks":       pricing.FeatureSocialMediaAndSeo,
	"seo":               pricing.FeatureSocialMediaAndSeo,
	"language":          pricing.FeatureLanguageAndLocation,
	"location":          pricing.FeatureLanguageAndLocation,
	"booking":           pricing.FeatureAppointmentBooking,
	"leadcapture":       pricing.FeatureLeadCapture,
	"analytics":         pricing.FeatureProfileAnalytics,
	"realtimeanalytics": pricing.FeatureRealTimeAnalytics,
	"aicontent":         pricing.FeatureAIContentGenerator,
}

// gate collects the checks for one request against one entitlement.
type gate struct {
	ent *entitlement.Entitlement
}

func (g gate) feature(key pricing.FeatureKey) error {
	if g.ent.CanAccess(key) {
		return nil
	}
	return &businessdomain.GateError{
		Err:     businessdomain.ErrFeatureLocked,
		Key:     string(key),
		Message: g.ent.UpgradeMessage(featureNames[key]),
	}
}

// option checks a 0-based choice index against the tier's option count.
func (g gate) option(key pricing.LimitKey, index int) error {
	if g.ent.Limit(key).Allows(index) {
		return nil
	}
	return &businessdomain.GateError{
		Err:     businessdomain.ErrOptionLocked,
		Key:     string(key),
		Message: g.ent.UpgradeMessage(optionNames[key]),
	}
}

func (g gate) landingPages(count int) error {
	if g.ent.CheckLimit(pricing.LimitMaxLandingPages, count) != entitlement.LimitHardBlock {
		return nil
	}
	return &businessdomain.GateError{
		Err:     businessdomain.ErrLimitReached,
		Key:     string(pricing.LimitMaxLandingPages),
		Message: g.ent.UpgradeMessage("more landing pages"),
	}
}

func (g gate) text(key pricing.FeatureKey, value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return g.feature(key)
}

// sections checks every enabled section. A section set to null or false is
// a removal and is never gated.
func (g gate) sections(sections map[string]any) error {
	for name, value := range sections {
		if !sectionEnabled(value) {
			continue
		}
		key, ok := sectionFeatures[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		if err := g.feature(key); err != nil {
			return err
		}
	}
	return nil
}

func sectionEnabled(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	default:
		return true
	}
}

func (g gate) create(req businessdomain.CreateRequest) error {
	checks := []func() error{
		func() error { return g.text(pricing.FeatureLogoUpload, req.LogoURL) },
		func() error { return g.text(pricing.FeatureOwnerUpload, req.OwnerPhotoURL) },
		func() error { return g.text(pricing.FeatureWhatsappWidget, req.WhatsApp) },
		func() error { return g.option(pricing.LimitStyleTemplates, req.StyleTemplate) },
		func() error { return g.option(pricing.LimitColorSchemes, req.ColorScheme) },
		func() error { return g.option(pricing.LimitFonts, req.Font) },
		func() error { return g.option(pricing.LimitLayoutStyles, req.LayoutStyle) },
		func() error { return g.sections(req.Sections) },
	}
	return runChecks(checks)
}

// update only gates the fields being changed, so a downgraded owner can
// still edit pages that use options above their current tier.
func (g gate) update(req businessdomain.UpdateRequest) error {
	var checks []func() error
	if req.LogoURL != nil {
		checks = append(checks, func() error { return g.text(pricing.FeatureLogoUpload, *req.LogoURL) })
	}
	if req.OwnerPhotoURL != nil {
		checks = append(checks, func() error { return g.text(pricing.FeatureOwnerUpload, *req.OwnerPhotoURL) })
	}
	if req.WhatsApp != nil {
		checks = append(checks, func() error { return g.text(pricing.FeatureWhatsappWidget, *req.WhatsApp) })
	}
	if req.StyleTemplate != nil {
		checks = append(checks, func() error { return g.option(pricing.LimitStyleTemplates, *req.StyleTemplate) })
	}
	if req.ColorScheme != nil {
		checks = append(checks, func() error { return g.option(pricing.LimitColorSchemes, *req.ColorScheme) })
	}
	if req.Font != nil {
		checks = append(checks, func() error { return g.option(pricing.LimitFonts, *req.Font) })
	}
	if req.LayoutStyle != nil {
		checks = append(checks, func() error { return g.option(pricing.LimitLayoutStyles, *req.LayoutStyle) })
	}
	if req.Sections != nil {
		checks = append(checks, func() error { return g.sections(req.Sections) })
	}
	return runChecks(checks)
}

func runChecks(checks []func() error) error {
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}
