package pricing

// DefaultTiers is the built-in plan table, used when no plans file is deployed.
func DefaultTiers() []PricingTier {
	return []PricingTier{
		{
			ID:           PlanFree,
			Name:         "Free",
			Price:        0,
			PriceMonthly: 0,
			PriceYearly:  0,
			Currency:     "NGN",
			Features: []PricingFeature{
				{Text: "1 landing page", Included: true},
				{Text: "Business hours and contact options", Included: true},
				{Text: "2 style templates", Included: true},
				{Text: "Logo and owner photo upload", Included: false},
				{Text: "WhatsApp widget", Included: false},
				{Text: "AI content generator", Included: false},
			},
			Limits: map[LimitKey]Limit{
				LimitMaxLandingPages: 1,
				LimitStyleTemplates:  2,
				LimitColorSchemes:    3,
				LimitFonts:           2,
				LimitLayoutStyles:    1,
			},
			Access: map[FeatureKey]bool{
				FeatureBusinessHours:  true,
				FeatureContactOptions: true,
			},
		},
		{
			ID:           PlanBasic,
			Name:         "Basic",
			Price:        5000,
			PriceMonthly: 5000,
			PriceYearly:  50000,
			Currency:     "NGN",
			Features: []PricingFeature{
				{Text: "3 landing pages", Included: true},
				{Text: "Logo and owner photo upload", Included: true},
				{Text: "WhatsApp widget", Included: true},
				{Text: "Lead capture forms", Included: true},
				{Text: "Social media and SEO settings", Included: true},
				{Text: "Profile analytics", Included: true},
				{Text: "AI content generator", Included: false},
				{Text: "Appointment booking", Included: false},
			},
			Limits: map[LimitKey]Limit{
				LimitMaxLandingPages: 3,
				LimitStyleTemplates:  5,
				LimitColorSchemes:    8,
				LimitFonts:           6,
				LimitLayoutStyles:    3,
			},
			Access: map[FeatureKey]bool{
				FeatureLogoUpload:        true,
				FeatureOwnerUpload:       true,
				FeatureProfileAnalytics:  true,
				FeatureLeadCapture:       true,
				FeatureWhatsappWidget:    true,
				FeatureSocialMediaAndSeo: true,
				FeatureBusinessHours:     true,
				FeatureContactOptions:    true,
			},
		},
		{
			ID:           PlanPremium,
			Name:         "Premium",
			Price:        10000,
			PriceMonthly: 10000,
			PriceYearly:  100000,
			Currency:     "NGN",
			Features: []PricingFeature{
				{Text: "Unlimited landing pages", Included: true},
				{Text: "Every template, color scheme, font and layout", Included: true},
				{Text: "AI content generator", Included: true},
				{Text: "Appointment booking", Included: true},
				{Text: "Real-time analytics", Included: true},
				{Text: "Language and location targeting", Included: true},
			},
			Limits: map[LimitKey]Limit{
				LimitMaxLandingPages: Unlimited,
				LimitStyleTemplates:  Unlimited,
				LimitColorSchemes:    Unlimited,
				LimitFonts:           Unlimited,
				LimitLayoutStyles:    Unlimited,
			},
			Access: map[FeatureKey]bool{
				FeatureLogoUpload:          true,
				FeatureOwnerUpload:         true,
				FeatureProfileAnalytics:    true,
				FeatureAppointmentBooking:  true,
				FeatureLeadCapture:         true,
				FeatureRealTimeAnalytics:   true,
				FeatureAIContentGenerator:  true,
				FeatureLanguageAndLocation: true,
				FeatureWhatsappWidget:      true,
				FeatureSocialMediaAndSeo:   true,
				FeatureBusinessHours:       true,
				FeatureContactOptions:      true,
			},
		},
	}
}

// DefaultCatalog builds a Catalog from DefaultTiers.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultTiers()...)
	if err != nil {
		panic(err)
	}
	return c
}
