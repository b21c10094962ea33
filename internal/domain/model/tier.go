package model

// SubscriptionTier identifies the level of paid access a user holds.
// The product currently sells a single premium tier; the ordering is kept
// explicit so upgrade/downgrade logic survives a future multi-tier catalog.
type SubscriptionTier string

const (
	TierNone    SubscriptionTier = "none"
	TierPremium SubscriptionTier = "premium"
)

// HierarchyLevel orders tiers for upgrade/downgrade comparisons.
func (t SubscriptionTier) HierarchyLevel() int {
	switch t {
	case TierPremium:
		return 1
	default:
		return 0
	}
}

// DisplayName returns the user-facing tier name.
func (t SubscriptionTier) DisplayName() string {
	if t == TierPremium {
		return "Premium"
	}
	return "Free"
}

// CanUpgradeTo reports whether moving to target is a strict upgrade.
func (t SubscriptionTier) CanUpgradeTo(target SubscriptionTier) bool {
	return target.HierarchyLevel() > t.HierarchyLevel()
}

// CanDowngradeTo reports whether moving to target is a strict downgrade.
func (t SubscriptionTier) CanDowngradeTo(target SubscriptionTier) bool {
	return target.HierarchyLevel() < t.HierarchyLevel()
}

// Entitlements returns the feature set unlocked by this tier.
func (t SubscriptionTier) Entitlements() FeatureEntitlements {
	switch t {
	case TierPremium:
		return FeatureEntitlements{features: allFeatureSet()}
	default:
		return FeatureEntitlements{features: map[FeatureType]struct{}{
			FeatureQuickTimer: {},
			FeatureArticles:   {},
		}}
	}
}

// MigrateTier maps tier names from the previous subscription system.
// Every historical paid tier collapses into premium.
func MigrateTier(old string) SubscriptionTier {
	switch old {
	case "basic", "premium", "elite":
		return TierPremium
	default:
		return TierNone
	}
}

// SubscriptionDuration is a purchasable billing period.
type SubscriptionDuration string

const (
	DurationWeekly    SubscriptionDuration = "weekly"
	DurationQuarterly SubscriptionDuration = "quarterly"
	DurationYearly    SubscriptionDuration = "yearly"
)

// AllDurations lists every billing period the catalog must cover.
func AllDurations() []SubscriptionDuration {
	return []SubscriptionDuration{DurationWeekly, DurationQuarterly, DurationYearly}
}

// DisplayName returns the user-facing duration label.
func (d SubscriptionDuration) DisplayName() string {
	switch d {
	case DurationWeekly:
		return "1 Week"
	case DurationQuarterly:
		return "3 Months"
	case DurationYearly:
		return "12 Months"
	}
	return string(d)
}

// PriceCents returns the reference price for the duration. The store is the
// authority on what the user is actually charged; these values drive display
// and catalog validation only.
func (d SubscriptionDuration) PriceCents() int {
	switch d {
	case DurationWeekly:
		return 499
	case DurationQuarterly:
		return 2999
	case DurationYearly:
		return 4999
	}
	return 0
}

// ProductID derives the store product identifier for this duration.
func (d SubscriptionDuration) ProductID() string {
	return productIDNamespace + "." + string(d)
}

// FeatureType is the closed set of gateable capabilities.
type FeatureType string

const (
	// Free features
	FeatureQuickTimer FeatureType = "quick_timer"
	FeatureArticles   FeatureType = "articles"

	// Premium features
	FeatureCustomRoutines        FeatureType = "custom_routines"
	FeatureAdvancedTimer         FeatureType = "advanced_timer"
	FeatureProgressTracking      FeatureType = "progress_tracking"
	FeatureAdvancedAnalytics     FeatureType = "advanced_analytics"
	FeatureGoalSetting           FeatureType = "goal_setting"
	FeatureAICoach               FeatureType = "ai_coach"
	FeatureLiveActivities        FeatureType = "live_activities"
	FeaturePrioritySupport       FeatureType = "priority_support"
	FeatureUnlimitedBackup       FeatureType = "unlimited_backup"
	FeatureAdvancedCustomization FeatureType = "advanced_customization"
	FeatureExpertInsights        FeatureType = "expert_insights"
	FeaturePremiumContent        FeatureType = "premium_content"
)

// AllFeatures lists every known feature.
func AllFeatures() []FeatureType {
	return []FeatureType{
		FeatureQuickTimer, FeatureArticles,
		FeatureCustomRoutines, FeatureAdvancedTimer, FeatureProgressTracking,
		FeatureAdvancedAnalytics, FeatureGoalSetting, FeatureAICoach,
		FeatureLiveActivities, FeaturePrioritySupport, FeatureUnlimitedBackup,
		FeatureAdvancedCustomization, FeatureExpertInsights, FeaturePremiumContent,
	}
}

// IsFree reports whether the feature is available without a subscription.
func (f FeatureType) IsFree() bool {
	return f == FeatureQuickTimer || f == FeatureArticles
}

// IsKnown reports whether f belongs to the closed feature set.
func (f FeatureType) IsKnown() bool {
	for _, k := range AllFeatures() {
		if f == k {
			return true
		}
	}
	return false
}

func allFeatureSet() map[FeatureType]struct{} {
	s := make(map[FeatureType]struct{}, len(AllFeatures()))
	for _, f := range AllFeatures() {
		s[f] = struct{}{}
	}
	return s
}

// FeatureEntitlements is the feature set granted by a tier.
type FeatureEntitlements struct {
	features map[FeatureType]struct{}
}

// HasFeature reports whether the entitlement includes the feature.
func (e FeatureEntitlements) HasFeature(f FeatureType) bool {
	_, ok := e.features[f]
	return ok
}
