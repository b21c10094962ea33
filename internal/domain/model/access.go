package model

import "time"

// DenialReason is the closed set of reasons an entitlement check can deny.
// The boolean-premium model only produces no_subscription and
// feature_not_available today; the richer reasons stay representable for
// future multi-tier logic.
type DenialReason string

const (
	DenialNoSubscription      DenialReason = "no_subscription"
	DenialInsufficientTier    DenialReason = "insufficient_tier"
	DenialTrialExpired        DenialReason = "trial_expired"
	DenialUsageLimitReached   DenialReason = "usage_limit_reached"
	DenialFeatureNotAvailable DenialReason = "feature_not_available"
)

// Description is the user-facing denial explanation.
func (r DenialReason) Description() string {
	switch r {
	case DenialNoSubscription:
		return "Premium subscription required"
	case DenialInsufficientTier:
		return "Upgrade your subscription to access this feature"
	case DenialTrialExpired:
		return "Your trial has expired"
	case DenialUsageLimitReached:
		return "You've reached the usage limit for this feature"
	default:
		return "This feature is not available"
	}
}

// FeatureUsage describes a usage-limited grant.
type FeatureUsage struct {
	Feature      FeatureType `json:"feature"`
	CurrentUsage int         `json:"currentUsage"`
	MaxUsage     int         `json:"maxUsage"`
	ResetDate    *time.Time  `json:"resetDate,omitempty"`
}

// IsAtLimit reports whether the usage budget is exhausted.
func (u FeatureUsage) IsAtLimit() bool { return u.CurrentUsage >= u.MaxUsage }

// Remaining returns the uses left, never negative.
func (u FeatureUsage) Remaining() int {
	if u.MaxUsage <= u.CurrentUsage {
		return 0
	}
	return u.MaxUsage - u.CurrentUsage
}

// FeatureAccess is the decision of one entitlement check: granted, denied
// with a reason, or granted under a usage limit.
type FeatureAccess struct {
	Granted bool          `json:"granted"`
	Reason  DenialReason  `json:"reason,omitempty"`
	Usage   *FeatureUsage `json:"usage,omitempty"`
}

func GrantedAccess() FeatureAccess { return FeatureAccess{Granted: true} }

func DeniedAccess(reason DenialReason) FeatureAccess {
	return FeatureAccess{Granted: false, Reason: reason}
}

func LimitedAccess(usage FeatureUsage) FeatureAccess {
	return FeatureAccess{Granted: true, Usage: &usage}
}

// IsLimited reports whether the grant carries a usage cap.
func (a FeatureAccess) IsLimited() bool { return a.Usage != nil }
