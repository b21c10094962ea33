package model

import "time"

// SubscriptionStatus is the lifecycle status of a subscription.
type SubscriptionStatus string

const (
	StatusNone      SubscriptionStatus = "none"
	StatusActive    SubscriptionStatus = "active"
	StatusExpired   SubscriptionStatus = "expired"
	StatusPending   SubscriptionStatus = "pending"
	StatusGrace     SubscriptionStatus = "grace"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// ValidationSource identifies where a subscription state was computed.
type ValidationSource string

const (
	SourceLocal   ValidationSource = "local"
	SourceServer  ValidationSource = "server"
	SourceCached  ValidationSource = "cached"
	SourceWebhook ValidationSource = "webhook"
	SourceUnknown ValidationSource = "unknown"
)

// stateStaleThreshold is how long a persisted state stays trustworthy
// before a feature-gate decision must trigger a fresh validation.
const stateStaleThreshold = 15 * time.Minute

// SubscriptionState is the canonical subscription snapshot. It is an
// immutable value: every change produces a brand-new state, the reconciler
// never mutates one in place.
type SubscriptionState struct {
	Tier                SubscriptionTier   `json:"tier"`
	Status              SubscriptionStatus `json:"status"`
	ExpirationDate      *time.Time         `json:"expirationDate,omitempty"`
	PurchaseDate        *time.Time         `json:"purchaseDate,omitempty"`
	IsTrialActive       bool               `json:"isTrialActive"`
	TrialExpirationDate *time.Time         `json:"trialExpirationDate,omitempty"`
	AutoRenewalEnabled  bool               `json:"autoRenewalEnabled"`
	LastUpdated         time.Time          `json:"lastUpdated"`
	ValidationSource    ValidationSource   `json:"validationSource"`
	ProductID           string             `json:"productId,omitempty"`
	TransactionID       string             `json:"transactionId,omitempty"`
	CancellationDate    *time.Time         `json:"cancellationDate,omitempty"`
	GracePeriodEndDate  *time.Time         `json:"gracePeriodEndDate,omitempty"`
}

// NonSubscribed returns the default state carrying no entitlement.
func NonSubscribed() SubscriptionState {
	return SubscriptionState{
		Tier:             TierNone,
		Status:           StatusNone,
		LastUpdated:      time.Now(),
		ValidationSource: SourceUnknown,
	}
}

// ActiveState builds a locally validated active subscription state.
func ActiveState(tier SubscriptionTier, expirationDate time.Time, productID string, autoRenewalEnabled bool) SubscriptionState {
	now := time.Now()
	return SubscriptionState{
		Tier:               tier,
		Status:             StatusActive,
		ExpirationDate:     &expirationDate,
		PurchaseDate:       &now,
		AutoRenewalEnabled: autoRenewalEnabled,
		LastUpdated:        now,
		ValidationSource:   SourceLocal,
		ProductID:          productID,
	}
}

// TrialState builds an active trial state expiring with the trial.
func TrialState(tier SubscriptionTier, trialExpiration time.Time, productID string) SubscriptionState {
	return SubscriptionState{
		Tier:                tier,
		Status:              StatusActive,
		ExpirationDate:      &trialExpiration,
		IsTrialActive:       true,
		TrialExpirationDate: &trialExpiration,
		AutoRenewalEnabled:  true,
		LastUpdated:         time.Now(),
		ValidationSource:    SourceLocal,
		ProductID:           productID,
	}
}

// Validated returns a copy re-stamped with a new source and timestamp.
// All other fields are carried over unchanged.
func (s SubscriptionState) Validated(source ValidationSource) SubscriptionState {
	next := s
	next.ValidationSource = source
	next.LastUpdated = time.Now()
	return next
}

// Expired returns a copy demoted to the expired, non-entitled state.
func (s SubscriptionState) Expired() SubscriptionState {
	next := s
	next.Tier = TierNone
	next.Status = StatusExpired
	next.IsTrialActive = false
	next.AutoRenewalEnabled = false
	next.GracePeriodEndDate = nil
	next.LastUpdated = time.Now()
	return next
}

// HasActiveAccess reports whether the state grants feature access right now.
// A cancelled subscription keeps access until its expiration date passes.
func (s SubscriptionState) HasActiveAccess() bool {
	switch s.Status {
	case StatusActive, StatusGrace:
		return true
	case StatusCancelled:
		return s.ExpirationDate != nil && time.Now().Before(*s.ExpirationDate)
	default:
		return false
	}
}

// NeedsRenewalAttention reports whether the user should be nudged about a
// renewal that is failing or winding down.
func (s SubscriptionState) NeedsRenewalAttention() bool {
	return s.Status == StatusGrace || (s.Status == StatusCancelled && s.HasActiveAccess())
}

// DaysRemaining returns the calendar-day delta to the expiration date, or
// false when no expiration is set.
func (s SubscriptionState) DaysRemaining() (int, bool) {
	if s.ExpirationDate == nil {
		return 0, false
	}
	now := time.Now()
	startDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	exp := s.ExpirationDate.In(now.Location())
	endDay := time.Date(exp.Year(), exp.Month(), exp.Day(), 0, 0, 0, 0, now.Location())
	return int(endDay.Sub(startDay) / (24 * time.Hour)), true
}

// IsStale reports whether the snapshot is too old to gate features on
// without triggering a fresh validation first.
func (s SubscriptionState) IsStale() bool {
	return time.Since(s.LastUpdated) > stateStaleThreshold
}
