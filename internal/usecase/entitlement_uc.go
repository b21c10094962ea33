// File: internal/usecase/entitlement_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"growth-subscription-service/internal/domain/model"
)

// Compile-time check
var _ EntitlementUseCase = (*entitlementUC)(nil)

// EntitlementUseCase is the read-only query surface translating the
// canonical state into per-feature decisions. Queries never raise: absence
// of a valid state always resolves to denied.
type EntitlementUseCase interface {
	HasActiveAccess(ctx context.Context, userID string) bool
	NeedsRenewalAttention(ctx context.Context, userID string) bool
	// DaysRemaining returns the calendar days to expiration, ok=false when
	// no expiration is set or no state is available.
	DaysRemaining(ctx context.Context, userID string) (int, bool)
	// FeatureAccess decides access for a feature given a premium flag.
	FeatureAccess(feature model.FeatureType, hasPremium bool) model.FeatureAccess
	// FeatureAccessFor decides access from the user's canonical state,
	// refreshing first when that state is stale.
	FeatureAccessFor(ctx context.Context, userID string, feature model.FeatureType) model.FeatureAccess
}

type entitlementUC struct {
	reconciler ReconcilerUseCase
	log        *zerolog.Logger
}

func NewEntitlementUseCase(reconciler ReconcilerUseCase, logger *zerolog.Logger) *entitlementUC {
	l := logger.With().Str("component", "Entitlements").Logger()
	return &entitlementUC{reconciler: reconciler, log: &l}
}

// freshState returns a state usable for gating. A stale snapshot triggers a
// fresh validation instead of being served silently; when everything fails
// the caller gets the fail-closed non-subscribed state.
func (uc *entitlementUC) freshState(ctx context.Context, userID string) model.SubscriptionState {
	state, err := uc.reconciler.CurrentState(ctx, userID)
	if err != nil {
		uc.log.Warn().Err(err).Str("user_id", userID).Msg("state unavailable, denying access")
		return model.NonSubscribed()
	}
	if !state.IsStale() {
		return state
	}
	refreshed, err := uc.reconciler.Refresh(ctx, userID)
	if err != nil {
		uc.log.Warn().Err(err).Str("user_id", userID).Msg("refresh failed for stale state, denying access")
		return model.NonSubscribed()
	}
	return refreshed
}

func (uc *entitlementUC) HasActiveAccess(ctx context.Context, userID string) bool {
	return uc.freshState(ctx, userID).HasActiveAccess()
}

func (uc *entitlementUC) NeedsRenewalAttention(ctx context.Context, userID string) bool {
	return uc.freshState(ctx, userID).NeedsRenewalAttention()
}

func (uc *entitlementUC) DaysRemaining(ctx context.Context, userID string) (int, bool) {
	return uc.freshState(ctx, userID).DaysRemaining()
}

func (uc *entitlementUC) FeatureAccess(feature model.FeatureType, hasPremium bool) model.FeatureAccess {
	if !feature.IsKnown() {
		return model.DeniedAccess(model.DenialFeatureNotAvailable)
	}
	if feature.IsFree() {
		return model.GrantedAccess()
	}
	if hasPremium {
		return model.GrantedAccess()
	}
	return model.DeniedAccess(model.DenialNoSubscription)
}

func (uc *entitlementUC) FeatureAccessFor(ctx context.Context, userID string, feature model.FeatureType) model.FeatureAccess {
	state := uc.freshState(ctx, userID)
	hasPremium := state.HasActiveAccess() && state.Tier.Entitlements().HasFeature(feature)
	return uc.FeatureAccess(feature, hasPremium)
}
