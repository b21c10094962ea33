//go:build !integration

package web

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"growth-subscription-service/internal/domain/model"
	"growth-subscription-service/internal/usecase"
)

// newTestLogger creates a silent logger for tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- Mock ReconcilerUseCase ----

type mockReconcilerUC struct {
	CurrentStateFunc    func(ctx context.Context, userID string) (model.SubscriptionState, error)
	ApplyWebhookFunc    func(ctx context.Context, userID string, update model.WebhookUpdate) (model.SubscriptionState, error)
	RefreshFunc         func(ctx context.Context, userID string) (model.SubscriptionState, error)
	SignOutFunc         func(ctx context.Context, userID string) error
	ApplyValidationFunc func(ctx context.Context, userID string, result model.ValidationResult) (model.SubscriptionState, error)
}

var _ usecase.ReconcilerUseCase = (*mockReconcilerUC)(nil)

func (m *mockReconcilerUC) CurrentState(ctx context.Context, userID string) (model.SubscriptionState, error) {
	if m.CurrentStateFunc != nil {
		return m.CurrentStateFunc(ctx, userID)
	}
	return model.NonSubscribed(), nil
}

func (m *mockReconcilerUC) ApplyValidation(ctx context.Context, userID string, result model.ValidationResult) (model.SubscriptionState, error) {
	if m.ApplyValidationFunc != nil {
		return m.ApplyValidationFunc(ctx, userID, result)
	}
	return model.NonSubscribed(), nil
}

func (m *mockReconcilerUC) ApplyWebhook(ctx context.Context, userID string, update model.WebhookUpdate) (model.SubscriptionState, error) {
	if m.ApplyWebhookFunc != nil {
		return m.ApplyWebhookFunc(ctx, userID, update)
	}
	return model.NonSubscribed(), nil
}

func (m *mockReconcilerUC) Refresh(ctx context.Context, userID string) (model.SubscriptionState, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, userID)
	}
	return model.NonSubscribed(), nil
}

func (m *mockReconcilerUC) LastValidation(ctx context.Context, userID string) (*model.ValidationResult, error) {
	return nil, nil
}

func (m *mockReconcilerUC) SignOut(ctx context.Context, userID string) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, userID)
	}
	return nil
}

// ---- Mock EntitlementUseCase ----

type mockEntitlementUC struct {
	FeatureAccessForFunc func(ctx context.Context, userID string, feature model.FeatureType) model.FeatureAccess
}

var _ usecase.EntitlementUseCase = (*mockEntitlementUC)(nil)

func (m *mockEntitlementUC) HasActiveAccess(ctx context.Context, userID string) bool {
	return false
}

func (m *mockEntitlementUC) NeedsRenewalAttention(ctx context.Context, userID string) bool {
	return false
}

func (m *mockEntitlementUC) DaysRemaining(ctx context.Context, userID string) (int, bool) {
	return 0, false
}

func (m *mockEntitlementUC) FeatureAccess(feature model.FeatureType, hasPremium bool) model.FeatureAccess {
	return model.DeniedAccess(model.DenialNoSubscription)
}

func (m *mockEntitlementUC) FeatureAccessFor(ctx context.Context, userID string, feature model.FeatureType) model.FeatureAccess {
	if m.FeatureAccessForFunc != nil {
		return m.FeatureAccessForFunc(ctx, userID, feature)
	}
	return model.DeniedAccess(model.DenialNoSubscription)
}

// ---- Mock PurchaseUseCase ----

type mockPurchaseUC struct {
	RestoreFunc func(ctx context.Context, userID string) (model.RestoreResult, error)
}

var _ usecase.PurchaseUseCase = (*mockPurchaseUC)(nil)

func (m *mockPurchaseUC) LoadProducts(ctx context.Context) ([]model.Product, error) {
	return model.Catalog, nil
}

func (m *mockPurchaseUC) Purchase(ctx context.Context, userID, productID string) (model.PurchaseState, error) {
	return model.IdlePurchaseState(), nil
}

func (m *mockPurchaseUC) Restore(ctx context.Context, userID string) (model.RestoreResult, error) {
	if m.RestoreFunc != nil {
		return m.RestoreFunc(ctx, userID)
	}
	return model.RestoreResult{}, nil
}

func (m *mockPurchaseUC) State() model.PurchaseState { return model.IdlePurchaseState() }
func (m *mockPurchaseUC) Reset()                     {}
