// File: internal/usecase/purchase_uc.go
package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"growth-subscription-service/internal/domain"
	"growth-subscription-service/internal/domain/model"
	"growth-subscription-service/internal/domain/ports/adapter"
	"growth-subscription-service/internal/infra/metrics"
)

// Compile-time check
var _ PurchaseUseCase = (*purchaseUC)(nil)

// PurchaseUseCase drives one purchase attempt through the flow state
// machine. The flow itself grants nothing: a successful transaction is fed
// into the reconciler as a local validation result before the caller may
// treat the purchase as entitling.
type PurchaseUseCase interface {
	// LoadProducts moves idle -> loadingProducts -> readyToPurchase.
	LoadProducts(ctx context.Context) ([]model.Product, error)
	// Purchase runs one attempt for the product and returns the terminal
	// flow state. A user cancellation leaves the canonical subscription
	// state byte-for-byte unchanged.
	Purchase(ctx context.Context, userID, productID string) (model.PurchaseState, error)
	// Restore replays store-owned transactions through the reconciler.
	Restore(ctx context.Context, userID string) (model.RestoreResult, error)
	// State returns the current flow state.
	State() model.PurchaseState
	// Reset returns a terminal flow to idle for the next attempt.
	Reset()
}

type purchaseUC struct {
	store      adapter.StoreGateway
	reconciler ReconcilerUseCase
	log        *zerolog.Logger

	mu    sync.Mutex
	state model.PurchaseState
}

func NewPurchaseUseCase(store adapter.StoreGateway, reconciler ReconcilerUseCase, logger *zerolog.Logger) *purchaseUC {
	l := logger.With().Str("component", "PurchaseFlow").Logger()
	return &purchaseUC{
		store:      store,
		reconciler: reconciler,
		log:        &l,
		state:      model.IdlePurchaseState(),
	}
}

func (uc *purchaseUC) State() model.PurchaseState {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.state
}

func (uc *purchaseUC) Reset() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.state.IsTerminal() {
		uc.state = model.IdlePurchaseState()
	}
}

// tryBegin claims the flow for one attempt: the purchasability check and
// the move to purchasing happen under the same lock, so concurrent calls
// cannot both pass the guard and reach the store.
func (uc *purchaseUC) tryBegin() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if !uc.state.CanPurchase() {
		return false
	}
	uc.state = model.PurchaseState{Phase: model.PhasePurchasing}
	return true
}

// transition moves the machine to next when legal; illegal moves are
// programming errors and are logged, not silently applied.
func (uc *purchaseUC) transition(next model.PurchaseState) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if !uc.state.CanTransition(next.Phase) {
		uc.log.Error().
			Str("from", string(uc.state.Phase)).
			Str("to", string(next.Phase)).
			Msg("illegal purchase flow transition")
		return false
	}
	uc.state = next
	return true
}

func (uc *purchaseUC) LoadProducts(ctx context.Context) ([]model.Product, error) {
	if !uc.transition(model.PurchaseState{Phase: model.PhaseLoadingProducts}) {
		return nil, domain.ErrPurchaseInProgress
	}

	ids := make([]string, 0, len(model.Catalog))
	for _, p := range model.Catalog {
		ids = append(ids, p.ID)
	}
	products, err := uc.store.LoadProducts(ctx, ids)
	if err != nil {
		perr := classifyStoreError(err)
		uc.transition(model.PurchaseState{Phase: model.PhaseFailed, Err: &perr})
		return nil, perr
	}
	if len(products) == 0 {
		perr := model.PurchaseError{Code: model.PurchaseErrInvalidProduct}
		uc.transition(model.PurchaseState{Phase: model.PhaseFailed, Err: &perr})
		return nil, perr
	}
	uc.transition(model.PurchaseState{Phase: model.PhaseReadyToPurchase})
	return products, nil
}

func (uc *purchaseUC) Purchase(ctx context.Context, userID, productID string) (model.PurchaseState, error) {
	if !uc.tryBegin() {
		return uc.State(), domain.ErrPurchaseInProgress
	}
	if _, ok := model.ProductByID(productID); !ok {
		perr := model.PurchaseError{Code: model.PurchaseErrInvalidProduct}
		uc.transition(model.PurchaseState{Phase: model.PhaseFailed, Err: &perr})
		return uc.State(), perr
	}

	attemptID := uuid.NewString()
	uc.log.Info().Str("attempt_id", attemptID).Str("product_id", productID).Msg("purchase attempt started")

	result, err := uc.store.Purchase(ctx, productID)
	if err != nil {
		perr := classifyStoreError(err)
		metrics.PurchaseFinished(string(model.OutcomeFailed))
		uc.transition(model.PurchaseState{Phase: model.PhaseFailed, Err: &perr})
		return uc.State(), perr
	}

	switch result.Outcome {
	case model.OutcomeCancelled, model.OutcomePending:
		// Nothing entitling happened; canonical state stays untouched.
		metrics.PurchaseFinished(string(result.Outcome))
		uc.transition(model.PurchaseState{Phase: model.PhaseCompleted, Result: &result})
		return uc.State(), nil
	case model.OutcomeFailed:
		perr := result.Err
		if perr == nil {
			perr = &model.PurchaseError{Code: model.PurchaseErrUnknown}
		}
		metrics.PurchaseFinished(string(model.OutcomeFailed))
		uc.transition(model.PurchaseState{Phase: model.PhaseFailed, Err: perr})
		return uc.State(), *perr
	}

	// Success: the transaction must pass through reconciliation before the
	// purchase counts as entitling.
	uc.transition(model.PurchaseState{Phase: model.PhaseProcessing})
	if result.Transaction == nil {
		perr := model.PurchaseError{Code: model.PurchaseErrVerification}
		metrics.PurchaseFinished(string(model.OutcomeFailed))
		uc.transition(model.PurchaseState{Phase: model.PhaseFailed, Err: &perr})
		return uc.State(), perr
	}
	if err := uc.applyTransaction(ctx, userID, *result.Transaction); err != nil {
		perr := model.PurchaseError{Code: model.PurchaseErrServerValidation, Wrapped: err.Error()}
		metrics.PurchaseFinished(string(model.OutcomeFailed))
		uc.transition(model.PurchaseState{Phase: model.PhaseFailed, Err: &perr})
		return uc.State(), perr
	}

	metrics.PurchaseFinished(string(model.OutcomeSuccess))
	uc.transition(model.PurchaseState{Phase: model.PhaseCompleted, Result: &result})
	uc.log.Info().Str("attempt_id", attemptID).Str("transaction_id", result.Transaction.TransactionID).Msg("purchase completed")
	return uc.State(), nil
}

// applyTransaction feeds an opaque store transaction into the reconciler as
// a local validation result.
func (uc *purchaseUC) applyTransaction(ctx context.Context, userID string, tx model.Transaction) error {
	state := stateFromTransaction(tx)
	result := model.SuccessResult(state, model.SourceLocal, tx.TransactionID)
	_, err := uc.reconciler.ApplyValidation(ctx, userID, result)
	return err
}

func (uc *purchaseUC) Restore(ctx context.Context, userID string) (model.RestoreResult, error) {
	result, err := uc.store.Restore(ctx)
	if err != nil {
		rerr := &model.RestoreError{Code: model.RestoreErrStore, Wrapped: err.Error()}
		return model.RestoreResult{Err: rerr}, rerr
	}
	if result.Err != nil {
		return result, result.Err
	}
	if result.NoEntitlementsFound() {
		uc.log.Info().Str("user_id", userID).Msg("restore found no entitlements")
		return result, nil
	}

	newest := result.Transactions[0]
	for _, tx := range result.Transactions[1:] {
		if tx.PurchaseDate.After(newest.PurchaseDate) {
			newest = tx
		}
	}
	if err := uc.applyTransaction(ctx, userID, newest); err != nil {
		rerr := &model.RestoreError{Code: model.RestoreErrVerification, Wrapped: err.Error()}
		return model.RestoreResult{Err: rerr}, rerr
	}
	uc.log.Info().
		Str("user_id", userID).
		Int("transactions", len(result.Transactions)).
		Msg("restore applied")
	return result, nil
}

// classifyStoreError maps transport failures onto the purchase taxonomy.
func classifyStoreError(err error) model.PurchaseError {
	if ctxErr := errContext(err); ctxErr != "" {
		return model.PurchaseError{Code: model.PurchaseErrNetwork, Wrapped: ctxErr}
	}
	return model.PurchaseError{Code: model.PurchaseErrStore, Wrapped: err.Error()}
}

func errContext(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err.Error()
	}
	return ""
}
