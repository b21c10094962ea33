// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"growth-subscription-service/internal/domain"
	"growth-subscription-service/internal/domain/model"
	"growth-subscription-service/internal/domain/ports/adapter"
	"growth-subscription-service/internal/domain/ports/repository"
	"growth-subscription-service/internal/infra/logging"
	"growth-subscription-service/internal/infra/metrics"
)

// Compile-time check
var _ ReconcilerUseCase = (*reconcilerUC)(nil)

// ReconcilerUseCase merges validation results and webhook updates into the
// one canonical SubscriptionState. It is the single writer of the persisted
// snapshot; all other components read through it.
type ReconcilerUseCase interface {
	// CurrentState returns the canonical state, loading the persisted
	// snapshot at session start and defaulting to non-subscribed.
	CurrentState(ctx context.Context, userID string) (model.SubscriptionState, error)
	// ApplyValidation merges a new validation result with the persisted
	// snapshot and atomically replaces it.
	ApplyValidation(ctx context.Context, userID string, result model.ValidationResult) (model.SubscriptionState, error)
	// ApplyWebhook merges a server-push update. Re-delivering the same
	// transactionId+eventType is a no-op after the first application.
	ApplyWebhook(ctx context.Context, userID string, update model.WebhookUpdate) (model.SubscriptionState, error)
	// Refresh runs a fresh local check plus server validation and merges
	// the outcome. A server timeout falls back to the last valid non-stale
	// result, else the state resolves fail-closed.
	Refresh(ctx context.Context, userID string) (model.SubscriptionState, error)
	// LastValidation exposes the validation that produced the canonical
	// state, demoted to the cached source for staleness accounting.
	LastValidation(ctx context.Context, userID string) (*model.ValidationResult, error)
	// SignOut clears the persisted snapshot entirely.
	SignOut(ctx context.Context, userID string) error
}

type reconcilerUC struct {
	snapshots repository.SnapshotRepository
	events    repository.WebhookEventRepository
	guard     repository.IdempotencyGuard
	store     adapter.StoreGateway
	validator adapter.ReceiptValidator
	log       *zerolog.Logger

	// One coordination point per user session: every merge is a
	// read-merge-replace under the session lock, never a field update.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewReconcilerUseCase(
	snapshots repository.SnapshotRepository,
	events repository.WebhookEventRepository,
	guard repository.IdempotencyGuard,
	store adapter.StoreGateway,
	validator adapter.ReceiptValidator,
	logger *zerolog.Logger,
) *reconcilerUC {
	l := logger.With().Str("component", "Reconciler").Logger()
	return &reconcilerUC{
		snapshots: snapshots,
		events:    events,
		guard:     guard,
		store:     store,
		validator: validator,
		log:       &l,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (uc *reconcilerUC) sessionLock(userID string) *sync.Mutex {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	l, ok := uc.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		uc.locks[userID] = l
	}
	return l
}

// loadSnapshot reads the persisted snapshot, defaulting to non-subscribed
// when none exists yet.
func (uc *reconcilerUC) loadSnapshot(ctx context.Context, userID string) (*repository.Snapshot, error) {
	snap, err := uc.snapshots.Load(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &repository.Snapshot{State: model.NonSubscribed()}, nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (uc *reconcilerUC) CurrentState(ctx context.Context, userID string) (model.SubscriptionState, error) {
	snap, err := uc.loadSnapshot(ctx, userID)
	if err != nil {
		return model.NonSubscribed(), err
	}
	return snap.State, nil
}

func (uc *reconcilerUC) LastValidation(ctx context.Context, userID string) (*model.ValidationResult, error) {
	snap, err := uc.loadSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snap.LastValidation == nil {
		return nil, nil
	}
	cached := model.CachedResult(*snap.LastValidation)
	return &cached, nil
}

func (uc *reconcilerUC) ApplyValidation(ctx context.Context, userID string, result model.ValidationResult) (model.SubscriptionState, error) {
	lock := uc.sessionLock(userID)
	lock.Lock()
	defer lock.Unlock()

	snap, err := uc.loadSnapshot(ctx, userID)
	if err != nil {
		return model.NonSubscribed(), err
	}

	next, adopted := mergeValidation(snap, result)
	if adopted {
		if err := uc.snapshots.Save(ctx, userID, next); err != nil {
			return snap.State, err
		}
		metrics.ReconcileApplied(string(result.Source))
		metrics.CanonicalStatusObserved(string(next.State.Status))
		uc.log.Debug().
			Str("user_id", userID).
			Str("source", string(result.Source)).
			Str("status", string(next.State.Status)).
			Msg("validation adopted")
	}
	return next.State, nil
}

// mergeValidation computes the candidate next snapshot from the previous
// one and an incoming validation result. It returns whether the incoming
// result was adopted as canonical.
//
// Policy: a freshly computed local/server result supersedes anything whose
// provenance is merely cached, independent of arrival order. Otherwise
// conflicts resolve by source trust (cached < local < webhook < server),
// with staleness breaking ties: a fresh lower-trust result replaces a stale
// higher-trust one. Erroring results never overwrite a valid, non-stale
// state; they only win when the previous state is itself unusable.
func mergeValidation(prev *repository.Snapshot, incoming model.ValidationResult) (*repository.Snapshot, bool) {
	adopt := false
	switch {
	case incoming.IsStale():
		// Too old to gate anything on; never adopt silently.
	case incoming.Error != "":
		// Fail-closed, but only once the previous result is unusable.
		adopt = prev.LastValidation == nil || prev.LastValidation.IsStale() || !prev.LastValidation.IsValid()
	case prev.LastValidation == nil:
		adopt = true
	case prev.LastValidation.Source == model.SourceCached &&
		(incoming.Source == model.SourceLocal || incoming.Source == model.SourceServer):
		// Strictly newer information at no lower trust.
		adopt = true
	case incoming.Source.TrustLevel() >= prev.LastValidation.Source.TrustLevel():
		adopt = true
	case prev.LastValidation.IsStale():
		adopt = true
	}
	if !adopt {
		return prev, false
	}
	state := incoming.State.Validated(incoming.Source)
	result := incoming
	result.State = state
	return &repository.Snapshot{State: state, LastValidation: &result}, true
}

func (uc *reconcilerUC) ApplyWebhook(ctx context.Context, userID string, update model.WebhookUpdate) (model.SubscriptionState, error) {
	defer logging.TraceDuration(uc.log, "ReconcilerUC.ApplyWebhook")()
	lock := uc.sessionLock(userID)
	lock.Lock()
	defer lock.Unlock()

	snap, err := uc.loadSnapshot(ctx, userID)
	if err != nil {
		return model.NonSubscribed(), err
	}

	first, err := uc.guard.FirstApplication(ctx, update.DedupKey())
	if err != nil {
		return snap.State, err
	}
	if !first {
		metrics.WebhookObserved(string(update.EventType), "duplicate")
		uc.log.Debug().Str("dedup_key", update.DedupKey()).Msg("webhook re-delivery ignored")
		return snap.State, nil
	}

	if err := uc.recordEvent(ctx, update); err != nil {
		// The audit log is best-effort; the canonical state still moves.
		// A duplicate here means a prior attempt recorded the event but
		// failed before persisting, so this retry must still apply.
		if !errors.Is(err, domain.ErrDuplicateEvent) {
			uc.log.Warn().Err(err).Str("transaction_id", update.TransactionID).Msg("webhook audit insert failed")
		}
	}

	delta := stateFromWebhook(update)
	if !shouldApplyWebhook(snap, delta, update) {
		metrics.WebhookObserved(string(update.EventType), "deferred")
		uc.log.Info().
			Str("event", string(update.EventType)).
			Str("derived_status", string(delta.Status)).
			Msg("webhook recorded but not applied over newer server validation")
		return snap.State, nil
	}

	result := model.SuccessResult(delta, model.SourceWebhook, update.TransactionID)
	result.State = delta
	next := &repository.Snapshot{State: delta, LastValidation: &result}
	if err := uc.snapshots.Save(ctx, userID, next); err != nil {
		// The claim landed but the state change did not; release it so
		// the store's retry of this delivery applies instead of being
		// swallowed as a duplicate.
		if relErr := uc.guard.Release(ctx, update.DedupKey()); relErr != nil {
			uc.log.Error().Err(relErr).Str("dedup_key", update.DedupKey()).Msg("webhook claim release failed")
		}
		return snap.State, err
	}
	metrics.WebhookObserved(string(update.EventType), "applied")
	metrics.CanonicalStatusObserved(string(delta.Status))
	uc.log.Info().
		Str("user_id", userID).
		Str("event", string(update.EventType)).
		Str("status", string(delta.Status)).
		Msg("webhook applied")
	return delta, nil
}

// stateFromWebhook translates a webhook update into a canonical state delta.
func stateFromWebhook(update model.WebhookUpdate) model.SubscriptionState {
	status := update.DerivedStatus()
	tier := model.TierNone
	if status == model.StatusActive || status == model.StatusGrace {
		tier = model.TierForProduct(update.ProductID)
	}
	return model.SubscriptionState{
		Tier:                tier,
		Status:              status,
		ExpirationDate:      update.ExpirationDate,
		PurchaseDate:        update.PurchaseDate,
		IsTrialActive:       update.IsTrialActive && status == model.StatusActive,
		TrialExpirationDate: update.TrialExpirationDate,
		AutoRenewalEnabled:  update.AutoRenewalEnabled && status != model.StatusExpired,
		LastUpdated:         time.Now(),
		ValidationSource:    model.SourceWebhook,
		ProductID:           update.ProductID,
		TransactionID:       update.TransactionID,
		CancellationDate:    update.CancellationDate,
		GracePeriodEndDate:  update.GracePeriodEndDate,
	}
}

// shouldApplyWebhook decides whether the delta replaces the canonical state
// now. Equal-or-higher attention severity always replaces. A lower-severity
// delta still applies unless it would downgrade a server validation that is
// both fresh and newer than the webhook delivery.
func shouldApplyWebhook(prev *repository.Snapshot, delta model.SubscriptionState, update model.WebhookUpdate) bool {
	if delta.Status.AttentionSeverity() >= prev.State.Status.AttentionSeverity() {
		return true
	}
	lv := prev.LastValidation
	if lv != nil && lv.Source == model.SourceServer && !lv.IsStale() && lv.Timestamp.After(update.ReceivedAt) {
		return false
	}
	return true
}

func (uc *reconcilerUC) recordEvent(ctx context.Context, update model.WebhookUpdate) error {
	if uc.events == nil {
		return nil
	}
	payload, err := update.EncodePayload()
	if err != nil {
		return err
	}
	return uc.events.Insert(ctx, &repository.WebhookEventRecord{
		ID:            ulid.Make().String(),
		TransactionID: update.TransactionID,
		EventType:     update.EventType,
		Status:        update.SubscriptionStatus,
		ProductID:     update.ProductID,
		Environment:   update.Environment,
		Payload:       payload,
		ReceivedAt:    update.ReceivedAt,
	})
}

// Refresh runs the local entitlement check and the server validation and
// merges whichever arrive. The two sources are independent; either may fail
// without sinking the other.
func (uc *reconcilerUC) Refresh(ctx context.Context, userID string) (model.SubscriptionState, error) {
	defer logging.TraceDuration(uc.log, "ReconcilerUC.Refresh")()
	local := uc.localCheck(ctx)
	state, err := uc.ApplyValidation(ctx, userID, local)
	if err != nil {
		return state, err
	}

	server, serverErr := uc.serverCheck(ctx)
	if serverErr != nil {
		// Timeout or transport failure: fall back to the last valid
		// non-stale result; otherwise deny pending a fresh success.
		return uc.fallback(ctx, userID, serverErr)
	}
	return uc.ApplyValidation(ctx, userID, server)
}

// localCheck derives a validation result from the store's current
// entitlements on this device.
func (uc *reconcilerUC) localCheck(ctx context.Context) model.ValidationResult {
	txs, err := uc.store.CurrentEntitlements(ctx)
	if err != nil {
		metrics.ValidationPerformed(string(model.SourceLocal), false)
		return model.FailureResult(err.Error(), model.SourceLocal)
	}
	metrics.ValidationPerformed(string(model.SourceLocal), true)
	if len(txs) == 0 {
		return model.SuccessResult(model.NonSubscribed(), model.SourceLocal, "")
	}
	// Newest entitlement wins when several overlap.
	newest := txs[0]
	for _, tx := range txs[1:] {
		if tx.PurchaseDate.After(newest.PurchaseDate) {
			newest = tx
		}
	}
	state := stateFromTransaction(newest)
	return model.SuccessResult(state, model.SourceLocal, newest.TransactionID)
}

func (uc *reconcilerUC) serverCheck(ctx context.Context) (model.ValidationResult, error) {
	result, err := uc.validator.ValidateReceipt(ctx, nil)
	if err != nil {
		metrics.ValidationPerformed(string(model.SourceServer), false)
		return model.ValidationResult{}, err
	}
	metrics.ValidationPerformed(string(model.SourceServer), true)
	return result, nil
}

func (uc *reconcilerUC) fallback(ctx context.Context, userID string, cause error) (model.SubscriptionState, error) {
	snap, err := uc.loadSnapshot(ctx, userID)
	if err != nil {
		return model.NonSubscribed(), err
	}
	lv := snap.LastValidation
	if lv != nil && lv.IsValid() && !lv.IsStale() {
		metrics.StaleFallback(false)
		uc.log.Warn().Err(cause).Msg("server validation unavailable, serving last valid result")
		return snap.State, nil
	}
	metrics.StaleFallback(true)
	uc.log.Warn().Err(cause).Msg("server validation unavailable and no usable fallback, failing closed")
	return uc.ApplyValidation(ctx, userID, model.FailureResult(cause.Error(), model.SourceServer))
}

// stateFromTransaction builds the locally validated state for an opaque
// store transaction, deriving the expiration from the product's duration.
func stateFromTransaction(tx model.Transaction) model.SubscriptionState {
	product, ok := model.ProductByID(tx.ProductID)
	if !ok {
		// Legacy identifiers migrate deterministically before giving up.
		if current, migrated := model.MigrateProductID(tx.ProductID); migrated {
			product, ok = model.ProductByID(current)
		}
		if !ok {
			return model.NonSubscribed()
		}
	}
	expiration := expirationAfter(tx.PurchaseDate, product.Duration)
	state := model.ActiveState(product.Tier, expiration, product.ID, true)
	state.PurchaseDate = &tx.PurchaseDate
	state.TransactionID = tx.TransactionID
	if time.Now().After(expiration) {
		return state.Expired()
	}
	return state
}

func expirationAfter(purchase time.Time, d model.SubscriptionDuration) time.Time {
	switch d {
	case model.DurationWeekly:
		return purchase.AddDate(0, 0, 7)
	case model.DurationQuarterly:
		return purchase.AddDate(0, 3, 0)
	default:
		return purchase.AddDate(1, 0, 0)
	}
}

func (uc *reconcilerUC) SignOut(ctx context.Context, userID string) error {
	lock := uc.sessionLock(userID)
	lock.Lock()
	defer lock.Unlock()
	if err := uc.snapshots.Clear(ctx, userID); err != nil {
		return err
	}
	uc.log.Info().Str("user_id", userID).Msg("subscription snapshot cleared")
	return nil
}
