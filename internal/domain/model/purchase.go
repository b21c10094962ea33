package model

import "time"

// Transaction is the opaque purchase record handed over by the external
// payment collaborator. The engine never inspects store internals beyond
// these fields.
type Transaction struct {
	ProductID     string    `json:"productId"`
	TransactionID string    `json:"transactionId"`
	PurchaseDate  time.Time `json:"purchaseDate"`
}

// PurchaseErrorCode classifies purchase failures.
type PurchaseErrorCode string

const (
	PurchaseErrNetwork          PurchaseErrorCode = "network_error"
	PurchaseErrInvalidProduct   PurchaseErrorCode = "invalid_product"
	PurchaseErrNotAllowed       PurchaseErrorCode = "payment_not_allowed"
	PurchaseErrCancelled        PurchaseErrorCode = "payment_cancelled"
	PurchaseErrStore            PurchaseErrorCode = "store_error"
	PurchaseErrVerification     PurchaseErrorCode = "verification_failed"
	PurchaseErrServerValidation PurchaseErrorCode = "server_validation_failed"
	PurchaseErrUnknown          PurchaseErrorCode = "unknown_error"
)

// PurchaseError carries a user-facing description, a recovery suggestion,
// and whether the caller should offer a retry.
type PurchaseError struct {
	Code    PurchaseErrorCode `json:"code"`
	Wrapped string            `json:"wrapped,omitempty"` // underlying store error text
}

func (e PurchaseError) Error() string { return e.Description() }

// Description is the human-readable failure explanation.
func (e PurchaseError) Description() string {
	switch e.Code {
	case PurchaseErrNetwork:
		return "Network connection required for purchase"
	case PurchaseErrInvalidProduct:
		return "This subscription is not available"
	case PurchaseErrNotAllowed:
		return "Purchases are not allowed on this device"
	case PurchaseErrCancelled:
		return "Purchase was cancelled"
	case PurchaseErrStore:
		if e.Wrapped != "" {
			return "Purchase failed: " + e.Wrapped
		}
		return "Purchase failed"
	case PurchaseErrVerification:
		return "Could not verify purchase"
	case PurchaseErrServerValidation:
		return "Server validation failed"
	default:
		return "An unknown error occurred"
	}
}

// RecoverySuggestion tells the user what to do next.
func (e PurchaseError) RecoverySuggestion() string {
	switch e.Code {
	case PurchaseErrNetwork:
		return "Check your internet connection and try again"
	case PurchaseErrInvalidProduct:
		return "Please try selecting a different subscription option"
	case PurchaseErrNotAllowed:
		return "Check your device restrictions in Settings"
	case PurchaseErrCancelled:
		return "Try purchasing again when ready"
	case PurchaseErrServerValidation:
		return "Please check your connection and try again"
	default:
		return "Please try again or contact support if the problem persists"
	}
}

// IsRetryable reports whether an automatic retry is allowed. Cancellations,
// policy denials, bad products and verification failures must never retry.
func (e PurchaseError) IsRetryable() bool {
	switch e.Code {
	case PurchaseErrNetwork, PurchaseErrStore, PurchaseErrServerValidation, PurchaseErrUnknown:
		return true
	default:
		return false
	}
}

// PurchaseOutcome classifies how a purchase attempt ended.
type PurchaseOutcome string

const (
	OutcomeSuccess   PurchaseOutcome = "success"
	OutcomeCancelled PurchaseOutcome = "cancelled"
	OutcomeFailed    PurchaseOutcome = "failed"
	OutcomePending   PurchaseOutcome = "pending"
)

// PurchaseResult is the terminal payload of one purchase attempt.
type PurchaseResult struct {
	Outcome     PurchaseOutcome `json:"outcome"`
	Transaction *Transaction    `json:"transaction,omitempty"`
	Err         *PurchaseError  `json:"error,omitempty"`
}

func (r PurchaseResult) IsSuccessful() bool { return r.Outcome == OutcomeSuccess }

// PurchasePhase is one state of the purchase flow machine.
type PurchasePhase string

const (
	PhaseIdle            PurchasePhase = "idle"
	PhaseLoadingProducts PurchasePhase = "loading_products"
	PhaseReadyToPurchase PurchasePhase = "ready_to_purchase"
	PhasePurchasing      PurchasePhase = "purchasing"
	PhaseProcessing      PurchasePhase = "processing"
	PhaseCompleted       PurchasePhase = "completed"
	PhaseFailed          PurchasePhase = "failed"
)

// PurchaseState tracks a purchase attempt through the flow
// idle -> loadingProducts -> readyToPurchase -> purchasing -> processing ->
// completed | failed. Terminal phases carry a result or an error.
type PurchaseState struct {
	Phase  PurchasePhase   `json:"phase"`
	Result *PurchaseResult `json:"result,omitempty"` // set in completed
	Err    *PurchaseError  `json:"error,omitempty"`  // set in failed
}

func IdlePurchaseState() PurchaseState { return PurchaseState{Phase: PhaseIdle} }

// CanPurchase holds only while products are loaded and no attempt runs.
func (s PurchaseState) CanPurchase() bool { return s.Phase == PhaseReadyToPurchase }

// IsLoading holds while the flow is waiting on the store or the validator.
func (s PurchaseState) IsLoading() bool {
	switch s.Phase {
	case PhaseLoadingProducts, PhasePurchasing, PhaseProcessing:
		return true
	}
	return false
}

// IsTerminal reports whether the attempt has finished either way.
func (s PurchaseState) IsTerminal() bool {
	return s.Phase == PhaseCompleted || s.Phase == PhaseFailed
}

// transitions lists the legal phase successors.
var purchaseTransitions = map[PurchasePhase][]PurchasePhase{
	PhaseIdle:            {PhaseLoadingProducts},
	PhaseLoadingProducts: {PhaseReadyToPurchase, PhaseFailed},
	PhaseReadyToPurchase: {PhasePurchasing},
	PhasePurchasing:      {PhaseProcessing, PhaseCompleted, PhaseFailed},
	PhaseProcessing:      {PhaseCompleted, PhaseFailed},
	PhaseCompleted:       {PhaseIdle},
	PhaseFailed:          {PhaseIdle, PhaseLoadingProducts},
}

// CanTransition reports whether moving to next is a legal step.
func (s PurchaseState) CanTransition(next PurchasePhase) bool {
	for _, p := range purchaseTransitions[s.Phase] {
		if p == next {
			return true
		}
	}
	return false
}

// RestoreErrorCode classifies restore failures.
type RestoreErrorCode string

const (
	RestoreErrNetwork         RestoreErrorCode = "network_error"
	RestoreErrStore           RestoreErrorCode = "store_error"
	RestoreErrNoSubscriptions RestoreErrorCode = "no_active_subscriptions"
	RestoreErrVerification    RestoreErrorCode = "verification_failed"
)

// RestoreError is a failure of the restore-purchases flow.
type RestoreError struct {
	Code    RestoreErrorCode `json:"code"`
	Wrapped string           `json:"wrapped,omitempty"`
}

func (e RestoreError) Error() string { return e.Description() }

func (e RestoreError) Description() string {
	switch e.Code {
	case RestoreErrNetwork:
		return "Network connection required to restore purchases"
	case RestoreErrStore:
		if e.Wrapped != "" {
			return "Restore failed: " + e.Wrapped
		}
		return "Restore failed"
	case RestoreErrNoSubscriptions:
		return "No active subscriptions found"
	default:
		return "Could not verify restored purchases"
	}
}

func (e RestoreError) RecoverySuggestion() string {
	switch e.Code {
	case RestoreErrNetwork:
		return "Check your internet connection and try again"
	case RestoreErrNoSubscriptions:
		return "Make sure you're signed in with the account used for purchase"
	default:
		return "Please try again or contact support"
	}
}

// RestoreResult is the outcome of a restore-purchases operation.
type RestoreResult struct {
	Transactions []Transaction `json:"transactions,omitempty"`
	Err          *RestoreError `json:"error,omitempty"`
}

func (r RestoreResult) IsSuccessful() bool { return r.Err == nil && len(r.Transactions) > 0 }

// NoEntitlementsFound reports a clean restore that surfaced nothing.
func (r RestoreResult) NoEntitlementsFound() bool { return r.Err == nil && len(r.Transactions) == 0 }
