//go:build !integration

package model

import "testing"

func TestPurchaseState_Transitions(t *testing.T) {
	t.Run("happy path is legal", func(t *testing.T) {
		path := []PurchasePhase{
			PhaseLoadingProducts, PhaseReadyToPurchase, PhasePurchasing,
			PhaseProcessing, PhaseCompleted, PhaseIdle,
		}
		s := IdlePurchaseState()
		for _, next := range path {
			if !s.CanTransition(next) {
				t.Fatalf("expected %q -> %q to be legal", s.Phase, next)
			}
			s = PurchaseState{Phase: next}
		}
	})

	t.Run("failed may retry without reloading products", func(t *testing.T) {
		s := PurchaseState{Phase: PhaseFailed}
		if !s.CanTransition(PhaseIdle) || !s.CanTransition(PhaseLoadingProducts) {
			t.Error("failed must allow a fresh attempt")
		}
	})

	t.Run("illegal jumps are rejected", func(t *testing.T) {
		cases := []struct{ from, to PurchasePhase }{
			{PhaseIdle, PhasePurchasing},
			{PhaseIdle, PhaseCompleted},
			{PhaseReadyToPurchase, PhaseCompleted},
			{PhaseCompleted, PhasePurchasing},
			{PhaseProcessing, PhasePurchasing},
		}
		for _, tc := range cases {
			s := PurchaseState{Phase: tc.from}
			if s.CanTransition(tc.to) {
				t.Errorf("%q -> %q must be illegal", tc.from, tc.to)
			}
		}
	})
}

func TestPurchaseState_Predicates(t *testing.T) {
	if !(PurchaseState{Phase: PhaseReadyToPurchase}).CanPurchase() {
		t.Error("readyToPurchase is the only purchasable phase")
	}
	for _, p := range []PurchasePhase{PhaseIdle, PhaseLoadingProducts, PhasePurchasing, PhaseProcessing, PhaseCompleted, PhaseFailed} {
		if (PurchaseState{Phase: p}).CanPurchase() {
			t.Errorf("phase %q must not allow purchasing", p)
		}
	}
	for _, p := range []PurchasePhase{PhaseLoadingProducts, PhasePurchasing, PhaseProcessing} {
		if !(PurchaseState{Phase: p}).IsLoading() {
			t.Errorf("phase %q is a loading phase", p)
		}
	}
	if !(PurchaseState{Phase: PhaseCompleted}).IsTerminal() || !(PurchaseState{Phase: PhaseFailed}).IsTerminal() {
		t.Error("completed and failed are terminal")
	}
	if (PurchaseState{Phase: PhasePurchasing}).IsTerminal() {
		t.Error("purchasing is not terminal")
	}
}

func TestPurchaseError_IsRetryable(t *testing.T) {
	retryable := []PurchaseErrorCode{PurchaseErrNetwork, PurchaseErrStore, PurchaseErrServerValidation, PurchaseErrUnknown}
	for _, code := range retryable {
		if !(PurchaseError{Code: code}).IsRetryable() {
			t.Errorf("%q should be retryable", code)
		}
	}
	terminal := []PurchaseErrorCode{PurchaseErrInvalidProduct, PurchaseErrNotAllowed, PurchaseErrCancelled, PurchaseErrVerification}
	for _, code := range terminal {
		if (PurchaseError{Code: code}).IsRetryable() {
			t.Errorf("%q must never retry", code)
		}
	}
}

func TestPurchaseError_Messages(t *testing.T) {
	codes := []PurchaseErrorCode{
		PurchaseErrNetwork, PurchaseErrInvalidProduct, PurchaseErrNotAllowed,
		PurchaseErrCancelled, PurchaseErrStore, PurchaseErrVerification,
		PurchaseErrServerValidation, PurchaseErrUnknown,
	}
	for _, code := range codes {
		e := PurchaseError{Code: code}
		if e.Description() == "" {
			t.Errorf("%q: empty description", code)
		}
		if e.RecoverySuggestion() == "" {
			t.Errorf("%q: empty recovery suggestion", code)
		}
		if e.Error() != e.Description() {
			t.Errorf("%q: Error() must surface the description", code)
		}
	}

	wrapped := PurchaseError{Code: PurchaseErrStore, Wrapped: "store exploded"}
	if wrapped.Description() == (PurchaseError{Code: PurchaseErrStore}).Description() {
		t.Error("store errors should surface the underlying failure text")
	}
}

func TestRestoreResult(t *testing.T) {
	empty := RestoreResult{}
	if empty.IsSuccessful() {
		t.Error("a restore with no transactions is not a success")
	}
	if !empty.NoEntitlementsFound() {
		t.Error("a clean empty restore reports no entitlements")
	}

	failed := RestoreResult{Err: &RestoreError{Code: RestoreErrStore}}
	if failed.IsSuccessful() || failed.NoEntitlementsFound() {
		t.Error("a failed restore reports neither success nor a clean empty result")
	}

	ok := RestoreResult{Transactions: []Transaction{{TransactionID: "t1"}}}
	if !ok.IsSuccessful() {
		t.Error("a restore with transactions is a success")
	}
}
