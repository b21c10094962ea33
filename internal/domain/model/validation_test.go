//go:build !integration

package model

import (
	"testing"
	"time"
)

func TestValidationResult_Factories(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)

	t.Run("success result", func(t *testing.T) {
		state := ActiveState(TierPremium, future, ProductPremiumYearly, true)
		r := SuccessResult(state, SourceServer, "hash-1")
		if !r.IsValid() {
			t.Error("success over an active state should be valid")
		}
		if r.Source != SourceServer || r.ReceiptHash != "hash-1" || r.Attempts != 1 {
			t.Errorf("unexpected result fields: %+v", r)
		}
	})

	t.Run("failure result fails closed", func(t *testing.T) {
		r := FailureResult("server unreachable", SourceServer)
		if r.IsValid() {
			t.Error("a failed validation must never be valid")
		}
		if r.State.HasActiveAccess() {
			t.Error("a failed validation must carry the non-subscribed state")
		}
		if r.Error == "" {
			t.Error("failure result must keep the error text")
		}
	})

	t.Run("success over non-entitling state is not valid", func(t *testing.T) {
		r := SuccessResult(NonSubscribed(), SourceLocal, "")
		if r.IsValid() {
			t.Error("a clean check that found nothing is not an entitling result")
		}
	})
}

func TestCachedResult(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	original := SuccessResult(ActiveState(TierPremium, future, ProductPremiumYearly, true), SourceServer, "hash-2")
	original.Timestamp = time.Now().Add(-10 * time.Minute)

	cached := CachedResult(original)

	if cached.Source != SourceCached {
		t.Errorf("expected source 'cached', got %q", cached.Source)
	}
	if !cached.Timestamp.Equal(original.Timestamp) {
		t.Error("demotion must preserve the original validation timestamp")
	}
	if original.Source != SourceServer {
		t.Error("CachedResult must not mutate the original")
	}
}

func TestValidationResult_Staleness(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	state := ActiveState(TierPremium, future, ProductPremiumYearly, true)

	t.Run("fresh result stays usable for an hour", func(t *testing.T) {
		r := SuccessResult(state, SourceServer, "")
		r.Timestamp = time.Now().Add(-45 * time.Minute)
		if r.IsStale() {
			t.Error("a 45-minute-old server result should still be usable")
		}
		r.Timestamp = time.Now().Add(-61 * time.Minute)
		if !r.IsStale() {
			t.Error("a result past the fresh threshold must be stale")
		}
	})

	t.Run("cached result decays in 15 minutes", func(t *testing.T) {
		r := CachedResult(SuccessResult(state, SourceServer, ""))
		r.Timestamp = time.Now().Add(-20 * time.Minute)
		if !r.IsStale() {
			t.Error("a 20-minute-old cached result must be stale")
		}
		r.Timestamp = time.Now().Add(-10 * time.Minute)
		if r.IsStale() {
			t.Error("a 10-minute-old cached result should still be usable")
		}
	})
}

func TestValidationSource_TrustLevel(t *testing.T) {
	order := []ValidationSource{SourceCached, SourceLocal, SourceWebhook, SourceServer}
	for i := 1; i < len(order); i++ {
		if order[i].TrustLevel() <= order[i-1].TrustLevel() {
			t.Errorf("expected %q to outrank %q", order[i], order[i-1])
		}
	}
	if SourceUnknown.TrustLevel() >= SourceCached.TrustLevel() {
		t.Error("unknown source must rank below every real source")
	}
}
