package model

import "time"

// Staleness thresholds per validation source. A cached result decays much
// faster than a freshly computed one.
const (
	freshResultTTL  = 60 * time.Minute
	cachedResultTTL = 15 * time.Minute
)

// ValidationResult wraps a SubscriptionState together with how it was
// obtained. Results are transient inputs to reconciliation; the reconciler
// owns the canonical state they produce.
type ValidationResult struct {
	State       SubscriptionState `json:"state"`
	Source      ValidationSource  `json:"source"`
	Timestamp   time.Time         `json:"timestamp"`
	ReceiptHash string            `json:"receiptHash,omitempty"`
	Attempts    int               `json:"attempts"`
	Error       string            `json:"error,omitempty"`
}

// SuccessResult records a validation that completed without error.
func SuccessResult(state SubscriptionState, source ValidationSource, receiptHash string) ValidationResult {
	return ValidationResult{
		State:       state,
		Source:      source,
		Timestamp:   time.Now(),
		ReceiptHash: receiptHash,
		Attempts:    1,
	}
}

// FailureResult records an erroring validation attempt. The state defaults
// to non-subscribed so a failed check can never grant access.
func FailureResult(errMsg string, source ValidationSource) ValidationResult {
	return ValidationResult{
		State:     NonSubscribed(),
		Source:    source,
		Timestamp: time.Now(),
		Attempts:  1,
		Error:     errMsg,
	}
}

// CachedResult demotes a result to the cached source. The original timestamp
// is preserved so staleness keeps counting from the moment the original
// validation actually ran, not from the demotion.
func CachedResult(original ValidationResult) ValidationResult {
	demoted := original
	demoted.Source = SourceCached
	return demoted
}

// IsValid reports whether the result both completed cleanly and carries an
// entitling state.
func (r ValidationResult) IsValid() bool {
	return r.Error == "" && r.State.HasActiveAccess()
}

// StaleThreshold returns how long results from this source stay usable.
func (r ValidationResult) StaleThreshold() time.Duration {
	if r.Source == SourceCached {
		return cachedResultTTL
	}
	return freshResultTTL
}

// IsStale reports whether the result has outlived its source's threshold.
// Stale results must not back a feature-gate decision without a fresh
// validation attempt first.
func (r ValidationResult) IsStale() bool {
	return time.Since(r.Timestamp) > r.StaleThreshold()
}

// TrustLevel orders validation sources for conflict resolution. A webhook
// outranks a local check because only the store's server can observe
// billing-retry, grace, and revocation events.
func (s ValidationSource) TrustLevel() int {
	switch s {
	case SourceCached:
		return 1
	case SourceLocal:
		return 2
	case SourceWebhook:
		return 3
	case SourceServer:
		return 4
	default:
		return 0
	}
}
