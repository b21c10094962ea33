package model

import (
	"encoding/json"
	"time"
)

// WebhookEventType is the notification type sent by the store server.
type WebhookEventType string

const (
	EventPurchased     WebhookEventType = "INITIAL_BUY"
	EventRenewed       WebhookEventType = "DID_RENEW"
	EventCancelled     WebhookEventType = "CANCEL"
	EventExpired       WebhookEventType = "EXPIRED"
	EventRefunded      WebhookEventType = "REFUND"
	EventGracePeriod   WebhookEventType = "GRACE_PERIOD"
	EventBillingRetry  WebhookEventType = "DID_FAIL_TO_RENEW"
	EventRevoked       WebhookEventType = "REVOKE"
	EventPriceIncrease WebhookEventType = "PRICE_INCREASE_CONSENT"
	EventOfferRedeemed WebhookEventType = "OFFER_REDEEMED"
)

func (e WebhookEventType) isKnown() bool {
	switch e {
	case EventPurchased, EventRenewed, EventCancelled, EventExpired,
		EventRefunded, EventGracePeriod, EventBillingRetry, EventRevoked,
		EventPriceIncrease, EventOfferRedeemed:
		return true
	}
	return false
}

// WebhookSubscriptionStatus is the subscription status as reported by the
// store server, independent from the canonical SubscriptionStatus.
type WebhookSubscriptionStatus string

const (
	WebhookStatusActive       WebhookSubscriptionStatus = "active"
	WebhookStatusExpired      WebhookSubscriptionStatus = "expired"
	WebhookStatusBillingRetry WebhookSubscriptionStatus = "billing_retry"
	WebhookStatusGracePeriod  WebhookSubscriptionStatus = "grace_period"
	WebhookStatusRevoked      WebhookSubscriptionStatus = "revoked"
)

func (s WebhookSubscriptionStatus) isKnown() bool {
	switch s {
	case WebhookStatusActive, WebhookStatusExpired, WebhookStatusBillingRetry,
		WebhookStatusGracePeriod, WebhookStatusRevoked:
		return true
	}
	return false
}

// WebhookUpdate is a normalized server-push notification. It is a transient
// reconciliation input, never the persisted source of truth.
type WebhookUpdate struct {
	TransactionID         string
	OriginalTransactionID string
	SubscriptionStatus    WebhookSubscriptionStatus
	ExpirationDate        *time.Time
	EventType             WebhookEventType
	BundleID              string
	ProductID             string
	PurchaseDate          *time.Time
	IsTrialActive         bool
	TrialExpirationDate   *time.Time
	AutoRenewalEnabled    bool
	CancellationDate      *time.Time
	GracePeriodEndDate    *time.Time
	ReceivedAt            time.Time
	Environment           string
}

// IsActive reports whether the update still represents entitling access.
// Billing retry keeps access only while the expiration date has not passed.
func (u WebhookUpdate) IsActive() bool {
	switch u.SubscriptionStatus {
	case WebhookStatusActive, WebhookStatusGracePeriod:
		return true
	case WebhookStatusBillingRetry:
		return u.ExpirationDate != nil && time.Now().Before(*u.ExpirationDate)
	default:
		return false
	}
}

// RequiresUserAttention reports whether the update should surface to the user.
func (u WebhookUpdate) RequiresUserAttention() bool {
	switch u.SubscriptionStatus {
	case WebhookStatusBillingRetry, WebhookStatusGracePeriod,
		WebhookStatusExpired, WebhookStatusRevoked:
		return true
	}
	return false
}

// DedupKey identifies a delivery for idempotent application. Re-delivering
// the same transaction and event must not change the outcome twice.
func (u WebhookUpdate) DedupKey() string {
	return u.TransactionID + ":" + string(u.EventType)
}

// DerivedStatus maps the webhook status onto the canonical status space.
func (u WebhookUpdate) DerivedStatus() SubscriptionStatus {
	switch u.SubscriptionStatus {
	case WebhookStatusActive:
		return StatusActive
	case WebhookStatusGracePeriod:
		return StatusGrace
	case WebhookStatusBillingRetry:
		if u.ExpirationDate != nil && time.Now().Before(*u.ExpirationDate) {
			return StatusActive
		}
		return StatusExpired
	case WebhookStatusRevoked, WebhookStatusExpired:
		return StatusExpired
	default:
		return StatusNone
	}
}

// AttentionSeverity orders canonical statuses by how urgently they demand
// action. Webhook deltas replace the cached state only when their derived
// status is at least this severe.
func (s SubscriptionStatus) AttentionSeverity() int {
	switch s {
	case StatusActive, StatusPending:
		return 1
	case StatusCancelled:
		return 2
	case StatusGrace:
		return 3
	case StatusExpired:
		return 4
	default:
		return 0
	}
}

// webhookPayload is the wire shape of a notification, dates as ISO-8601
// strings and booleans optional so absent fields take documented defaults.
type webhookPayload struct {
	TransactionID         string `json:"transactionId"`
	OriginalTransactionID string `json:"originalTransactionId,omitempty"`
	SubscriptionStatus    string `json:"subscriptionStatus"`
	EventType             string `json:"eventType"`
	BundleID              string `json:"bundleId"`
	ProductID             string `json:"productId,omitempty"`
	PurchaseDate          string `json:"purchaseDate,omitempty"`
	ExpirationDate        string `json:"expirationDate,omitempty"`
	IsTrialActive         *bool  `json:"isTrialActive,omitempty"`
	TrialExpirationDate   string `json:"trialExpirationDate,omitempty"`
	AutoRenewalEnabled    *bool  `json:"autoRenewalEnabled,omitempty"`
	CancellationDate      string `json:"cancellationDate,omitempty"`
	GracePeriodEndDate    string `json:"gracePeriodEndDate,omitempty"`
	ReceivedAt            string `json:"receivedAt,omitempty"`
	Environment           string `json:"environment,omitempty"`
}

// WebhookFromPayload parses a raw notification body into a normalized
// update. The parse is total: malformed or incomplete payloads return
// ok=false, never a partially populated update. Unknown fields are ignored.
func WebhookFromPayload(raw []byte) (WebhookUpdate, bool) {
	var p webhookPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return WebhookUpdate{}, false
	}

	status := WebhookSubscriptionStatus(p.SubscriptionStatus)
	event := WebhookEventType(p.EventType)
	if p.TransactionID == "" || p.BundleID == "" || !status.isKnown() || !event.isKnown() {
		return WebhookUpdate{}, false
	}

	u := WebhookUpdate{
		TransactionID:         p.TransactionID,
		OriginalTransactionID: p.OriginalTransactionID,
		SubscriptionStatus:    status,
		EventType:             event,
		BundleID:              p.BundleID,
		ProductID:             p.ProductID,
		IsTrialActive:         false,
		AutoRenewalEnabled:    true,
		ReceivedAt:            time.Now(),
		Environment:           "production",
	}
	if p.IsTrialActive != nil {
		u.IsTrialActive = *p.IsTrialActive
	}
	if p.AutoRenewalEnabled != nil {
		u.AutoRenewalEnabled = *p.AutoRenewalEnabled
	}
	if p.Environment != "" {
		u.Environment = p.Environment
	}

	var ok bool
	if u.ExpirationDate, ok = parseOptionalDate(p.ExpirationDate); !ok {
		return WebhookUpdate{}, false
	}
	if u.PurchaseDate, ok = parseOptionalDate(p.PurchaseDate); !ok {
		return WebhookUpdate{}, false
	}
	if u.TrialExpirationDate, ok = parseOptionalDate(p.TrialExpirationDate); !ok {
		return WebhookUpdate{}, false
	}
	if u.CancellationDate, ok = parseOptionalDate(p.CancellationDate); !ok {
		return WebhookUpdate{}, false
	}
	if u.GracePeriodEndDate, ok = parseOptionalDate(p.GracePeriodEndDate); !ok {
		return WebhookUpdate{}, false
	}
	if p.ReceivedAt != "" {
		if t, err := time.Parse(time.RFC3339, p.ReceivedAt); err == nil {
			u.ReceivedAt = t
		}
	}
	return u, true
}

// EncodePayload serializes the update back to its wire shape. Encoding then
// decoding reproduces an equivalent update for every populated field.
func (u WebhookUpdate) EncodePayload() ([]byte, error) {
	trial := u.IsTrialActive
	renew := u.AutoRenewalEnabled
	p := webhookPayload{
		TransactionID:         u.TransactionID,
		OriginalTransactionID: u.OriginalTransactionID,
		SubscriptionStatus:    string(u.SubscriptionStatus),
		EventType:             string(u.EventType),
		BundleID:              u.BundleID,
		ProductID:             u.ProductID,
		PurchaseDate:          formatOptionalDate(u.PurchaseDate),
		ExpirationDate:        formatOptionalDate(u.ExpirationDate),
		IsTrialActive:         &trial,
		TrialExpirationDate:   formatOptionalDate(u.TrialExpirationDate),
		AutoRenewalEnabled:    &renew,
		CancellationDate:      formatOptionalDate(u.CancellationDate),
		GracePeriodEndDate:    formatOptionalDate(u.GracePeriodEndDate),
		ReceivedAt:            u.ReceivedAt.UTC().Format(time.RFC3339),
		Environment:           u.Environment,
	}
	return json.Marshal(p)
}

// parseOptionalDate accepts an empty string as absent; a present but
// unparseable date makes the whole payload invalid.
func parseOptionalDate(s string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
