package validation

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"growth-subscription-service/internal/domain"
	"growth-subscription-service/internal/domain/model"
	"growth-subscription-service/internal/domain/ports/adapter"
	"growth-subscription-service/internal/infra/metrics"
)

var _ adapter.ReceiptValidator = (*ServerValidator)(nil)

// ServerValidator posts receipt data to the validation endpoint and maps the
// response into a server-sourced validation result. Timeouts surface as
// domain.ErrValidationTimeout so callers can fall back instead of hanging.
type ServerValidator struct {
	endpoint string
	apiKey   string
	client   *http.Client
	log      *zerolog.Logger
}

func NewServerValidator(endpoint, apiKey string, timeout time.Duration, logger *zerolog.Logger) (*ServerValidator, error) {
	if endpoint == "" {
		return nil, errors.New("validation endpoint empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	compLog := logger.With().Str("component", "ServerValidator").Logger()
	return &ServerValidator{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		log:      &compLog,
	}, nil
}

func (v *ServerValidator) Name() string { return "server" }

// validationResponse is the endpoint's wire shape. Dates are RFC3339.
type validationResponse struct {
	IsValid            bool   `json:"isValid"`
	Status             string `json:"status"`
	ProductID          string `json:"productId"`
	TransactionID      string `json:"transactionId"`
	ExpirationDate     string `json:"expirationDate"`
	PurchaseDate       string `json:"purchaseDate"`
	IsTrialActive      bool   `json:"isTrialActive"`
	AutoRenewalEnabled bool   `json:"autoRenewalEnabled"`
	Error              string `json:"error"`
}

func (v *ServerValidator) ValidateReceipt(ctx context.Context, receiptData []byte) (model.ValidationResult, error) {
	started := time.Now()
	result, err := v.call(ctx, receiptData)
	metrics.ObserveValidationLatency(float64(time.Since(started).Milliseconds()), err == nil && result.Error == "")
	return result, err
}

func (v *ServerValidator) call(ctx context.Context, receiptData []byte) (model.ValidationResult, error) {
	payload := map[string]any{}
	if len(receiptData) > 0 {
		payload["receiptData"] = receiptData
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return model.ValidationResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(b))
	if err != nil {
		return model.ValidationResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return model.ValidationResult{}, domain.ErrValidationTimeout
		}
		return model.ValidationResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.ValidationResult{}, fmt.Errorf("validation endpoint returned %d", resp.StatusCode)
	}

	var out validationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.ValidationResult{}, err
	}
	if out.Error != "" {
		v.log.Warn().Str("error", out.Error).Msg("validation endpoint reported failure")
		return model.FailureResult(out.Error, model.SourceServer), nil
	}

	state := v.stateFromResponse(out)
	return model.SuccessResult(state, model.SourceServer, receiptHash(receiptData)), nil
}

func (v *ServerValidator) stateFromResponse(out validationResponse) model.SubscriptionState {
	if !out.IsValid {
		return model.NonSubscribed()
	}
	state := model.SubscriptionState{
		Tier:               model.TierForProduct(out.ProductID),
		Status:             model.SubscriptionStatus(out.Status),
		IsTrialActive:      out.IsTrialActive,
		AutoRenewalEnabled: out.AutoRenewalEnabled,
		LastUpdated:        time.Now(),
		ValidationSource:   model.SourceServer,
		ProductID:          out.ProductID,
		TransactionID:      out.TransactionID,
	}
	if state.Status == "" {
		state.Status = model.StatusActive
	}
	if t, err := time.Parse(time.RFC3339, out.ExpirationDate); err == nil {
		state.ExpirationDate = &t
	}
	if t, err := time.Parse(time.RFC3339, out.PurchaseDate); err == nil {
		state.PurchaseDate = &t
	}
	// An entitling answer without an expiration cannot be trusted open.
	if state.ExpirationDate == nil && state.Status == model.StatusActive {
		return model.NonSubscribed()
	}
	if state.ExpirationDate != nil && time.Now().After(*state.ExpirationDate) && state.Status == model.StatusActive {
		state.Status = model.StatusExpired
		state.Tier = model.TierNone
	}
	return state
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func receiptHash(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
