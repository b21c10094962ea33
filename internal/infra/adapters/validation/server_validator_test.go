//go:build !integration

package validation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"growth-subscription-service/internal/domain"
	"growth-subscription-service/internal/domain/model"
)

func newValidator(t *testing.T, endpoint string, timeout time.Duration) *ServerValidator {
	t.Helper()
	logger := zerolog.New(io.Discard)
	v, err := NewServerValidator(endpoint, "test-key", timeout, &logger)
	if err != nil {
		t.Fatalf("validator init: %v", err)
	}
	return v
}

func TestServerValidator_ValidReceipt(t *testing.T) {
	expiration := time.Now().Add(30 * 24 * time.Hour).UTC().Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing API key header, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"isValid":            true,
			"status":             "active",
			"productId":          model.ProductPremiumYearly,
			"transactionId":      "txn-1",
			"expirationDate":     expiration,
			"autoRenewalEnabled": true,
		})
	}))
	defer srv.Close()

	v := newValidator(t, srv.URL, time.Second)
	result, err := v.ValidateReceipt(context.Background(), []byte("receipt-data"))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !result.IsValid() {
		t.Error("an active server answer must be a valid result")
	}
	if result.Source != model.SourceServer {
		t.Errorf("expected source 'server', got %q", result.Source)
	}
	if result.ReceiptHash == "" {
		t.Error("a receipt-backed validation must carry the receipt hash")
	}
	if result.State.Tier != model.TierPremium {
		t.Errorf("expected premium tier, got %q", result.State.Tier)
	}
}

func TestServerValidator_InvalidReceiptFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"isValid": false})
	}))
	defer srv.Close()

	v := newValidator(t, srv.URL, time.Second)
	result, err := v.ValidateReceipt(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.State.HasActiveAccess() {
		t.Error("an invalid receipt must resolve to the non-subscribed state")
	}
}

func TestServerValidator_ActiveWithoutExpirationFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"isValid":   true,
			"status":    "active",
			"productId": model.ProductPremiumYearly,
		})
	}))
	defer srv.Close()

	v := newValidator(t, srv.URL, time.Second)
	result, err := v.ValidateReceipt(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.State.HasActiveAccess() {
		t.Error("an entitling answer without an expiration date cannot be trusted")
	}
}

func TestServerValidator_ReportedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "receipt expired"})
	}))
	defer srv.Close()

	v := newValidator(t, srv.URL, time.Second)
	result, err := v.ValidateReceipt(context.Background(), nil)
	if err != nil {
		t.Fatalf("a reported failure is a result, not a transport error: %v", err)
	}
	if result.Error == "" {
		t.Error("the endpoint's failure text must be preserved")
	}
	if result.State.HasActiveAccess() {
		t.Error("a failed validation must deny")
	}
}

func TestServerValidator_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	v := newValidator(t, srv.URL, 20*time.Millisecond)
	_, err := v.ValidateReceipt(context.Background(), nil)
	if !errors.Is(err, domain.ErrValidationTimeout) {
		t.Errorf("expected ErrValidationTimeout, got: %v", err)
	}
}

func TestServerValidator_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := newValidator(t, srv.URL, time.Second)
	if _, err := v.ValidateReceipt(context.Background(), nil); err == nil {
		t.Error("a 5xx answer is a transport error the caller must fall back from")
	}
}

func TestServerValidator_EmptyEndpoint(t *testing.T) {
	logger := zerolog.New(io.Discard)
	if _, err := NewServerValidator("", "", time.Second, &logger); err == nil {
		t.Error("an empty endpoint must be rejected at construction")
	}
}
