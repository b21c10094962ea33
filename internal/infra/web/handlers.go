package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"growth-subscription-service/internal/domain"
	"growth-subscription-service/internal/domain/model"
	"growth-subscription-service/internal/infra/logging"
	"growth-subscription-service/internal/infra/metrics"
)

// webhookBodyLimit bounds notification bodies; store payloads are small.
const webhookBodyLimit = 1 << 20

// handleWebhook ingests a store server notification. Malformed payloads are
// acknowledged with 204 so the store stops retrying junk; they are logged
// and dropped, never applied.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
	if err != nil || len(body) == 0 {
		http.Error(w, "Empty request body", http.StatusBadRequest)
		return
	}

	update, err := s.decoder.Decode(body)
	if err != nil {
		metrics.WebhookObserved("unknown", "rejected")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// The notification identifies the account via the original transaction.
	userID := update.OriginalTransactionID
	if userID == "" {
		userID = update.TransactionID
	}

	ctx := logging.WithUserID(r.Context(), userID)
	if update.TransactionID != "" {
		ctx = logging.WithTransactionID(ctx, update.TransactionID)
	}
	state, err := s.reconciler.ApplyWebhook(ctx, userID, update)
	if err != nil {
		logging.With(ctx, s.log).Error().Str("event", string(update.EventType)).Err(err).Msg("webhook application failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"applied": true,
		"status":  state.Status,
	})
}

type tokenRequest struct {
	APIKey  string `json:"api_key"`
	Subject string `json:"subject"`
}

// handleMintToken exchanges the configured API key for a short-lived
// bearer token.
func (s *Server) handleMintToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if s.cfg.APIKey == "" || req.APIKey != s.cfg.APIKey {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	subject := req.Subject
	if subject == "" {
		subject = "api-client"
	}
	token, err := s.auth.Mint(subject)
	if err != nil {
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type subscriptionResponse struct {
	Tier                  model.SubscriptionTier   `json:"tier"`
	Status                model.SubscriptionStatus `json:"status"`
	HasActiveAccess       bool                     `json:"has_active_access"`
	NeedsRenewalAttention bool                     `json:"needs_renewal_attention"`
	DaysRemaining         *int                     `json:"days_remaining,omitempty"`
	IsTrialActive         bool                     `json:"is_trial_active"`
	AutoRenewalEnabled    bool                     `json:"auto_renewal_enabled"`
	ProductID             string                   `json:"product_id,omitempty"`
	ValidationSource      model.ValidationSource   `json:"validation_source"`
	Stale                 bool                     `json:"stale"`
}

func (s *Server) handleSubscription(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	state, err := s.reconciler.CurrentState(r.Context(), userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "Failed to load subscription", http.StatusInternalServerError)
		return
	}

	resp := subscriptionResponse{
		Tier:                  state.Tier,
		Status:                state.Status,
		HasActiveAccess:       state.HasActiveAccess(),
		NeedsRenewalAttention: state.NeedsRenewalAttention(),
		IsTrialActive:         state.IsTrialActive,
		AutoRenewalEnabled:    state.AutoRenewalEnabled,
		ProductID:             state.ProductID,
		ValidationSource:      state.ValidationSource,
		Stale:                 state.IsStale(),
	}
	if days, ok := state.DaysRemaining(); ok {
		resp.DaysRemaining = &days
	}
	writeJSON(w, http.StatusOK, resp)
}

type entitlementResponse struct {
	Feature model.FeatureType   `json:"feature"`
	Access  model.FeatureAccess `json:"access"`
	Reason  string              `json:"reason,omitempty"`
}

func (s *Server) handleEntitlement(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	feature := model.FeatureType(chi.URLParam(r, "feature"))

	access := s.entitlements.FeatureAccessFor(r.Context(), userID, feature)
	resp := entitlementResponse{Feature: feature, Access: access}
	if !access.Granted {
		resp.Reason = access.Reason.Description()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	state, err := s.reconciler.Refresh(r.Context(), userID)
	if err != nil {
		http.Error(w, "Refresh failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            state.Status,
		"has_active_access": state.HasActiveAccess(),
	})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	result, err := s.purchases.Restore(r.Context(), userID)
	if err != nil {
		var rerr *model.RestoreError
		if errors.As(err, &rerr) {
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"error":      rerr.Description(),
				"suggestion": rerr.RecoverySuggestion(),
			})
			return
		}
		http.Error(w, "Restore failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"restored":             result.IsSuccessful(),
		"no_entitlements":      result.NoEntitlementsFound(),
		"transactions_applied": len(result.Transactions),
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := s.reconciler.SignOut(r.Context(), userID); err != nil {
		http.Error(w, "Failed to clear subscription", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
