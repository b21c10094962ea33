package webhook

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"growth-subscription-service/internal/domain"
	"growth-subscription-service/internal/domain/model"
)

// Decoder turns raw store notification bodies into normalized updates.
// Bodies arrive either as a JWS wrapper {"signedPayload": "h.p.s"} or, in
// the sandbox, as the bare JSON payload. Malformed input is discarded at
// this boundary and never propagates into canonical state.
type Decoder struct {
	bundleID string
	log      *zerolog.Logger
}

func NewDecoder(bundleID string, logger *zerolog.Logger) *Decoder {
	l := logger.With().Str("component", "WebhookDecoder").Logger()
	return &Decoder{bundleID: bundleID, log: &l}
}

type signedWrapper struct {
	SignedPayload string `json:"signedPayload"`
}

// Decode parses a request body into a WebhookUpdate. Updates for a foreign
// bundle are rejected.
func (d *Decoder) Decode(body []byte) (model.WebhookUpdate, error) {
	payload := body
	var wrapper signedWrapper
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.SignedPayload != "" {
		decoded, err := decodeSignedPayload(wrapper.SignedPayload)
		if err != nil {
			d.log.Warn().Err(err).Msg("discarding notification with undecodable signed payload")
			return model.WebhookUpdate{}, domain.ErrMalformedPayload
		}
		payload = decoded
	}

	update, ok := model.WebhookFromPayload(payload)
	if !ok {
		d.log.Warn().Int("bytes", len(payload)).Msg("discarding malformed webhook payload")
		return model.WebhookUpdate{}, domain.ErrMalformedPayload
	}
	if d.bundleID != "" && update.BundleID != d.bundleID {
		d.log.Warn().Str("bundle_id", update.BundleID).Msg("discarding notification for foreign bundle")
		return model.WebhookUpdate{}, domain.ErrMalformedPayload
	}
	return update, nil
}

// decodeSignedPayload extracts the claims section of a JWS compact
// serialization (header.payload.signature). Signature verification happens
// upstream at the ingress proxy; here only the payload shape matters.
func decodeSignedPayload(signed string) ([]byte, error) {
	parts := strings.Split(signed, ".")
	if len(parts) != 3 {
		return nil, domain.ErrMalformedPayload
	}
	return base64.RawURLEncoding.DecodeString(parts[1])
}
