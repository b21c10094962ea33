package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrStaleState           = errors.New("subscription state is stale")
	ErrMalformedPayload     = errors.New("malformed webhook payload")
	ErrDuplicateEvent       = errors.New("webhook event already applied")
	ErrPurchaseInProgress   = errors.New("purchase attempt already in progress")
	ErrCatalogInvalid       = errors.New("product catalog failed validation")
	ErrValidationTimeout    = errors.New("server validation timed out")
)
