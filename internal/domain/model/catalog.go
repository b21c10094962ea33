package model

import (
	"fmt"
	"strings"

	"growth-subscription-service/internal/domain"
)

// productIDNamespace is the store namespace every current product lives in.
const productIDNamespace = "com.growthlabs.growthmethod.subscription.premium"

// Current product identifiers. The catalog carries exactly these three.
const (
	ProductPremiumWeekly    = productIDNamespace + ".weekly"
	ProductPremiumQuarterly = productIDNamespace + ".quarterly"
	ProductPremiumYearly    = productIDNamespace + ".yearly"
)

// Product is one purchasable catalog entry.
type Product struct {
	ID            string
	Tier          SubscriptionTier
	Duration      SubscriptionDuration
	PriceCents    int
	DisplayName   string
	Description   string
	HasTrialOffer bool
}

// Catalog is the fixed 3-entry product table. Any change here requires a
// matching update to the legacy migration table below.
var Catalog = []Product{
	{
		ID:          ProductPremiumWeekly,
		Tier:        TierPremium,
		Duration:    DurationWeekly,
		PriceCents:  499,
		DisplayName: "Growth Premium - Weekly",
		Description: "Unlock all premium features. Billed weekly.",
	},
	{
		ID:          ProductPremiumQuarterly,
		Tier:        TierPremium,
		Duration:    DurationQuarterly,
		PriceCents:  2999,
		DisplayName: "Growth Premium - 3 Months",
		Description: "Save 40% with quarterly billing",
	},
	{
		ID:            ProductPremiumYearly,
		Tier:          TierPremium,
		Duration:      DurationYearly,
		PriceCents:    4999,
		DisplayName:   "Growth Premium - Annual",
		Description:   "Best value - Save 75%",
		HasTrialOffer: true,
	},
}

// ProductByID looks up a catalog entry.
func ProductByID(id string) (Product, bool) {
	for _, p := range Catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// ProductForDuration looks up the premium product for a billing period.
func ProductForDuration(d SubscriptionDuration) (Product, bool) {
	for _, p := range Catalog {
		if p.Duration == d {
			return p, true
		}
	}
	return Product{}, false
}

// TierForProduct maps a product identifier onto its tier. Unknown products
// carry no entitlement.
func TierForProduct(productID string) SubscriptionTier {
	if _, ok := ProductByID(productID); ok {
		return TierPremium
	}
	return TierNone
}

// ValidateCatalog is the startup self-check over the product table:
// exactly three entries, one per duration, all in the expected namespace,
// positive prices, non-empty display fields.
func ValidateCatalog() error {
	if len(Catalog) != 3 {
		return fmt.Errorf("%w: expected 3 products, have %d", domain.ErrCatalogInvalid, len(Catalog))
	}
	seen := make(map[SubscriptionDuration]bool, 3)
	for _, p := range Catalog {
		if !strings.HasPrefix(p.ID, productIDNamespace) {
			return fmt.Errorf("%w: product %q outside namespace %q", domain.ErrCatalogInvalid, p.ID, productIDNamespace)
		}
		if p.PriceCents <= 0 {
			return fmt.Errorf("%w: product %q has non-positive price", domain.ErrCatalogInvalid, p.ID)
		}
		if p.DisplayName == "" || p.Description == "" {
			return fmt.Errorf("%w: product %q has empty display fields", domain.ErrCatalogInvalid, p.ID)
		}
		seen[p.Duration] = true
	}
	for _, d := range AllDurations() {
		if !seen[d] {
			return fmt.Errorf("%w: missing duration %q", domain.ErrCatalogInvalid, d)
		}
	}
	return nil
}

// legacyProductIDs maps every identifier from the previous subscription
// system onto exactly one current product. Pure data, exhaustively tested.
var legacyProductIDs = map[string]string{
	"com.growthlabs.growthmethod.basic_monthly":                ProductPremiumWeekly,
	"com.growthlabs.growthmethod.subscription.basic.monthly":   ProductPremiumWeekly,
	"com.growthlabs.growthmethod.basic_yearly":                 ProductPremiumYearly,
	"com.growthlabs.growthmethod.subscription.basic.yearly":    ProductPremiumYearly,
	"com.growthlabs.growthmethod.premium_monthly":              ProductPremiumQuarterly,
	"com.growthlabs.growthmethod.subscription.premium.monthly": ProductPremiumQuarterly,
	"com.growthlabs.growthmethod.elite_monthly":                ProductPremiumQuarterly,
	"com.growthlabs.growthmethod.subscription.elite.monthly":   ProductPremiumQuarterly,
	"com.growthlabs.growthmethod.premium_yearly":               ProductPremiumYearly,
	"com.growthlabs.growthmethod.subscription.premium.yearly":  ProductPremiumYearly,
	"com.growthlabs.growthmethod.elite_yearly":                 ProductPremiumYearly,
	"com.growthlabs.growthmethod.subscription.elite.yearly":    ProductPremiumYearly,
}

// MigrateProductID resolves a legacy product identifier to its current
// replacement. Unknown identifiers return false.
func MigrateProductID(old string) (string, bool) {
	id, ok := legacyProductIDs[old]
	return id, ok
}

// LegacyProductIDs returns the documented legacy identifiers, for the
// exhaustive migration test.
func LegacyProductIDs() []string {
	ids := make([]string, 0, len(legacyProductIDs))
	for id := range legacyProductIDs {
		ids = append(ids, id)
	}
	return ids
}
