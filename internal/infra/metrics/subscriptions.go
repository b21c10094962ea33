package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		reconcileAppliedTotal,
		canonicalStatusTotal,
		purchasesTotal,
	)
}

var (
	reconcileAppliedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_reconcile_applied_total",
			Help: "Validation results adopted as canonical state, by source.",
		},
		[]string{"source"},
	)

	canonicalStatusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_canonical_status_total",
			Help: "Reconcile outcomes by resulting canonical status.",
		},
		[]string{"status"}, // 'none', 'active', 'expired', 'pending', 'grace', 'cancelled'
	)

	purchasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_purchases_total",
			Help: "Purchase attempts by terminal outcome.",
		},
		[]string{"outcome"},
	)
)

func ReconcileApplied(source string) {
	reconcileAppliedTotal.WithLabelValues(source).Inc()
}

func CanonicalStatusObserved(status string) {
	canonicalStatusTotal.WithLabelValues(status).Inc()
}

func PurchaseFinished(outcome string) {
	purchasesTotal.WithLabelValues(outcome).Inc()
}
