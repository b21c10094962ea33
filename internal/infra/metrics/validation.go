package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		validationsTotal,
		webhookEventsTotal,
		staleFallbacksTotal,
		validationLatencyMs,
	)
}

var (
	validationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_validations_total",
			Help: "Validation attempts by source and success.",
		},
		[]string{"source", "success"},
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_webhook_events_total",
			Help: "Webhook deliveries by event type and disposition (applied/duplicate/deferred/rejected).",
		},
		[]string{"event", "disposition"},
	)

	staleFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_stale_fallbacks_total",
			Help: "Server validation failures, split by whether access failed closed.",
		},
		[]string{"fail_closed"},
	)

	validationLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "subscription_validation_latency_ms",
			Help:    "Server validation round-trip latency in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"success"},
	)
)

func ValidationPerformed(source string, success bool) {
	validationsTotal.WithLabelValues(source, strconv.FormatBool(success)).Inc()
}

func WebhookObserved(event, disposition string) {
	webhookEventsTotal.WithLabelValues(event, disposition).Inc()
}

func StaleFallback(failClosed bool) {
	staleFallbacksTotal.WithLabelValues(strconv.FormatBool(failClosed)).Inc()
}

func ObserveValidationLatency(ms float64, success bool) {
	validationLatencyMs.WithLabelValues(strconv.FormatBool(success)).Observe(ms)
}
