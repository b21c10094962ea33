// Package metrics exposes the service's Prometheus collectors: reconcile
// adoptions and canonical-status outcomes (subscriptions.go) and validation
// latency, webhook dispositions, and stale fallbacks (validation.go). Each
// file enqueues its collectors via register at init; MustRegister flushes
// the queue to the default registry once, from main.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register is called by init() in each metrics file to enqueue collectors.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister registers ALL enqueued collectors with Prometheus exactly once.
func MustRegister() {
	once.Do(func() {
		if len(collectors) > 0 {
			prometheus.MustRegister(collectors...)
		}
	})
}
