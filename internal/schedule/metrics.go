package schedule

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts lifecycle operations
type Metrics struct {
	freezes   prometheus.Counter
	unfreezes *prometheus.CounterVec
	rejected  *prometheus.CounterVec
}

// NewMetrics registers the engine metrics with reg. A nil reg creates
// unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		freezes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "schedctx",
			Subsystem: "schedule",
			Name:      "freezes_total",
			Help:      "Committed schedule releases.",
		}),
		unfreezes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schedctx",
			Subsystem: "schedule",
			Name:      "unfreezes_total",
			Help:      "Committed schedule restores by union strategy (ordered, memory).",
		}, []string{"union"}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schedctx",
			Subsystem: "schedule",
			Name:      "rejected_total",
			Help:      "Rejected freeze and unfreeze requests by operation.",
		}, []string{"op"}),
	}
}
