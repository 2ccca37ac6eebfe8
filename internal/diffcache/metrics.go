package diffcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts cache behaviour
type Metrics struct {
	requests     *prometheus.CounterVec
	errors       *prometheus.CounterVec
	computations prometheus.Counter
}

// NewMetrics registers the cache metrics with reg. A nil reg creates
// unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schedctx",
			Subsystem: "diffcache",
			Name:      "requests_total",
			Help:      "Diff cache lookups by result (hit, miss).",
		}, []string{"result"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schedctx",
			Subsystem: "diffcache",
			Name:      "errors_total",
			Help:      "Absorbed diff cache failures by operation.",
		}, []string{"op"}),
		computations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "schedctx",
			Subsystem: "diffcache",
			Name:      "computations_total",
			Help:      "Diffs computed because of a cache miss.",
		}),
	}
}
