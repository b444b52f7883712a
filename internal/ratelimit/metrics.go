package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts admission outcomes and store failures. Sustained store
// failures mean the fail-open/fail-closed policy is being applied and should
// alert; individual rejections are routine and should not.
type Metrics struct {
	decisions     *prometheus.CounterVec
	storeFailures *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paginas",
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Admission decisions by profile and outcome.",
		}, []string{"profile", "outcome"}),
		storeFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paginas",
			Subsystem: "ratelimit",
			Name:      "store_failures_total",
			Help:      "Counter store round trips that failed or timed out.",
		}, []string{"profile"}),
	}
}

// NewMetricsWithRegisterer registers on an explicit registry, used by tests
// to avoid the default registry's duplicate registration panic.
func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paginas",
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Admission decisions by profile and outcome.",
		}, []string{"profile", "outcome"}),
		storeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paginas",
			Subsystem: "ratelimit",
			Name:      "store_failures_total",
			Help:      "Counter store round trips that failed or timed out.",
		}, []string{"profile"}),
	}
}

func (m *Metrics) ObserveDecision(profile Profile, allowed bool) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	m.decisions.WithLabelValues(string(profile), outcome).Inc()
}

func (m *Metrics) ObserveStoreFailure(profile Profile) {
	if m == nil {
		return
	}
	m.storeFailures.WithLabelValues(string(profile)).Inc()
}
