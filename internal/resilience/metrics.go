package resilience

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	// BreakerState exposes the current breaker state per upstream: 0=closed,1=open,2=half-open.
	BreakerState *prometheus.GaugeVec
	// BreakerTransitions counts state changes per upstream.
	BreakerTransitions *prometheus.CounterVec
	// UpstreamAttempts counts outbound attempts by upstream and result.
	UpstreamAttempts *prometheus.CounterVec
)

// MustRegisterMetrics creates and registers the breaker collectors. Calling it
// more than once is a no-op; a nil registerer falls back to the default one.
func MustRegisterMetrics(namespace string, reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Current breaker state: 0=closed,1=open,2=half-open.",
		}, []string{"target"})
		BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transition_total",
			Help:      "Count of breaker state transitions.",
		}, []string{"target", "from", "to"})
		UpstreamAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_attempts_total",
			Help:      "Outbound HTTP attempts by upstream and result.",
		}, []string{"target", "result"})

		register(reg, BreakerState, func(c prometheus.Collector) {
			if v, ok := c.(*prometheus.GaugeVec); ok {
				BreakerState = v
			}
		})
		register(reg, BreakerTransitions, func(c prometheus.Collector) {
			if v, ok := c.(*prometheus.CounterVec); ok {
				BreakerTransitions = v
			}
		})
		register(reg, UpstreamAttempts, func(c prometheus.Collector) {
			if v, ok := c.(*prometheus.CounterVec); ok {
				UpstreamAttempts = v
			}
		})
	})
}

func register(reg prometheus.Registerer, c prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			reuse(are.ExistingCollector)
			return
		}
		panic(fmt.Errorf("register resilience metric: %w", err))
	}
}
