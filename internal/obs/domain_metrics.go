package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CollectTotal counts /collect outcomes: complete, need_more_info or error.
	CollectTotal *prometheus.CounterVec
	// ExtractionTotal counts extraction calls by provider and result.
	ExtractionTotal *prometheus.CounterVec
	// ExtractionLatency records extraction latency in milliseconds.
	ExtractionLatency *prometheus.HistogramVec
	// RenderTotal counts document renders by result.
	RenderTotal *prometheus.CounterVec
	// RateLimitedTotal counts requests rejected by the collect limiter.
	RateLimitedTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers proposal-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CollectTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collect_total",
			Help:      "Count of collect requests by outcome.",
		}, []string{"outcome"})
		ExtractionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_total",
			Help:      "Count of extraction calls by provider and result.",
		}, []string{"provider", "result"})
		ExtractionLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_ms",
			Help:      "Extraction latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"provider"})
		RenderTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_total",
			Help:      "Count of proposal renders by result.",
		}, []string{"result"})
		RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collect_rate_limited_total",
			Help:      "Collect requests rejected by the rate limiter.",
		})

		mustRegisterCollector(reg, CollectTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CollectTotal = v
			}
		})
		mustRegisterCollector(reg, ExtractionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ExtractionTotal = v
			}
		})
		mustRegisterCollector(reg, ExtractionLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				ExtractionLatency = v
			}
		})
		mustRegisterCollector(reg, RenderTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RenderTotal = v
			}
		})
		mustRegisterCollector(reg, RateLimitedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				RateLimitedTotal = v
			}
		})
	})
}

// ObserveCollect records a collect outcome when domain metrics are registered.
func ObserveCollect(outcome string) {
	if CollectTotal != nil {
		CollectTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveExtraction records an extraction call when domain metrics are registered.
func ObserveExtraction(provider, result string, millis float64) {
	if ExtractionTotal != nil {
		ExtractionTotal.WithLabelValues(provider, result).Inc()
	}
	if ExtractionLatency != nil {
		ExtractionLatency.WithLabelValues(provider).Observe(millis)
	}
}

// ObserveRender records a render result when domain metrics are registered.
func ObserveRender(result string) {
	if RenderTotal != nil {
		RenderTotal.WithLabelValues(result).Inc()
	}
}

// ObserveRateLimited records a rejected request when domain metrics are registered.
func ObserveRateLimited() {
	if RateLimitedTotal != nil {
		RateLimitedTotal.Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
