// Package monitoring exports Prometheus metrics for verification runs.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hkwon/chaos-verify/pkg/engine"
	"github.com/hkwon/chaos-verify/pkg/scenario"
)

// Collector implements engine.Observer and exposes injection metrics.
type Collector struct {
	registry *prometheus.Registry

	scenariosTotal    *prometheus.CounterVec
	activeInjection   prometheus.Gauge
	injectionDuration *prometheus.HistogramVec
	recoveryTime      prometheus.Histogram
}

// NewCollector creates a collector backed by its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		scenariosTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chaos_scenarios_total",
			Help: "Scenarios executed, labelled by verdict.",
		}, []string{"verdict"}),
		activeInjection: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chaos_active_injection",
			Help: "1 while a fault window is open, 0 otherwise.",
		}),
		injectionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chaos_injection_duration_seconds",
			Help:    "Wall time of each scenario execution.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"kind"}),
		recoveryTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chaos_recovery_time_seconds",
			Help:    "Observed recovery times for recovered scenarios.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	c.registry.MustRegister(
		c.scenariosTotal,
		c.activeInjection,
		c.injectionDuration,
		c.recoveryTime,
	)
	return c
}

// InjectionStarted marks a fault window as open.
func (c *Collector) InjectionStarted(_ scenario.Scenario) {
	c.activeInjection.Set(1)
}

// InjectionFinished records the finished scenario's verdict and timings.
func (c *Collector) InjectionFinished(res *engine.Result, passed bool) {
	c.activeInjection.Set(0)

	verdict := "failed"
	if passed {
		verdict = "passed"
	}
	if res.Skipped {
		verdict = "skipped"
	}
	c.scenariosTotal.WithLabelValues(verdict).Inc()
	c.injectionDuration.WithLabelValues(string(res.Scenario.Kind)).Observe(res.Duration().Seconds())
	if res.RecoveryTime != nil {
		c.recoveryTime.Observe(res.RecoveryTime.Seconds())
	}
}

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
