package metrics

import (
	"net/http"
	"time"

	"curvelaboratory/promptgateway/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns every Prometheus metric the gateway exports. A disabled
// collector accepts all calls and records nothing.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	calloutMetrics *CalloutMetrics
	requestMetrics *RequestMetrics
}

// NewCollector creates a collector registered on registry. If registry is
// nil a fresh one is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		config:         cfg,
		registry:       registry,
		calloutMetrics: NewCalloutMetrics(cfg, registry),
		requestMetrics: NewRequestMetrics(cfg, registry),
	}
}

// CalloutStarted marks a callout to stage as in flight.
func (c *Collector) CalloutStarted(stage string) {
	if !c.config.Enabled {
		return
	}
	c.calloutMetrics.active.Inc()
}

// CalloutFinished records the end of a callout started with CalloutStarted.
// outcome is one of "success", "error" or "timeout".
func (c *Collector) CalloutFinished(stage, outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.calloutMetrics.active.Dec()
	c.calloutMetrics.total.WithLabelValues(stage, outcome).Inc()
	c.calloutMetrics.duration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordRequest records a finished inbound request.
func (c *Collector) RecordRequest(outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.total.WithLabelValues(outcome).Inc()
	c.requestMetrics.duration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RoutingDecision records which target won and which signal selected it.
func (c *Collector) RoutingDecision(target, signal string) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.routing.WithLabelValues(target, signal).Inc()
}

// GuardBlocked counts a request rejected by the prompt guard.
func (c *Collector) GuardBlocked() {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.guardBlocks.Inc()
}

// ConsistencyError counts a callout completion that could not be matched to
// a pending call.
func (c *Collector) ConsistencyError() {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.consistencyErrors.Inc()
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler exposing the registry in the Prometheus
// exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		},
	)
}
