package metrics

import (
	"curvelaboratory/promptgateway/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks inbound chat requests and the decisions made for them.
//
// Metrics:
//   - curve_requests_total: requests by outcome
//   - curve_request_duration_seconds: end-to-end request duration
//   - curve_routing_decisions_total: selected target by signal
//   - curve_guard_blocks_total: requests rejected by the prompt guard
//   - curve_consistency_errors_total: completions without a pending call
type RequestMetrics struct {
	total             *prometheus.CounterVec
	duration          *prometheus.HistogramVec
	routing           *prometheus.CounterVec
	guardBlocks       prometheus.Counter
	consistencyErrors prometheus.Counter
}

// NewRequestMetrics creates and registers request metrics.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "requests_total",
				Help:      "Total number of chat requests by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of chat requests in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0},
			},
			[]string{"outcome"},
		),
		routing: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "routing_decisions_total",
				Help:      "Total number of routing decisions by target and signal",
			},
			[]string{"target", "signal"},
		),
		guardBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "guard_blocks_total",
			Help:      "Total number of requests blocked by the prompt guard",
		}),
		consistencyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "consistency_errors_total",
			Help:      "Total number of callout completions with no pending call",
		}),
	}

	registry.MustRegister(rm.total, rm.duration, rm.routing, rm.guardBlocks, rm.consistencyErrors)
	return rm
}
