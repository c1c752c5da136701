package metrics

import (
	"curvelaboratory/promptgateway/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CalloutMetrics tracks requests the gateway makes to the model server and
// developer endpoints.
//
// Metrics:
//   - curve_active_callouts: callouts currently in flight
//   - curve_callouts_total: callouts by stage and outcome
//   - curve_callout_duration_seconds: callout latency by stage
type CalloutMetrics struct {
	active   prometheus.Gauge
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCalloutMetrics creates and registers callout metrics.
func NewCalloutMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CalloutMetrics {
	cm := &CalloutMetrics{
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "active_callouts",
			Help:      "Number of callouts currently in flight",
		}),
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "callouts_total",
				Help:      "Total number of callouts by stage and outcome",
			},
			[]string{"stage", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "callout_duration_seconds",
				Help:      "Duration of callouts in seconds",
				// Guard and intent calls are tens of milliseconds, function calling can take a minute.
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
	}

	registry.MustRegister(cm.active, cm.total, cm.duration)
	return cm
}
