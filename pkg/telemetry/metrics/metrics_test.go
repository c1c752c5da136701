package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"curvelaboratory/promptgateway/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{Enabled: true, Namespace: "test"}
}

func TestCollector_NewCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(testConfig(), registry)

	if collector.Registry() != registry {
		t.Error("collector registry not set correctly")
	}

	cfg := &config.MetricsConfig{Enabled: true}
	NewCollector(cfg, nil)
	if cfg.Namespace != config.DefaultMetricsNamespace {
		t.Errorf("namespace default not applied: %q", cfg.Namespace)
	}
}

func TestCollector_Callouts(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	cm := collector.calloutMetrics

	collector.CalloutStarted("guard")
	collector.CalloutStarted("embedding")
	if got := testutil.ToFloat64(cm.active); got != 2 {
		t.Fatalf("active = %v, want 2", got)
	}

	collector.CalloutFinished("guard", "success", 20*time.Millisecond)
	collector.CalloutFinished("embedding", "timeout", time.Minute)
	if got := testutil.ToFloat64(cm.active); got != 0 {
		t.Errorf("active = %v, want 0", got)
	}
	if got := testutil.ToFloat64(cm.total.WithLabelValues("guard", "success")); got != 1 {
		t.Errorf("guard success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(cm.total.WithLabelValues("embedding", "timeout")); got != 1 {
		t.Errorf("embedding timeout = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(cm.duration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestCollector_Requests(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	rm := collector.requestMetrics

	collector.RecordRequest("forwarded", time.Second)
	collector.RecordRequest("local_response", time.Second)
	collector.RecordRequest("forwarded", 2*time.Second)
	collector.RoutingDecision("weather", "embedding")
	collector.GuardBlocked()
	collector.ConsistencyError()
	collector.ConsistencyError()

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"forwarded", rm.total.WithLabelValues("forwarded"), 2},
		{"local", rm.total.WithLabelValues("local_response"), 1},
		{"routing", rm.routing.WithLabelValues("weather", "embedding"), 1},
		{"guard", rm.guardBlocks, 1},
		{"consistency", rm.consistencyErrors, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.c); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCollector_Disabled(t *testing.T) {
	collector := NewCollector(&config.MetricsConfig{Enabled: false, Namespace: "off"}, nil)

	collector.CalloutStarted("guard")
	collector.GuardBlocked()
	collector.RecordRequest("forwarded", time.Second)

	if got := testutil.ToFloat64(collector.calloutMetrics.active); got != 0 {
		t.Errorf("disabled collector recorded active callouts: %v", got)
	}
	if got := testutil.ToFloat64(collector.requestMetrics.guardBlocks); got != 0 {
		t.Errorf("disabled collector recorded guard blocks: %v", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.GuardBlocked()

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "test_guard_blocks_total 1") {
		t.Errorf("metrics output missing guard counter:\n%s", rec.Body.String())
	}
}
