// Package metrics exports gateway metrics in the Prometheus format.
//
// A single Collector is created at startup and shared by the HTTP driver
// and the orchestrator. It covers the inbound request outcome, routing
// decisions, guard blocks, and every callout the gateway makes to the model
// server or developer endpoints.
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
package metrics
