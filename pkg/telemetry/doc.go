// Package telemetry groups the gateway's observability packages.
//
//   - logging: slog-based structured logging
//   - metrics: Prometheus metrics
//   - tracing: OpenTelemetry tracing with OTLP export
//   - health: liveness, readiness and version probes
package telemetry
