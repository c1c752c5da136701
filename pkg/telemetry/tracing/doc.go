// Package tracing provides OpenTelemetry tracing for the gateway.
//
// When enabled, spans are exported to an OTLP/gRPC collector and W3C trace
// context is propagated on every outbound callout. When disabled, a noop
// tracer is used and span calls cost next to nothing.
//
// Span layout:
//
//	curve.request                  inbound chat request (server span)
//	└── curve.callout.<stage>      one per model server or developer call
package tracing
