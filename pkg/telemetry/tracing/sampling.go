package tracing

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// createSampler samples ratio of new traces and follows the parent's
// decision for propagated ones, so a trace is either recorded whole or not
// at all.
func createSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}
