package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for gateway spans.
const (
	AttrRequestID     = "curve.request_id"
	AttrStage         = "curve.callout.stage"
	AttrCluster       = "curve.callout.cluster"
	AttrToken         = "curve.callout.token"
	AttrPath          = "curve.callout.path"
	AttrStatusCode    = "http.status_code"
	AttrTarget        = "curve.target"
	AttrRoutingSignal = "curve.routing.signal"
)

// CalloutSpanName is the span name for a callout to stage.
func CalloutSpanName(stage string) string {
	return "curve.callout." + stage
}

// CalloutAttributes returns the attributes describing a callout.
func CalloutAttributes(stage, cluster, path string, token uint64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrStage, stage),
		attribute.String(AttrCluster, cluster),
		attribute.String(AttrPath, path),
		attribute.Int64(AttrToken, int64(token)),
	}
}

// SetStatusCode records an HTTP status on span.
func SetStatusCode(span trace.Span, code int) {
	span.SetAttributes(attribute.Int(AttrStatusCode, code))
}

func serverSpan(r *http.Request) []trace.SpanStartOption {
	return []trace.SpanStartOption{
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.target", r.URL.Path),
		),
	}
}
