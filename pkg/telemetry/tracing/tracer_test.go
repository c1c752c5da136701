package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"curvelaboratory/promptgateway/pkg/config"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { provider.Shutdown(context.Background()) })
	return newWithProvider(provider), recorder
}

func TestNew_Disabled(t *testing.T) {
	tracer, err := New(&config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if tracer.Enabled() {
		t.Error("disabled config produced an enabled tracer")
	}

	ctx, span := tracer.Start(context.Background(), "noop")
	span.End()
	if TraceID(ctx) != "" {
		t.Error("noop span should not carry a trace id")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestTracer_CalloutSpan(t *testing.T) {
	tracer, recorder := newRecordingTracer(t)

	ctx, parent := tracer.Start(context.Background(), "curve.request")
	_, span := tracer.Start(ctx, CalloutSpanName("guard"))
	span.SetAttributes(CalloutAttributes("guard", "curve_internal", "/guard", 7)...)
	SetStatus(span, errors.New("boom"))
	span.End()
	parent.End()

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	child := spans[0]
	if child.Name() != "curve.callout.guard" {
		t.Errorf("span name = %q", child.Name())
	}
	if child.Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Error("callout span is not a child of the request span")
	}
	if child.Status().Code != codes.Error {
		t.Errorf("status = %v, want error", child.Status().Code)
	}
}

func TestPropagation_RoundTrip(t *testing.T) {
	tracer, _ := newRecordingTracer(t)

	ctx, span := tracer.Start(context.Background(), "outbound")
	defer span.End()

	headers := http.Header{}
	Inject(ctx, headers)
	if headers.Get("traceparent") == "" {
		t.Fatal("traceparent not injected")
	}

	extracted := Extract(context.Background(), headers)
	if TraceID(extracted) != TraceID(ctx) {
		t.Errorf("trace id lost in propagation: %q vs %q", TraceID(extracted), TraceID(ctx))
	}
}

func TestHTTPMiddleware(t *testing.T) {
	tracer, recorder := newRecordingTracer(t)

	handler := HTTPMiddleware(tracer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if TraceID(r.Context()) == "" {
			t.Error("handler context has no span")
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil))

	if rec.Header().Get("X-Trace-ID") == "" {
		t.Error("X-Trace-ID header not set")
	}
	if len(recorder.Ended()) != 1 {
		t.Errorf("expected one server span, got %d", len(recorder.Ended()))
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1, "ParentBased{root:AlwaysOnSampler"},
		{0, "ParentBased{root:AlwaysOffSampler"},
		{0.5, "ParentBased{root:TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		desc := createSampler(tt.ratio).Description()
		if len(desc) < len(tt.want) || desc[:len(tt.want)] != tt.want {
			t.Errorf("ratio %v: description %q does not start with %q", tt.ratio, desc, tt.want)
		}
	}
}
