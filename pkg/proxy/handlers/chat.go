package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"curvelaboratory/promptgateway/pkg/orchestrator"
	"curvelaboratory/promptgateway/pkg/proxy"
	"curvelaboratory/promptgateway/pkg/proxy/middleware"
	"curvelaboratory/promptgateway/pkg/proxy/types"
	"curvelaboratory/promptgateway/pkg/telemetry/metrics"
	"curvelaboratory/promptgateway/pkg/telemetry/tracing"
	"curvelaboratory/promptgateway/pkg/upstream"
)

// Request outcomes recorded in metrics.
const (
	OutcomeForwarded = "forwarded"
	OutcomeLocal     = "local"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Callout outcomes recorded in metrics.
const (
	calloutSuccess = "success"
	calloutError   = "error"
	calloutTimeout = "timeout"
)

const responseChunkSize = 32 * 1024

// Options configures a ChatHandler.
type Options struct {
	// LLMPath is the upstream path chat completions are forwarded to.
	LLMPath string

	// LLMTimeout bounds the forward to the LLM, response body included.
	LLMTimeout time.Duration

	// MaxBodyBytes limits inbound request bodies.
	MaxBodyBytes int64
}

// ChatHandler serves every gateway request through an orchestrator stream.
// It performs the callouts a stream dispatches, feeds their completions
// back, and forwards the final request to the LLM cluster.
type ChatHandler struct {
	orch      *orchestrator.Orchestrator
	pool      *upstream.Pool
	collector *metrics.Collector
	tracer    *tracing.Tracer
	opts      Options
}

// NewChatHandler creates a handler. collector and tracer may be nil.
func NewChatHandler(orch *orchestrator.Orchestrator, pool *upstream.Pool, collector *metrics.Collector, tracer *tracing.Tracer, opts Options) *ChatHandler {
	if tracer == nil {
		tracer = tracing.Noop()
	}
	if opts.LLMPath == "" {
		opts.LLMPath = orchestrator.ChatCompletionsPath
	}
	return &ChatHandler{
		orch:      orch,
		pool:      pool,
		collector: collector,
		tracer:    tracer,
		opts:      opts,
	}
}

// completion carries a callout result back to the request goroutine.
type completion struct {
	token uint64
	resp  orchestrator.CallResponse
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()
	stream := h.orch.NewStream()

	header := r.Header.Clone()
	if header.Get(proxy.RequestIDHeader) == "" {
		if id := middleware.GetRequestID(ctx); id != "" {
			header.Set(proxy.RequestIDHeader, id)
		}
	}

	var body []byte
	act := stream.OnRequestHeaders(r.URL.Path, header)
	if act.Kind != orchestrator.ActionRespond {
		var err error
		body, err = proxy.ReadRequestBody(r, h.opts.MaxBodyBytes)
		if err != nil {
			slog.WarnContext(ctx, "failed to read request body", "error", err)
			stream.Abandon()
			h.writeError(w, err)
			h.record(OutcomeError, startTime)
			return
		}
	}
	if len(body) == 0 {
		body = nil
	}
	if act.Kind == orchestrator.ActionPause {
		act = stream.OnRequestBody(body, true)
	}

	act, ok := h.drive(ctx, stream, act)
	if !ok {
		slog.InfoContext(ctx, "client went away, request abandoned",
			"path", r.URL.Path,
			"latency_ms", time.Since(startTime).Milliseconds(),
		)
		h.record(OutcomeCancelled, startTime)
		return
	}

	switch act.Kind {
	case orchestrator.ActionRespond:
		h.respond(ctx, w, act)
		outcome := OutcomeLocal
		if act.Status >= http.StatusBadRequest {
			outcome = OutcomeError
		}
		h.record(outcome, startTime)

	case orchestrator.ActionContinue:
		if act.Body != nil {
			body = act.Body
		}
		if err := h.forward(ctx, w, r, stream, header, body); err != nil {
			h.record(OutcomeError, startTime)
			return
		}
		slog.InfoContext(ctx, "request forwarded",
			"path", r.URL.Path,
			"target", stream.Target(),
			"latency_ms", time.Since(startTime).Milliseconds(),
		)
		h.record(OutcomeForwarded, startTime)

	default:
		slog.ErrorContext(ctx, "stream stopped with unexpected action", "action", act.Kind)
		proxy.WriteErrorResponse(w, http.StatusInternalServerError,
			types.NewServerError("An internal error occurred. Please try again later."))
		h.record(OutcomeError, startTime)
	}
}

// drive runs the stream until it settles on Respond or Continue. It returns
// false when the client context ends first; the stream is then abandoned.
func (h *ChatHandler) drive(ctx context.Context, stream *orchestrator.Stream, act orchestrator.Action) (orchestrator.Action, bool) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan completion)
	inFlight := 0

	for {
		switch act.Kind {
		case orchestrator.ActionDispatch:
			for _, call := range act.Calls {
				inFlight++
				go h.callout(callCtx, call, done)
			}
		case orchestrator.ActionPause:
			if inFlight == 0 {
				slog.ErrorContext(ctx, "stream paused with no callout in flight")
				if h.collector != nil {
					h.collector.ConsistencyError()
				}
				stream.Abandon()
				return stalledAction(), true
			}
		default:
			return act, true
		}

		select {
		case c := <-done:
			inFlight--
			act = stream.OnCallResponse(c.token, c.resp)
		case <-ctx.Done():
			stream.Abandon()
			return act, false
		}
	}
}

// callout performs one call and sends its completion to done unless ctx
// ends first.
func (h *ChatHandler) callout(ctx context.Context, call orchestrator.Call, done chan<- completion) {
	ctx, span := h.tracer.Start(ctx, tracing.CalloutSpanName(call.Stage),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.CalloutAttributes(call.Stage, call.Cluster, call.Path, call.Token)...),
	)
	defer span.End()

	if h.collector != nil {
		h.collector.CalloutStarted(call.Stage)
	}
	started := time.Now()

	respBody, err := h.pool.Call(ctx, call.Cluster, upstream.Request{
		Method:  call.Method,
		Path:    call.Path,
		Header:  call.Header,
		Body:    call.Body,
		Timeout: call.Timeout,
	})

	resp := orchestrator.CallResponse{Status: http.StatusOK, Body: respBody, Err: err}
	outcome := calloutSuccess
	if err != nil {
		outcome = calloutError
		var statusErr *upstream.StatusError
		var timeoutErr *upstream.TimeoutError
		switch {
		case errors.As(err, &statusErr):
			resp.Status = statusErr.StatusCode
		case errors.As(err, &timeoutErr):
			resp.Status = http.StatusGatewayTimeout
			outcome = calloutTimeout
		default:
			resp.Status = 0
		}
	}
	tracing.SetStatusCode(span, resp.Status)
	tracing.SetStatus(span, err)
	if h.collector != nil {
		h.collector.CalloutFinished(call.Stage, outcome, time.Since(started))
	}

	select {
	case done <- completion{token: call.Token, resp: resp}:
	case <-ctx.Done():
	}
}

// forward sends body to the LLM cluster and streams the response through
// the stream's rewriter.
func (h *ChatHandler) forward(ctx context.Context, w http.ResponseWriter, r *http.Request, stream *orchestrator.Stream, header http.Header, body []byte) error {
	client, err := h.pool.Get(upstream.LLMCluster)
	if err != nil {
		slog.ErrorContext(ctx, "LLM cluster is not registered", "error", err)
		h.writeError(w, err)
		return err
	}

	path := r.URL.RequestURI()
	if r.URL.Path == orchestrator.ChatCompletionsPath {
		path = h.opts.LLMPath
	}

	if h.opts.LLMTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.LLMTimeout)
		defer cancel()
	}

	outHeader := header.Clone()
	proxy.StripHopHeaders(outHeader)
	outHeader.Del("Host")
	outHeader.Del("Accept-Encoding")

	resp, err := client.Do(ctx, upstream.Request{
		Method:  r.Method,
		Path:    path,
		Header:  outHeader,
		Body:    body,
		Timeout: h.opts.LLMTimeout,
	})
	if err != nil {
		slog.ErrorContext(ctx, "LLM request failed", "path", path, "error", err)
		h.writeError(w, err)
		return err
	}
	defer resp.Body.Close()

	stream.OnResponseHeaders(resp.StatusCode, resp.Header)
	proxy.CopyResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	buf := make([]byte, responseChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if out := stream.OnResponseBody(buf[:n], false); len(out) > 0 {
				if _, err := w.Write(out); err != nil {
					slog.DebugContext(ctx, "client write failed", "error", err)
					return nil
				}
				proxy.Flush(w)
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				slog.WarnContext(ctx, "LLM response interrupted", "error", readErr)
			}
			if out := stream.OnResponseBody(nil, true); len(out) > 0 {
				_, _ = w.Write(out)
				proxy.Flush(w)
			}
			return nil
		}
	}
}

func (h *ChatHandler) respond(ctx context.Context, w http.ResponseWriter, act orchestrator.Action) {
	if act.Err != nil {
		level := slog.LevelWarn
		if act.Status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "request answered with error", "status", act.Status, "error", act.Err)
	}
	proxy.WriteBody(w, act.Status, act.Header, act.Body)
}

func (h *ChatHandler) writeError(w http.ResponseWriter, err error) {
	status, errResp := proxy.HandleError(err)
	proxy.WriteErrorResponse(w, status, errResp)
}

func (h *ChatHandler) record(outcome string, startTime time.Time) {
	if h.collector != nil {
		h.collector.RecordRequest(outcome, time.Since(startTime))
	}
}

// stalledAction answers a stream that paused with nothing left to wait for.
func stalledAction() orchestrator.Action {
	err := errors.New("stream paused with no callout in flight")
	status, errResp := orchestrator.ErrorResponse(err)
	body, _ := json.Marshal(errResp)
	return orchestrator.Action{
		Kind:   orchestrator.ActionRespond,
		Status: status,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
		Err:    err,
	}
}
