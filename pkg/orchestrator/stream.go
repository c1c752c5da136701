package orchestrator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"curvelaboratory/promptgateway/pkg/config"
	"curvelaboratory/promptgateway/pkg/embeddings"
	"curvelaboratory/promptgateway/pkg/proxy/types"
	"curvelaboratory/promptgateway/pkg/upstream"
)

type streamState int

const (
	stateIdle streamState = iota
	stateRequestReceived
	stateAwaitingGuard
	stateAwaitingRouting
	stateAwaitingFunctionCall
	stateAwaitingHallucination
	stateAwaitingDeveloperAPI
	stateAwaitingDefaultTarget
	stateResponseInFlight
	stateDone
)

var stateNames = [...]string{
	stateIdle:                  "idle",
	stateRequestReceived:       "request_received",
	stateAwaitingGuard:         "awaiting_guard",
	stateAwaitingRouting:       "awaiting_routing",
	stateAwaitingFunctionCall:  "awaiting_function_call",
	stateAwaitingHallucination: "awaiting_hallucination",
	stateAwaitingDeveloperAPI:  "awaiting_developer_api",
	stateAwaitingDefaultTarget: "awaiting_default_target",
	stateResponseInFlight:      "response_in_flight",
	stateDone:                  "done",
}

func (s streamState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// stage completions accepted in each waiting state
var stageStates = map[string]streamState{
	StageGuard:           stateAwaitingGuard,
	StageEmbedding:       stateAwaitingRouting,
	StageIntent:          stateAwaitingRouting,
	StageFunctionCalling: stateAwaitingFunctionCall,
	StageHallucination:   stateAwaitingHallucination,
	StageDeveloperAPI:    stateAwaitingDeveloperAPI,
	StageDefaultTarget:   stateAwaitingDefaultTarget,
}

// Stream is the orchestration context of one inbound request. It is driven
// by a single goroutine and is not safe for concurrent use.
type Stream struct {
	o      *Orchestrator
	id     uint64
	logger *slog.Logger
	state  streamState

	isChat    bool
	requestID string
	body      []byte

	request     *types.ChatCompletionRequest
	history     []types.Message
	hasState    bool
	streaming   bool
	userMessage string

	target         *config.PromptTarget
	similarity     []embeddings.Score
	intent         []embeddings.Score
	intentAsked    bool
	routingPending int

	toolCalls    []types.ToolCall
	toolResponse string

	rewrite     bool
	responseBuf []byte
}

// ID returns the stream identifier used as registry owner.
func (s *Stream) ID() uint64 { return s.id }

// RequestID returns the captured x-request-id, if any.
func (s *Stream) RequestID() string { return s.requestID }

// Streaming reports whether the caller asked for server-sent events.
func (s *Stream) Streaming() bool { return s.streaming }

// Target returns the resolved prompt target name, or "".
func (s *Stream) Target() string {
	if s.target == nil {
		return ""
	}
	return s.target.Name
}

// SimilarityScores returns the score vector of the embedding stage.
func (s *Stream) SimilarityScores() []embeddings.Score { return s.similarity }

// Done reports whether the stream has reached a terminal local response.
func (s *Stream) Done() bool { return s.state == stateDone }

// Outstanding returns the number of registry entries owned by the stream.
func (s *Stream) Outstanding() int {
	return s.o.registry.Pending(s.id)
}

// OnRequestHeaders handles the inbound request line and headers. header is
// modified in place.
func (s *Stream) OnRequestHeaders(path string, header http.Header) Action {
	header.Del("Content-Length")

	if id := header.Get(RequestIDHeader); id != "" {
		s.requestID = id
		s.logger = s.logger.With("request_id", id)
	}
	s.state = stateRequestReceived

	path, _, _ = strings.Cut(path, "?")
	switch path {
	case HealthzPath:
		s.state = stateDone
		if s.o.Ready() {
			return respond(http.StatusOK, "text/plain; charset=utf-8", nil)
		}
		return respond(http.StatusServiceUnavailable, "text/plain; charset=utf-8", nil)
	case ChatCompletionsPath:
		s.isChat = true
		return pause()
	default:
		s.state = stateResponseInFlight
		return continueWith(nil)
	}
}

// OnRequestBody accumulates the request body and, once it is complete,
// starts the pipeline.
func (s *Stream) OnRequestBody(chunk []byte, endOfStream bool) Action {
	if !s.isChat || s.state != stateRequestReceived {
		return continueWith(nil)
	}

	s.body = append(s.body, chunk...)
	if !endOfStream {
		return pause()
	}
	body := s.body
	s.body = nil

	if len(bytes.TrimSpace(body)) == 0 {
		s.state = stateResponseInFlight
		return continueWith(nil)
	}

	var req types.ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return s.fail(&ClientError{Message: "request body is not a valid chat completion request", Cause: err})
	}
	if err := req.Validate(); err != nil {
		ce := &ClientError{Message: err.Error(), Cause: err}
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			ce.Param = verr.Field
		}
		return s.fail(ce)
	}

	history := req.Messages
	if value, ok := req.Metadata[StateKey]; ok {
		st, err := DecodeState(value)
		if err != nil {
			return s.fail(&ClientError{
				Param:   "metadata." + StateKey,
				Message: "continuation state is malformed",
				Cause:   err,
			})
		}
		history = st.Splice(history)
		s.hasState = true
	}

	s.request = &req
	s.history = history
	s.streaming = req.Stream

	idx := req.LastUserMessage()
	if idx < 0 {
		s.logger.Warn("no user message in chat request, nothing to enrich")
		s.state = stateResponseInFlight
		return continueWith(nil)
	}
	s.userMessage = req.Messages[idx].Text()

	if !s.o.cfg.JailbreakGuardEnabled() {
		return s.route()
	}
	return s.dispatchGuard()
}

// OnCallResponse delivers the completion of a dispatched call.
func (s *Stream) OnCallResponse(token uint64, resp CallResponse) Action {
	entry, err := s.o.registry.TakeOwned(s.id, token)
	if err != nil {
		return s.inconsistent(token, err.Error())
	}

	cc := entry.Value
	if want, ok := stageStates[cc.Stage]; !ok || s.state != want {
		return s.inconsistent(token, fmt.Sprintf("%s completion while %s", cc.Stage, s.state))
	}

	s.logger.Debug("callout completed",
		"stage", cc.Stage,
		"token", token,
		"status", resp.Status,
		"duration", time.Since(cc.Started),
		"error", resp.Err,
	)

	switch cc.Stage {
	case StageGuard:
		return s.onGuard(resp)
	case StageEmbedding:
		return s.onEmbedding(resp)
	case StageIntent:
		return s.onIntent(resp)
	case StageFunctionCalling:
		return s.onFunctionCall(resp)
	case StageHallucination:
		return s.onHallucination(resp)
	case StageDeveloperAPI:
		return s.onDeveloperAPI(resp)
	default:
		return s.onDefaultTarget(resp)
	}
}

// Abandon drops every pending call of the stream. Completions that arrive
// afterwards must not be delivered.
func (s *Stream) Abandon() {
	if n := s.o.registry.EvictStream(s.id); n > 0 {
		s.logger.Debug("abandoned pending callouts", "count", n, "state", s.state)
	}
	s.state = stateDone
}

func (s *Stream) newCall(stage, cluster, method, path string, body []byte, timeout time.Duration, cc CallContext) Call {
	cc.Stage = stage
	cc.Cluster = cluster
	cc.Path = path
	cc.UserMessage = s.userMessage
	cc.Started = time.Now()
	if s.target != nil && cc.Target == "" {
		cc.Target = s.target.Name
	}

	token := s.o.registry.Insert(s.id, cc)

	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if s.requestID != "" {
		h.Set(RequestIDHeader, s.requestID)
	}

	return Call{
		Token:   token,
		Stage:   stage,
		Cluster: cluster,
		Method:  method,
		Path:    path,
		Header:  h,
		Body:    body,
		Timeout: timeout,
	}
}

func (s *Stream) modelServerCall(stage, path string, payload interface{}, timeout time.Duration) (Call, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Call{}, fmt.Errorf("failed to encode %s request: %w", stage, err)
	}
	return s.newCall(stage, upstream.ModelServerCluster, http.MethodPost, path, body, timeout, CallContext{}), nil
}

// resume forwards the chat request to the LLM with the system prompt and
// history, followed by extra.
func (s *Stream) resume(extra ...types.Message) Action {
	req := *s.request

	msgs := make([]types.Message, 0, len(s.history)+len(extra)+1)
	if prompt := s.systemPrompt(); prompt != "" {
		msgs = append(msgs, types.Message{Role: types.RoleSystem, Content: prompt})
	}
	msgs = append(msgs, s.history...)
	msgs = append(msgs, extra...)
	req.Messages = msgs
	req.Metadata = withoutState(req.Metadata)

	body, err := json.Marshal(req)
	if err != nil {
		return s.fail(fmt.Errorf("failed to encode resumed request: %w", err))
	}
	s.state = stateResponseInFlight
	return continueWith(body)
}

// passThrough forwards the request without enrichment. Continuation state,
// when present, is still spliced in and stripped from metadata.
func (s *Stream) passThrough() Action {
	if !s.hasState {
		s.state = stateResponseInFlight
		return continueWith(nil)
	}

	req := *s.request
	req.Messages = s.history
	req.Metadata = withoutState(req.Metadata)
	body, err := json.Marshal(req)
	if err != nil {
		return s.fail(fmt.Errorf("failed to encode request: %w", err))
	}
	s.state = stateResponseInFlight
	return continueWith(body)
}

func (s *Stream) systemPrompt() string {
	if s.target != nil && s.target.SystemPrompt != "" {
		return s.target.SystemPrompt
	}
	return s.o.cfg.SystemPrompt
}

// respondText answers the caller with a gateway-composed assistant message.
func (s *Stream) respondText(content, model string) Action {
	s.finish()

	if s.streaming {
		stop := "stop"
		last := types.NewStreamChunk(model, types.Delta{})
		last.Choices[0].FinishReason = &stop

		events, err := types.EncodeServerEvents(
			types.NewStreamChunk(model, types.Delta{Role: types.RoleAssistant, Content: content}),
			last,
		)
		if err != nil {
			return errorAction(err)
		}
		events = append(events, "data: [DONE]\n\n"...)
		return respond(http.StatusOK, "text/event-stream", events)
	}

	body, err := json.Marshal(types.NewChatCompletion(model, content))
	if err != nil {
		return errorAction(err)
	}
	return respond(http.StatusOK, "application/json", body)
}

// fail ends the stream with the error response for err.
func (s *Stream) fail(err error) Action {
	s.logger.Warn("chat request failed", "state", s.state, "error", err)
	s.finish()
	return errorAction(err)
}

func (s *Stream) inconsistent(token uint64, reason string) Action {
	err := &ConsistencyError{Stream: s.id, Token: token, Reason: reason}
	s.logger.Error("callout correlation failed", "token", token, "state", s.state, "error", err)
	s.o.recorder.ConsistencyError()
	s.finish()
	return errorAction(err)
}

// stageFailure applies the stage's failure policy to a failed callout.
func (s *Stream) stageFailure(stage string, sc config.StageConfig, err error, open func() Action) Action {
	if sc.FailOpen() {
		s.logger.Warn("callout failed, continuing without it", "stage", stage, "error", err)
		return open()
	}
	return s.fail(&UpstreamError{Stage: stage, Cause: err})
}

func (s *Stream) finish() {
	s.o.registry.EvictStream(s.id)
	s.toolCalls = nil
	s.state = stateDone
}
