package orchestrator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"curvelaboratory/promptgateway/pkg/config"
	"curvelaboratory/promptgateway/pkg/proxy/types"
)

// dispatchDeveloperAPI calls the target's endpoint with the tool arguments.
func (s *Stream) dispatchDeveloperAPI() Action {
	ep := s.target.Endpoint
	args := s.toolCalls[0].Function.Arguments

	path := ep.Path
	var body []byte
	switch ep.Method {
	case http.MethodGet, http.MethodDelete, http.MethodHead:
		path = withQuery(path, args)
	default:
		obj, err := args.Object()
		if err != nil {
			return s.fail(fmt.Errorf("failed to encode tool arguments: %w", err))
		}
		body = obj
	}

	call := s.newCall(StageDeveloperAPI, ep.Name, ep.Method, path, body,
		s.o.cfg.Stages.DeveloperAPI.Timeout, CallContext{})
	s.state = stateAwaitingDeveloperAPI
	return dispatch(call)
}

func (s *Stream) onDeveloperAPI(resp CallResponse) Action {
	if resp.Err != nil {
		return s.fail(&UpstreamError{Stage: StageDeveloperAPI, Cause: resp.Err})
	}

	s.toolResponse = string(resp.Body)
	s.rewrite = true
	return s.resume(s.toolMessages()...)
}

// toolMessages are the assistant tool-call announcement and the tool reply
// of this turn.
func (s *Stream) toolMessages() []types.Message {
	return []types.Message{
		{Role: types.RoleAssistant, ToolCalls: s.toolCalls},
		{Role: types.RoleTool, Content: s.toolResponse, ToolCallID: s.toolCalls[0].ID},
	}
}

// dispatchDefaultTarget sends the chat request, history included, to the
// default target's endpoint.
func (s *Stream) dispatchDefaultTarget(t *config.PromptTarget) Action {
	s.target = t

	req := *s.request
	req.Messages = s.history
	req.Metadata = withoutState(req.Metadata)
	body, err := json.Marshal(req)
	if err != nil {
		return s.fail(fmt.Errorf("failed to encode default target request: %w", err))
	}

	ep := t.Endpoint
	call := s.newCall(StageDefaultTarget, ep.Name, ep.Method, ep.Path, body,
		s.o.cfg.Stages.DeveloperAPI.Timeout, CallContext{Target: t.Name})
	s.state = stateAwaitingDefaultTarget
	return dispatch(call)
}

func (s *Stream) onDefaultTarget(resp CallResponse) Action {
	if resp.Err != nil {
		return s.fail(&UpstreamError{Stage: StageDefaultTarget, Cause: resp.Err})
	}

	content, isCompletion := replyContent(resp.Body)
	if s.target.AutoLLMDispatchOnResponse {
		s.rewrite = false
		return s.resumeWithContext(content)
	}

	if isCompletion && !s.streaming {
		s.finish()
		return respond(http.StatusOK, "application/json", resp.Body)
	}
	return s.respondText(content, s.request.Model)
}

// resumeWithContext forwards the request to the LLM with the default
// target's reply as an additional system message after the system prompt.
func (s *Stream) resumeWithContext(content string) Action {
	history := s.history
	s.history = make([]types.Message, 0, len(history)+1)
	s.history = append(s.history, types.Message{Role: types.RoleSystem, Content: content})
	s.history = append(s.history, history...)
	return s.resume()
}

// replyContent extracts the assistant text from a chat completion, or
// returns the whole body when it is something else.
func replyContent(body []byte) (string, bool) {
	var c types.ChatCompletionResponse
	if err := json.Unmarshal(body, &c); err == nil {
		if msg := c.FirstMessage(); msg != nil {
			return msg.Text(), true
		}
	}
	return string(body), false
}

func withQuery(path string, args types.Arguments) string {
	if len(args) == 0 {
		return path
	}
	q := url.Values{}
	for k, v := range args {
		q.Set(k, fmt.Sprint(v))
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + q.Encode()
}
