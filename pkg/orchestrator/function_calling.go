package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"curvelaboratory/promptgateway/pkg/config"
	"curvelaboratory/promptgateway/pkg/proxy/types"
)

type functionCallingRequest struct {
	Messages []types.Message   `json:"messages"`
	Tools    []types.Tool      `json:"tools"`
	Stream   bool              `json:"stream"`
	Model    string            `json:"model"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (s *Stream) dispatchFunctionCall() Action {
	payload := functionCallingRequest{
		Messages: s.history,
		Tools:    []types.Tool{ToolDefinition(s.target)},
		Model:    s.o.cfg.Models.FunctionCalling,
		Metadata: withoutState(s.request.Metadata),
	}
	call, err := s.modelServerCall(StageFunctionCalling, s.o.cfg.ModelServer.FunctionCallingPath,
		payload, s.o.cfg.Stages.FunctionCalling.Timeout)
	if err != nil {
		return s.fail(err)
	}
	s.state = stateAwaitingFunctionCall
	return dispatch(call)
}

func (s *Stream) onFunctionCall(resp CallResponse) Action {
	stage := s.o.cfg.Stages.FunctionCalling
	model := s.o.cfg.Models.FunctionCalling

	msg, err := parseFunctionCallingResponse(resp)
	if err != nil {
		return s.stageFailure(StageFunctionCalling, stage, err, func() Action { return s.resume() })
	}

	if len(msg.ToolCalls) == 0 {
		if text := msg.Text(); strings.TrimSpace(text) != "" {
			s.logger.Debug("function calling model answered without a tool call", "target", s.target.Name)
			return s.respondText(text, model)
		}
		return s.stageFailure(StageFunctionCalling, stage,
			errors.New("function calling response has neither tool calls nor content"),
			func() Action { return s.resume() })
	}

	call := msg.ToolCalls[0]
	if call.ID == "" {
		call.ID = newToolCallID()
	}
	if call.Type == "" {
		call.Type = "function"
	}
	if call.Function.Name == "" {
		call.Function.Name = s.target.Name
	}
	if call.Function.Arguments == nil {
		call.Function.Arguments = types.Arguments{}
	}

	if missing := applyParameterDefaults(s.target, call.Function.Arguments); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, p := range missing {
			names[i] = p.Name
		}
		s.logger.Info("asking for missing parameters", "target", s.target.Name, "missing", names)
		return s.respondText(parameterGatheringMessage(missing), model)
	}

	s.toolCalls = []types.ToolCall{call}
	if s.o.cfg.Stages.Hallucination.Skip {
		return s.dispatchDeveloperAPI()
	}
	return s.dispatchHallucination()
}

func parseFunctionCallingResponse(resp CallResponse) (*types.Message, error) {
	if resp.Err != nil {
		return nil, resp.Err
	}
	var out types.ChatCompletionResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("invalid function calling response: %w", err)
	}
	msg := out.FirstMessage()
	if msg == nil {
		return nil, errors.New("function calling response has no choices")
	}
	return msg, nil
}

// applyParameterDefaults fills absent arguments from parameter defaults and
// returns the required parameters that are still missing.
func applyParameterDefaults(t *config.PromptTarget, args types.Arguments) []config.Parameter {
	var missing []config.Parameter
	for _, p := range t.Parameters {
		if v, ok := args[p.Name]; ok && v != nil && v != "" {
			continue
		}
		switch {
		case p.Default != nil:
			args[p.Name] = p.Default
		case p.Required:
			missing = append(missing, p)
		}
	}
	return missing
}

func newToolCallID() string {
	return "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}
