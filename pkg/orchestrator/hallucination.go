package orchestrator

import (
	"encoding/json"
	"fmt"

	"curvelaboratory/promptgateway/pkg/proxy/types"
)

type hallucinationRequest struct {
	Arguments  map[string]interface{} `json:"arguments"`
	Parameters map[string]interface{} `json:"parameters"`
	Messages   []types.Message        `json:"messages"`
	Threshold  float64                `json:"threshold"`
}

type hallucinationResponse struct {
	FlaggedFields []string `json:"flagged_fields"`
}

func (s *Stream) dispatchHallucination() Action {
	stage := s.o.cfg.Stages.Hallucination
	payload := hallucinationRequest{
		Arguments:  s.toolCalls[0].Function.Arguments,
		Parameters: ToolDefinition(s.target).Function.Parameters,
		Messages:   s.history,
		Threshold:  stage.Threshold,
	}
	call, err := s.modelServerCall(StageHallucination, s.o.cfg.ModelServer.HallucinationPath, payload, stage.Timeout)
	if err != nil {
		return s.fail(err)
	}
	s.state = stateAwaitingHallucination
	return dispatch(call)
}

func (s *Stream) onHallucination(resp CallResponse) Action {
	flagged, err := parseHallucinationResponse(resp)
	if err != nil {
		return s.stageFailure(StageHallucination, s.o.cfg.Stages.Hallucination.StageConfig, err, s.dispatchDeveloperAPI)
	}
	if len(flagged) > 0 {
		s.logger.Info("tool arguments flagged as unsupported", "target", s.target.Name, "fields", flagged)
		return s.respondText(clarificationMessage(flagged), s.o.cfg.Models.FunctionCalling)
	}
	return s.dispatchDeveloperAPI()
}

// parseHallucinationResponse returns the flagged fields without duplicates,
// in the order reported.
func parseHallucinationResponse(resp CallResponse) ([]string, error) {
	if resp.Err != nil {
		return nil, resp.Err
	}
	var r hallucinationResponse
	if err := json.Unmarshal(resp.Body, &r); err != nil {
		return nil, fmt.Errorf("invalid hallucination response: %w", err)
	}

	seen := make(map[string]bool, len(r.FlaggedFields))
	fields := make([]string, 0, len(r.FlaggedFields))
	for _, f := range r.FlaggedFields {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}
	return fields, nil
}
