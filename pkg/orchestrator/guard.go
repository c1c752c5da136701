package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const jailbreakTask = "jailbreak"

type guardRequest struct {
	Input string `json:"input"`
	Task  string `json:"task"`
}

type guardResponse struct {
	IsUnsafe         *bool `json:"is_unsafe"`
	JailbreakVerdict *bool `json:"jailbreak_verdict"`
}

func (s *Stream) dispatchGuard() Action {
	stage := s.o.cfg.Stages.Guard
	call, err := s.modelServerCall(StageGuard, s.o.cfg.ModelServer.GuardPath,
		guardRequest{Input: s.userMessage, Task: jailbreakTask}, stage.Timeout)
	if err != nil {
		return s.fail(err)
	}
	s.state = stateAwaitingGuard
	return dispatch(call)
}

func (s *Stream) onGuard(resp CallResponse) Action {
	unsafe, err := parseGuardResponse(resp)
	if err != nil {
		if s.o.cfg.Stages.Guard.FailOpen() {
			s.logger.Warn("prompt guard failed, continuing unguarded", "error", err)
			return s.route()
		}
		return s.fail(&UpstreamError{Stage: StageGuard, Status: http.StatusServiceUnavailable, Cause: err})
	}

	if !unsafe {
		return s.route()
	}

	s.o.recorder.GuardBlocked()
	s.logger.Info("prompt blocked by jailbreak guard")
	return s.respondText(s.o.cfg.PromptGuards.InputGuards.Jailbreak.OnException.Message, s.request.Model)
}

func parseGuardResponse(resp CallResponse) (bool, error) {
	if resp.Err != nil {
		return false, resp.Err
	}
	var r guardResponse
	if err := json.Unmarshal(resp.Body, &r); err != nil {
		return false, fmt.Errorf("invalid guard response: %w", err)
	}
	switch {
	case r.IsUnsafe != nil:
		return *r.IsUnsafe, nil
	case r.JailbreakVerdict != nil:
		return *r.JailbreakVerdict, nil
	default:
		return false, errors.New("guard response carries no verdict")
	}
}
