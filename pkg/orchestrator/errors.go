package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"curvelaboratory/promptgateway/pkg/proxy/types"
	"curvelaboratory/promptgateway/pkg/upstream"
)

// ClientError is a malformed inbound request. It maps to 400.
type ClientError struct {
	Param   string
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// UpstreamError is a failed, timed out or unparseable callout.
type UpstreamError struct {
	Stage string

	// Status is the code answered to the caller when the cause is not a
	// timeout. Zero means 502.
	Status int
	Cause  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s callout failed: %v", e.Stage, e.Cause)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// StatusCode returns 504 for timeouts and Status (default 502) otherwise.
func (e *UpstreamError) StatusCode() int {
	var timeout *upstream.TimeoutError
	if errors.As(e.Cause, &timeout) {
		return http.StatusGatewayTimeout
	}
	if e.Status != 0 {
		return e.Status
	}
	return http.StatusBadGateway
}

// ConsistencyError is a broken internal invariant, such as a completion for
// a token that is not pending. It maps to 500.
type ConsistencyError struct {
	Stream uint64
	Token  uint64
	Reason string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency violation on stream %d (token %d): %s", e.Stream, e.Token, e.Reason)
}

// ErrorResponse maps err to a status code and an OpenAI error envelope.
// Causes are not exposed to the caller.
func ErrorResponse(err error) (int, *types.ErrorResponse) {
	var (
		clientErr   *ClientError
		upstreamErr *UpstreamError
	)
	switch {
	case errors.As(err, &clientErr):
		msg := clientErr.Message
		return http.StatusBadRequest, types.NewInvalidRequestError(msg, clientErr.Param, types.CodeInvalidValue)
	case errors.As(err, &upstreamErr):
		code := upstreamErr.StatusCode()
		msg := fmt.Sprintf("The %s service is not available right now. Please try again later.", stageLabel(upstreamErr.Stage))
		switch code {
		case http.StatusGatewayTimeout:
			return code, types.NewGatewayTimeoutError(msg)
		case http.StatusServiceUnavailable:
			return code, types.NewServiceUnavailableError(msg)
		default:
			return http.StatusBadGateway, types.NewBadGatewayError(msg)
		}
	default:
		return http.StatusInternalServerError, types.NewServerError("The gateway hit an internal error while processing the request.")
	}
}

func stageLabel(stage string) string {
	switch stage {
	case StageGuard:
		return "prompt guard"
	case StageFunctionCalling:
		return "function calling"
	case StageDeveloperAPI, StageDefaultTarget:
		return "backend API"
	default:
		return stage
	}
}

func errorAction(err error) Action {
	status, envelope := ErrorResponse(err)
	body, mErr := json.Marshal(envelope)
	if mErr != nil {
		body = []byte(`{"error":{"message":"internal error","type":"server_error"}}`)
	}
	a := respond(status, "application/json", body)
	a.Err = err
	return a
}
