package proxy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"curvelaboratory/promptgateway/pkg/proxy/types"
	"curvelaboratory/promptgateway/pkg/upstream"
)

// HandleError maps errors raised while serving a request outside the
// orchestrator (reading the body, forwarding to the LLM) to an OpenAI
// error response. Messages are fixed per category; the underlying cause
// is logged by the caller and never returned to the client.
func HandleError(err error) (int, *types.ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, types.NewServerError("An unexpected error occurred.")
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, reqErr.ToErrorResponse()
	}

	var timeoutErr *upstream.TimeoutError
	if errors.As(err, &timeoutErr) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, types.NewGatewayTimeoutError(
			"The language model did not respond in time. Please try again later.",
		)
	}

	var transportErr *upstream.TransportError
	if errors.As(err, &transportErr) {
		return http.StatusBadGateway, types.NewBadGatewayError(
			"The language model is unreachable. Please try again later.",
		)
	}

	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		return http.StatusBadGateway, types.NewBadGatewayError(
			"The language model returned an error. Please try again later.",
		)
	}

	var clusterErr *upstream.UnknownClusterError
	if errors.As(err, &clusterErr) {
		slog.Error("request routed to unregistered cluster", "cluster", clusterErr.Cluster)
	}

	return http.StatusInternalServerError, types.NewServerError("An internal error occurred. Please try again later.")
}
