package proxy

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"curvelaboratory/promptgateway/pkg/proxy/types"
)

const (
	// MaxRequestBodySize is the fallback request body limit (10MB) used when
	// the listener does not configure one.
	MaxRequestBodySize = 10 * 1024 * 1024

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"
)

// ReadRequestBody reads the whole request body, enforcing limit bytes. A
// non-positive limit falls back to MaxRequestBodySize.
//
// Bodies over the limit produce a *RequestError with CodeRequestTooLarge,
// whether the limit was hit here or by an http.MaxBytesReader installed by
// middleware.
func ReadRequestBody(r *http.Request, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = MaxRequestBodySize
	}
	if r.Body == nil {
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, tooLarge(maxErr.Limit)
		}
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, tooLarge(limit)
	}

	return body, nil
}

func tooLarge(limit int64) *RequestError {
	return &RequestError{
		Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", limit),
		Code:    types.CodeRequestTooLarge,
		Param:   "body",
	}
}

// ExtractRequestID extracts the request ID from the X-Request-ID header.
// Returns empty string if not present.
func ExtractRequestID(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}

// RequestError represents a client-side request error.
type RequestError struct {
	// Message is a human-readable error message.
	Message string

	// Code is a machine-readable error code.
	Code string

	// Param is the parameter that caused the error.
	Param string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s (param: %s)", e.Message, e.Param)
	}
	return e.Message
}

// ToErrorResponse converts a RequestError to an OpenAI-compatible ErrorResponse.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	return types.NewInvalidRequestError(e.Message, e.Param, e.Code)
}
