package upstream

import (
	"fmt"
	"time"
)

// StatusError is returned when a cluster answers with a non-2xx status.
type StatusError struct {
	Cluster    string
	StatusCode int

	// Body is the response body, truncated for logging.
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %q returned status %d: %s", e.Cluster, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return retryableStatus(e.StatusCode)
}

// TimeoutError is returned when the call deadline expires.
type TimeoutError struct {
	Cluster string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("upstream %q request timeout after %s", e.Cluster, e.Timeout)
	}
	return fmt.Sprintf("upstream %q request timeout", e.Cluster)
}

// TransportError wraps a network failure that outlived the retry budget.
type TransportError struct {
	Cluster string
	Cause   error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream %q unreachable: %v", e.Cluster, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// UnknownClusterError is returned for a call to a cluster that was never registered.
type UnknownClusterError struct {
	Cluster string
}

// Error implements the error interface.
func (e *UnknownClusterError) Error() string {
	return fmt.Sprintf("unknown upstream cluster %q", e.Cluster)
}
