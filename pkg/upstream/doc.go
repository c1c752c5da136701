// Package upstream sends HTTP requests to the clusters the gateway talks to:
// the internal model server, the backend LLM, and developer API endpoints.
//
// Each cluster gets a Client with pooled connections, bounded retries with
// exponential backoff on network failures and 502/503/504, an optional bearer
// credential resolved per request, and W3C trace context propagation.
// Failures are typed (StatusError, TimeoutError, TransportError) so callers
// can map them to user-facing errors with errors.As.
package upstream
