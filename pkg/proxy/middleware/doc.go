// Package middleware provides HTTP middleware for cross-cutting concerns of
// the gateway listener.
//
// # Middleware Chain
//
//	handler = Recovery(Logging(RequestID(CORS(BodyLimit(handler)))))
//
// Order (innermost to outermost):
//  1. BodyLimit: Cap inbound request bodies
//  2. CORS: Add Cross-Origin Resource Sharing headers (rs/cors)
//  3. RequestID: Assign or propagate X-Request-ID
//  4. Logging: Log request/response details
//  5. Recovery: Recover from panics
//
// # Request ID
//
// RequestIDMiddleware keeps a client-supplied X-Request-ID or generates a
// UUID v4. The ID is stored through the logging package so every slog record
// written with the request context carries it, and it is written back into
// the request headers so that the orchestrator forwards it on each callout.
//
// # Logging
//
// LoggingMiddleware records method, path, status, bytes and latency_ms at a
// level chosen from the status code. The wrapped writer implements
// http.Flusher so that streamed completions are not buffered.
//
// # Recovery
//
// RecoveryMiddleware catches panics in handlers and converts them to HTTP 500
// errors in OpenAI error format. The stack trace is logged, never returned.
package middleware
