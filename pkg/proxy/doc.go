// Package proxy is the HTTP edge of the gateway.
//
// It owns the pieces that sit between a client connection and the
// orchestrator: reading bounded request bodies, writing OpenAI-compatible
// error bodies, and copying upstream response headers.
//
// # Architecture
//
//   - handlers: ChatHandler drives one orchestrator stream per request and
//     performs the callouts and the LLM forward the stream asks for
//   - middleware: request ID, logging, CORS, body limit, panic recovery
//   - types: OpenAI-compatible request/response data structures
//
// # Errors
//
// HandleError maps failures outside the orchestrator to status codes:
//
//	*RequestError            400 invalid_request_error
//	*upstream.TimeoutError   504 gateway_timeout
//	*upstream.TransportError 502 bad_gateway
//	*upstream.StatusError    502 bad_gateway
//	anything else            500 server_error
//
// Messages are fixed per category so collaborator details never reach the
// client.
package proxy
