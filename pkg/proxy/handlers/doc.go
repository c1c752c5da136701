// Package handlers contains the gateway's request handler.
//
// ChatHandler is the event loop around an orchestrator stream. For each
// inbound request it:
//
//  1. delivers the request headers and the complete body to the stream
//  2. performs every callout the stream dispatches, concurrently, each under
//     its own span and callout metrics, and feeds the completions back one
//     at a time
//  3. answers locally when the stream responds, or forwards the (possibly
//     rewritten) request to the LLM cluster when it continues
//  4. passes the LLM response through the stream's rewriter chunk by chunk,
//     flushing as it goes so that SSE streams are not buffered
//
// When the client goes away while callouts are pending, the stream is
// abandoned and late completions are discarded.
package handlers
