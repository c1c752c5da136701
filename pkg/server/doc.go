// Package server runs the gateway's HTTP listener.
//
// Routes:
//
//	/health, /ready, /version  process probes (telemetry/health)
//	<metrics path>             Prometheus exposition, when enabled
//	/                          everything else, including /healthz and
//	                           /v1/chat/completions, goes to the gateway
//	                           handler
//
// The middleware chain, outermost first, is recovery, logging, request ID,
// tracing, CORS and body limit. TLS, when configured, is terminated on the
// listener with a certificate reloaded from disk.
//
// Start blocks until its context ends, SIGINT/SIGTERM arrives or Stop is
// called, then drains in-flight requests for up to the shutdown timeout.
package server
