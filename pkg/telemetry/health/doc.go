// Package health serves the gateway's probe endpoints.
//
//   - /health answers 200 while the process is up.
//   - /ready runs the registered checks (the embedding store, for one) and
//     answers 503 until all of them pass.
//   - /version reports build information.
//
// The chat path's own /healthz, which mirrors embedding store readiness,
// is answered by the orchestrator.
package health
