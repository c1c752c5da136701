// Package orchestrator decides, for each chat completion request, which
// model server stages to consult before the request reaches the LLM and how
// the LLM's answer is rewritten on the way back.
//
// A Stream is a per-request state machine. The driver feeds it inbound
// events (request headers and body, callout completions, response headers
// and body) and carries out the Action each event returns: pause, forward
// the request, dispatch callouts, or answer locally. A Stream never performs
// I/O itself. Pending callouts are correlated through a registry shared by
// all streams; a completion whose token is not pending is a consistency
// error and fails the request.
//
// Stages run in order: jailbreak guard, routing (embedding similarity and
// intent classification), function calling, hallucination check and the
// developer API. A request that matches no target goes to the default
// target or passes through untouched.
package orchestrator
