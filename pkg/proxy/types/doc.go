// Package types defines the OpenAI-compatible wire types the gateway reads,
// rewrites, and composes.
//
// Request types keep unmodelled fields so that a rewritten request loses
// nothing the caller sent. Tool-call arguments accept both the object form
// emitted by the function-calling model and the string form used by OpenAI.
//
// ResponseBody is a tagged variant over backend replies: JSON objects are held
// as top-level fields so that metadata can be added without touching anything
// else, and every other body is carried as opaque bytes.
package types
