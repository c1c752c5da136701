package orchestrator

import (
	"net/http"
	"time"

	"curvelaboratory/promptgateway/pkg/embeddings"
)

// ActionKind tells the driver what to do after an event.
type ActionKind int

const (
	// ActionPause waits for the next event.
	ActionPause ActionKind = iota

	// ActionContinue forwards the request to the LLM upstream. A nil Body
	// forwards the original bytes.
	ActionContinue

	// ActionDispatch runs Calls concurrently and reports each completion
	// through OnCallResponse.
	ActionDispatch

	// ActionRespond answers the caller locally; nothing reaches the LLM.
	ActionRespond
)

func (k ActionKind) String() string {
	switch k {
	case ActionPause:
		return "pause"
	case ActionContinue:
		return "continue"
	case ActionDispatch:
		return "dispatch"
	case ActionRespond:
		return "respond"
	default:
		return "unknown"
	}
}

// Action is the result of a stream event.
type Action struct {
	Kind ActionKind

	// Body is the rewritten request (Continue) or the local response (Respond).
	Body []byte

	// Status and Header apply to Respond.
	Status int
	Header http.Header

	// Calls apply to Dispatch.
	Calls []Call

	// Err is the failure behind an error response, for logging and metrics.
	Err error
}

// Call is an outbound request the driver performs on behalf of a stream.
type Call struct {
	Token   uint64
	Stage   string
	Cluster string
	Method  string
	Path    string
	Header  http.Header
	Body    []byte
	Timeout time.Duration
}

// CallResponse is the outcome of a Call. Err covers transport failures,
// timeouts and non-2xx statuses alike.
type CallResponse struct {
	Status int
	Body   []byte
	Err    error
}

// CallContext is the snapshot kept in the registry while a call is pending.
type CallContext struct {
	Stage       string
	UserMessage string
	Target      string
	Cluster     string
	Path        string
	Scores      []embeddings.Score
	Started     time.Time
}

func pause() Action {
	return Action{Kind: ActionPause}
}

func continueWith(body []byte) Action {
	return Action{Kind: ActionContinue, Body: body}
}

func dispatch(calls ...Call) Action {
	return Action{Kind: ActionDispatch, Calls: calls}
}

func respond(status int, contentType string, body []byte) Action {
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return Action{Kind: ActionRespond, Status: status, Header: h, Body: body}
}
