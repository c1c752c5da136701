package orchestrator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"curvelaboratory/promptgateway/pkg/proxy/types"
)

// ContinuationState is the slice of a previous turn that the gateway hands
// back to the caller in response metadata: the assistant tool-call message
// and the tool's reply. The caller echoes it in request metadata on the
// next turn.
type ContinuationState struct {
	Messages []types.Message
}

// wire form: {"messages": "<json array>"}; the array is accepted unquoted too.
type stateEnvelope struct {
	Messages json.RawMessage `json:"messages"`
}

// Encode serializes the state into its metadata value.
func (s ContinuationState) Encode() (string, error) {
	inner, err := json.Marshal(s.Messages)
	if err != nil {
		return "", fmt.Errorf("failed to encode state messages: %w", err)
	}
	quoted, err := json.Marshal(string(inner))
	if err != nil {
		return "", err
	}
	outer, err := json.Marshal(stateEnvelope{Messages: quoted})
	if err != nil {
		return "", err
	}
	return string(outer), nil
}

// DecodeState parses a metadata value produced by Encode. It is all or
// nothing: any malformed part fails the whole value.
func DecodeState(value string) (ContinuationState, error) {
	raw := bytes.TrimSpace([]byte(value))
	if len(raw) == 0 {
		return ContinuationState{}, errors.New("state is empty")
	}

	var list json.RawMessage
	switch raw[0] {
	case '[':
		list = raw
	case '{':
		var env stateEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return ContinuationState{}, fmt.Errorf("state is not valid JSON: %w", err)
		}
		list = bytes.TrimSpace(env.Messages)
		if len(list) > 0 && list[0] == '"' {
			var s string
			if err := json.Unmarshal(list, &s); err != nil {
				return ContinuationState{}, err
			}
			list = bytes.TrimSpace([]byte(s))
		}
	default:
		return ContinuationState{}, errors.New("state must be a JSON object or array")
	}

	if len(list) == 0 {
		return ContinuationState{}, errors.New("state has no messages")
	}

	var msgs []types.Message
	if err := json.Unmarshal(list, &msgs); err != nil {
		return ContinuationState{}, fmt.Errorf("state messages are malformed: %w", err)
	}

	check := types.ChatCompletionRequest{Messages: msgs}
	if err := check.Validate(); err != nil {
		return ContinuationState{}, err
	}
	return ContinuationState{Messages: msgs}, nil
}

// Splice returns history with the state messages inserted where they
// happened: before the assistant reply that follows them, or before the
// final user message when there is no such reply. history is not modified.
func (s ContinuationState) Splice(history []types.Message) []types.Message {
	if len(s.Messages) == 0 {
		return history
	}

	at := len(history)
	lastUser := -1
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == types.RoleUser {
			lastUser = i
			break
		}
	}
	if lastUser >= 0 {
		at = lastUser
		for i := lastUser - 1; i >= 0; i-- {
			if history[i].Role == types.RoleAssistant {
				at = i
				break
			}
			if history[i].Role == types.RoleUser {
				break
			}
		}
	}

	out := make([]types.Message, 0, len(history)+len(s.Messages))
	out = append(out, history[:at]...)
	out = append(out, s.Messages...)
	out = append(out, history[at:]...)
	return out
}

// withoutState returns meta minus the state key, or nil when nothing is left.
func withoutState(meta map[string]string) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		if k != StateKey {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
