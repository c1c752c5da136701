package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatCompletionRequest represents an OpenAI-compatible chat completion request.
//
// Only the fields the gateway reads or rewrites are typed. Every other
// top-level field (sampling parameters, response_format, ...) is kept in
// Extra and written back unchanged by MarshalJSON.
type ChatCompletionRequest struct {
	// Model is the ID of the model to use.
	Model string `json:"model,omitempty"`

	// Messages is the conversation history as a list of messages.
	Messages []Message `json:"messages"`

	// Stream enables server-sent events (SSE) streaming.
	Stream bool `json:"stream,omitempty"`

	// Metadata is a string map carried alongside the request. The gateway
	// reserves one key for continuation state.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Tools is a list of tools/functions the model can call.
	Tools []Tool `json:"tools,omitempty"`

	// ToolChoice controls which tool the model should use.
	ToolChoice interface{} `json:"tool_choice,omitempty"`

	// Extra holds top-level fields not modelled above.
	Extra map[string]json.RawMessage `json:"-"`
}

var requestFields = map[string]bool{
	"model":       true,
	"messages":    true,
	"stream":      true,
	"metadata":    true,
	"tools":       true,
	"tool_choice": true,
}

// UnmarshalJSON decodes the typed fields and keeps the rest in Extra.
func (r *ChatCompletionRequest) UnmarshalJSON(data []byte) error {
	type plain ChatCompletionRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range all {
		if requestFields[k] {
			delete(all, k)
		}
	}
	if len(all) == 0 {
		all = nil
	}

	*r = ChatCompletionRequest(p)
	r.Extra = all
	return nil
}

// MarshalJSON encodes the typed fields merged with Extra.
func (r ChatCompletionRequest) MarshalJSON() ([]byte, error) {
	type plain ChatCompletionRequest
	data, err := json.Marshal(plain(r))
	if err != nil || len(r.Extra) == 0 {
		return data, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, typed := merged[k]; !typed {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// LastUserMessage returns the index of the final user message, or -1.
func (r *ChatCompletionRequest) LastUserMessage() int {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// Validate checks that every message carries a known role.
func (r *ChatCompletionRequest) Validate() error {
	for i, msg := range r.Messages {
		switch msg.Role {
		case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		case "":
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: "message role is required",
			}
		default:
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: fmt.Sprintf("unsupported message role %q", msg.Role),
			}
		}
	}
	return nil
}

// Message represents a single message in a conversation.
type Message struct {
	// Role is the author of the message ("system", "user", "assistant", or "tool").
	Role string `json:"role"`

	// Content is a string or an array of content parts.
	Content interface{} `json:"content"`

	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Text returns the textual content of the message. Text parts of multimodal
// content are joined with a space; other parts are ignored.
func (m Message) Text() string {
	switch c := m.Content.(type) {
	case nil:
		return ""
	case string:
		return c
	case []interface{}:
		var parts []string
		for _, part := range c {
			p, ok := part.(map[string]interface{})
			if !ok || p["type"] != "text" {
				continue
			}
			if text, ok := p["text"].(string); ok {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprintf("%v", c)
	}
}

// Tool represents a function/tool that the model can call.
type Tool struct {
	// Type is always "function" for function calling.
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes a function that can be called by the model.
type FunctionDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Parameters is a JSON Schema object describing the function parameters.
	Parameters map[string]interface{} `json:"parameters"`
}

// ToolCall represents a function call made by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall represents the function name and arguments.
type FunctionCall struct {
	Name      string    `json:"name"`
	Arguments Arguments `json:"arguments"`
}

// Arguments are decoded tool-call arguments. They unmarshal from either a
// JSON object or a JSON string containing an object, and always marshal to
// the OpenAI string form.
type Arguments map[string]interface{}

// UnmarshalJSON accepts an object, a string-encoded object, or null.
func (a *Arguments) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*a = Arguments{}
			return nil
		}
		data = []byte(s)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("tool call arguments must be a JSON object: %w", err)
	}
	*a = m
	return nil
}

// MarshalJSON encodes the arguments as a JSON string.
func (a Arguments) MarshalJSON() ([]byte, error) {
	inner, err := a.Object()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(inner))
}

// Object returns the arguments as a raw JSON object.
func (a Arguments) Object() ([]byte, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]interface{}(a))
}

// ValidationError represents a request validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}
