package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChatCompletionResponse represents an OpenAI-compatible chat completion response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`

	// Metadata is echoed by curve-aware backends and carries continuation state.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Choice represents a single completion choice.
type Choice struct {
	Index   int     `json:"index"`
	Message Message `json:"message"`

	// FinishReason explains why the model stopped generating tokens.
	// Possible values: "stop", "length", "tool_calls", "content_filter".
	FinishReason string `json:"finish_reason"`
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewChatCompletion builds a single-choice assistant completion. It is used
// for replies the gateway composes itself.
func NewChatCompletion(model, content string) *ChatCompletionResponse {
	return &ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []Choice{{
			Index:        0,
			Message:      Message{Role: RoleAssistant, Content: content},
			FinishReason: "stop",
		}},
	}
}

// FirstMessage returns the message of the first choice, or nil.
func (r *ChatCompletionResponse) FirstMessage() *Message {
	if len(r.Choices) == 0 {
		return nil
	}
	return &r.Choices[0].Message
}

// ChatCompletionStreamChunk represents a chunk in a streaming response.
type ChatCompletionStreamChunk struct {
	ID      string         `json:"id,omitempty"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model,omitempty"`
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice represents a single choice in a streaming response.
type StreamChoice struct {
	Index int   `json:"index"`
	Delta Delta `json:"delta"`

	// FinishReason is only present in the final chunk.
	FinishReason *string `json:"finish_reason"`
}

// Delta contains incremental content in a streaming response.
type Delta struct {
	Role      string     `json:"role,omitempty"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// NewStreamChunk builds a single-choice stream chunk.
func NewStreamChunk(model string, delta Delta) *ChatCompletionStreamChunk {
	return &ChatCompletionStreamChunk{
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []StreamChoice{{Index: 0, Delta: delta}},
	}
}

// EncodeServerEvents renders chunks as consecutive "data: <json>\n\n" events.
func EncodeServerEvents(chunks ...*ChatCompletionStreamChunk) ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range chunks {
		data, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stream chunk: %w", err)
		}
		buf.WriteString("data: ")
		buf.Write(data)
		buf.WriteString("\n\n")
	}
	return buf.Bytes(), nil
}
