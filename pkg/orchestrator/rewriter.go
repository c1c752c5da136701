package orchestrator

import (
	"net/http"

	"curvelaboratory/promptgateway/pkg/proxy/types"
)

// OnResponseHeaders inspects the LLM response head. header is modified in
// place. Only successful responses are rewritten.
func (s *Stream) OnResponseHeaders(status int, header http.Header) {
	header.Del("Content-Length")
	if s.requestID != "" && header.Get(RequestIDHeader) == "" {
		header.Set(RequestIDHeader, s.requestID)
	}
	if status < 200 || status >= 300 {
		s.clearToolCall()
	}
}

// OnResponseBody returns the bytes to send to the caller for chunk. A nil
// result before endOfStream means the chunk is held until the body is
// complete.
//
// When a tool call ran this turn, streamed responses are prefixed with the
// tool-call and tool-result events, and complete JSON responses get the
// continuation state in their metadata. Either happens at most once.
func (s *Stream) OnResponseBody(chunk []byte, endOfStream bool) []byte {
	if endOfStream {
		defer func() { s.state = stateDone }()
	}
	if !s.isChat || !s.rewrite || len(s.toolCalls) == 0 {
		return chunk
	}

	if s.streaming {
		prefix, err := types.EncodeServerEvents(
			types.NewStreamChunk(s.o.cfg.Models.FunctionCalling, types.Delta{
				Role:      types.RoleAssistant,
				ToolCalls: s.toolCalls,
			}),
			types.NewStreamChunk(s.o.cfg.Models.FunctionCalling, types.Delta{
				Role:    types.RoleTool,
				Content: s.toolResponse,
			}),
		)
		s.clearToolCall()
		if err != nil {
			s.logger.Warn("failed to encode tool call events", "error", err)
			return chunk
		}
		return append(prefix, chunk...)
	}

	s.responseBuf = append(s.responseBuf, chunk...)
	if !endOfStream {
		return nil
	}
	body := s.responseBuf
	s.responseBuf = nil

	out := s.attachState(body)
	s.clearToolCall()
	return out
}

// attachState writes the continuation state into the response metadata.
// Bodies that cannot carry it are returned unchanged.
func (s *Stream) attachState(body []byte) []byte {
	rb := types.ParseResponseBody(body)
	if rb.Kind != types.BodyObject {
		s.logger.Warn("LLM response is not a JSON object, continuation state dropped")
		return body
	}

	value, err := ContinuationState{Messages: s.toolMessages()}.Encode()
	if err == nil {
		err = rb.SetMetadata(StateKey, value)
	}
	var out []byte
	if err == nil {
		out, err = rb.Bytes()
	}
	if err != nil {
		s.logger.Warn("failed to attach continuation state", "error", err)
		return body
	}
	return out
}

func (s *Stream) clearToolCall() {
	s.toolCalls = nil
	s.toolResponse = ""
	s.rewrite = false
}
