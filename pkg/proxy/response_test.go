package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"curvelaboratory/promptgateway/pkg/proxy/types"
	"curvelaboratory/promptgateway/pkg/upstream"
)

func TestWriteErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusBadRequest, types.NewInvalidRequestError("bad", "messages", types.CodeInvalidValue))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status code = %v, want %v", w.Code, http.StatusBadRequest)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Error.Param != "messages" {
		t.Errorf("Param = %q, want messages", got.Error.Param)
	}
}

func TestWriteBody(t *testing.T) {
	w := httptest.NewRecorder()
	header := http.Header{}
	header.Set("Content-Type", "text/event-stream")
	header.Set("Content-Length", "999")

	WriteBody(w, http.StatusOK, header, []byte("data: [DONE]\n\n"))

	if w.Header().Get("Content-Length") != "" {
		t.Error("stale Content-Length must be dropped")
	}
	if w.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if w.Body.String() != "data: [DONE]\n\n" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestCopyResponseHeaders(t *testing.T) {
	src := http.Header{}
	src.Set("Content-Type", "application/json")
	src.Set("Content-Length", "42")
	src.Set("Connection", "close")
	src.Set("Transfer-Encoding", "chunked")
	src.Add("X-Upstream", "a")
	src.Add("X-Upstream", "b")

	dst := http.Header{}
	CopyResponseHeaders(dst, src)

	if dst.Get("Content-Length") != "" || dst.Get("Connection") != "" || dst.Get("Transfer-Encoding") != "" {
		t.Errorf("hop-by-hop headers copied: %v", dst)
	}
	if len(dst.Values("X-Upstream")) != 2 {
		t.Errorf("multi-value header lost: %v", dst.Values("X-Upstream"))
	}

	StripHopHeaders(src)
	if src.Get("Connection") != "" || src.Get("Content-Type") == "" {
		t.Errorf("StripHopHeaders removed the wrong headers: %v", src)
	}
}

func TestSetSSEHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SetSSEHeaders(w)

	if w.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if w.Header().Get("Cache-Control") != "no-cache" {
		t.Errorf("Cache-Control = %q", w.Header().Get("Cache-Control"))
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"nil", nil, http.StatusInternalServerError, types.ErrorTypeServerError},
		{"request", &RequestError{Message: "too big", Code: types.CodeRequestTooLarge}, http.StatusBadRequest, types.ErrorTypeInvalidRequest},
		{"timeout", &upstream.TimeoutError{Cluster: "llm", Timeout: time.Second}, http.StatusGatewayTimeout, types.ErrorTypeGatewayTimeout},
		{"transport", &upstream.TransportError{Cluster: "llm", Cause: errors.New("refused")}, http.StatusBadGateway, types.ErrorTypeBadGateway},
		{"status", &upstream.StatusError{Cluster: "llm", StatusCode: 503}, http.StatusBadGateway, types.ErrorTypeBadGateway},
		{"wrapped timeout", fmt.Errorf("forward: %w", &upstream.TimeoutError{Cluster: "llm"}), http.StatusGatewayTimeout, types.ErrorTypeGatewayTimeout},
		{"unknown cluster", &upstream.UnknownClusterError{Cluster: "nope"}, http.StatusInternalServerError, types.ErrorTypeServerError},
		{"other", errors.New("secret detail"), http.StatusInternalServerError, types.ErrorTypeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := HandleError(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if resp.Error.Type != tt.wantType {
				t.Errorf("type = %q, want %q", resp.Error.Type, tt.wantType)
			}
			if strings.Contains(resp.Error.Message, "secret") || strings.Contains(resp.Error.Message, "refused") {
				t.Errorf("cause leaked into message: %q", resp.Error.Message)
			}
		})
	}
}
