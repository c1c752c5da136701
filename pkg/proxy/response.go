package proxy

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"curvelaboratory/promptgateway/pkg/proxy/types"
)

// hopHeaders are connection-scoped and never copied between hops.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// WriteJSONResponse writes v as JSON with the given status code.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// WriteErrorResponse writes an OpenAI-compatible error response.
//
// Example usage:
//
//	status, errResp := proxy.HandleError(err)
//	proxy.WriteErrorResponse(w, status, errResp)
func WriteErrorResponse(w http.ResponseWriter, statusCode int, errResp *types.ErrorResponse) {
	WriteJSONResponse(w, statusCode, errResp)
}

// WriteBody writes a prebuilt body with the given status. Headers already
// set on header are copied first; Content-Length is recomputed by net/http.
func WriteBody(w http.ResponseWriter, statusCode int, header http.Header, body []byte) {
	for key, values := range header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.Header().Del("Content-Length")
	w.WriteHeader(statusCode)

	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			slog.Debug("failed to write response body", "error", err)
		}
	}
}

// SetSSEHeaders sets the headers for a Server-Sent Events response.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// CopyResponseHeaders copies src into dst, skipping hop-by-hop headers and
// Content-Length, which changes whenever the body is rewritten.
func CopyResponseHeaders(dst, src http.Header) {
	for key, values := range src {
		if isHopHeader(key) || http.CanonicalHeaderKey(key) == "Content-Length" {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

// StripHopHeaders removes hop-by-hop headers from h in place.
func StripHopHeaders(h http.Header) {
	for _, key := range hopHeaders {
		h.Del(key)
	}
}

func isHopHeader(key string) bool {
	key = http.CanonicalHeaderKey(key)
	for _, h := range hopHeaders {
		if h == key {
			return true
		}
	}
	return false
}

// Flush flushes w if it supports streaming.
func Flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
