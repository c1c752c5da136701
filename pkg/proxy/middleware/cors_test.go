package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"curvelaboratory/promptgateway/pkg/config"
)

func TestCORSMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	t.Run("adds CORS headers for allowed origin", func(t *testing.T) {
		cfg := config.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"https://example.com"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         3600,
		}

		wrapped := CORSMiddleware(cfg)(handler)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "https://example.com")
		w := httptest.NewRecorder()

		wrapped.ServeHTTP(w, req)

		if w.Header().Get("Access-Control-Allow-Origin") != "https://example.com" {
			t.Errorf("Expected Access-Control-Allow-Origin header to be set")
		}
	})

	t.Run("rejects unknown origin", func(t *testing.T) {
		cfg := config.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"https://example.com"},
		}

		wrapped := CORSMiddleware(cfg)(handler)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "https://evil.example.org")
		w := httptest.NewRecorder()

		wrapped.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Expected no allow-origin header, got %q", got)
		}
	})

	t.Run("handles preflight OPTIONS request", func(t *testing.T) {
		cfg := config.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
		}

		called := false
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
		wrapped := CORSMiddleware(cfg)(inner)

		req := httptest.NewRequest(http.MethodOptions, "/v1/chat/completions", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := httptest.NewRecorder()

		wrapped.ServeHTTP(w, req)

		if called {
			t.Error("preflight should not reach the handler")
		}
		if w.Header().Get("Access-Control-Allow-Methods") == "" {
			t.Error("Expected Access-Control-Allow-Methods on preflight")
		}
	})

	t.Run("disabled is a no-op", func(t *testing.T) {
		wrapped := CORSMiddleware(config.CORSConfig{})(handler)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "https://example.com")
		w := httptest.NewRecorder()

		wrapped.ServeHTTP(w, req)

		if w.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Error("CORS headers should not be set when disabled")
		}
		if w.Code != http.StatusOK {
			t.Errorf("Status code = %v, want %v", w.Code, http.StatusOK)
		}
	})
}
