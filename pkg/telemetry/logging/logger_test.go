package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad level", Config{Level: "verbose"}},
		{"bad format", Config{Format: "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNew_JSONIncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := WithRequestID(context.Background(), "req-42")
	logger.With("component", "test").InfoContext(ctx, "hello", "target", "weather")

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if rec["request_id"] != "req-42" {
		t.Errorf("request_id = %v", rec["request_id"])
	}
	if rec["component"] != "test" || rec["target"] != "weather" {
		t.Errorf("missing attributes: %v", rec)
	}
}

func TestNew_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("calling upstream", "Authorization", "Bearer sk-live", "api_key", "sk-123")

	out := buf.String()
	if strings.Contains(out, "sk-live") || strings.Contains(out, "sk-123") {
		t.Errorf("credential leaked into log: %s", out)
	}
	if !strings.Contains(out, redacted) {
		t.Errorf("expected placeholder in output: %s", out)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record written at warn level: %s", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Error("warn record missing")
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("ready", "addr", "127.0.0.1:10000")
	if !strings.Contains(buf.String(), "ready") {
		t.Errorf("unexpected console output: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := parseLevel(in)
		if err != nil || got != want {
			t.Errorf("parseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("expected empty id, got %q", id)
	}
}
