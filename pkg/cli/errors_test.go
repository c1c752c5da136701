package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := &ConfigError{
		Field:   "config.yaml",
		Message: "llm_upstream.base_url: field is required",
	}

	expected := "invalid configuration config.yaml: llm_upstream.base_url: field is required"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("field", "message")
	if err.Field != "field" {
		t.Errorf("Field = %q, want %q", err.Field, "field")
	}
	if err.Message != "message" {
		t.Errorf("Message = %q, want %q", err.Message, "message")
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	underlyingErr := errors.New("listen tcp: address in use")
	err := NewCommandError("run", underlyingErr)

	if err.Error() != "command run failed: listen tcp: address in use" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, underlyingErr) {
		t.Error("errors.Is() should work with CommandError.Unwrap()")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"config", NewConfigError("config.yaml", "bad"), ExitConfig},
		{"wrapped config", fmt.Errorf("load: %w", NewConfigError("config.yaml", "bad")), ExitConfig},
		{"command", NewCommandError("run", errors.New("boom")), ExitFailure},
		{"plain", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
