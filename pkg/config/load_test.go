package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConfig = `
listener:
  listen_address: "0.0.0.0:10000"

model_server:
  base_url: "http://model-server:8000"

llm_upstream:
  base_url: "https://api.openai.com"
  api_key_secret: "openai-api-key"

endpoints:
  api_server:
    endpoint: "http://api-server:80"

prompt_targets:
  - name: weather_forecast
    description: "get the weather forecast for a city"
    system_prompt: "You are a weather assistant."
    endpoint:
      name: api_server
      path: /weather
    parameters:
      - name: city
        type: string
        required: true
      - name: days
        type: integer
  - name: chit_chat
    default: true
    auto_llm_dispatch_on_response: true
    endpoint:
      name: api_server
      path: /default

prompt_guards:
  input_guards:
    jailbreak:
      on_exception:
        message: "nope"

stages:
  intent:
    timeout: 2s
    failure_policy: fail_closed

telemetry:
  logging:
    level: "debug"
    format: "console"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "curve.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Listener.ListenAddress != "0.0.0.0:10000" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:10000", cfg.Listener.ListenAddress)
	}
	if len(cfg.PromptTargets) != 2 {
		t.Fatalf("expected 2 prompt targets, got %d", len(cfg.PromptTargets))
	}

	weather := cfg.Target("weather_forecast")
	if weather == nil {
		t.Fatal("weather_forecast target not found")
	}
	if weather.Endpoint.Method != DefaultTargetMethod {
		t.Errorf("expected default method %q, got %q", DefaultTargetMethod, weather.Endpoint.Method)
	}
	if !weather.Parameters[0].Required {
		t.Error("expected city to be required")
	}

	def := cfg.DefaultTarget()
	if def == nil || def.Name != "chit_chat" {
		t.Fatalf("expected default target chit_chat, got %+v", def)
	}
	if !def.AutoLLMDispatchOnResponse {
		t.Error("expected auto_llm_dispatch_on_response to be true")
	}

	if !cfg.JailbreakGuardEnabled() {
		t.Error("expected jailbreak guard to be enabled")
	}
	if got := cfg.PromptGuards.InputGuards.Jailbreak.OnException.Message; got != "nope" {
		t.Errorf("expected guard message %q, got %q", "nope", got)
	}

	if cfg.Stages.Intent.Timeout != 2*time.Second {
		t.Errorf("expected intent timeout 2s, got %v", cfg.Stages.Intent.Timeout)
	}
	if cfg.Stages.Intent.FailOpen() {
		t.Error("expected intent stage to fail closed")
	}
	if !cfg.Stages.Embedding.FailOpen() {
		t.Error("expected embedding stage to fail open by default")
	}
	if cfg.Stages.Guard.FailOpen() {
		t.Error("expected guard stage to fail closed by default")
	}
	if cfg.Telemetry.Logging.Format != "console" {
		t.Errorf("expected console log format, got %q", cfg.Telemetry.Logging.Format)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`llm_upstream: {base_url: "http://llm:8080"}`))
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"listen address", cfg.Listener.ListenAddress, DefaultListenAddress},
		{"model server", cfg.ModelServer.BaseURL, DefaultModelServerURL},
		{"llm path", cfg.LLMUpstream.Path, DefaultLLMPath},
		{"precedence", cfg.Routing.Precedence, PrecedenceEmbedding},
		{"similarity threshold", cfg.Routing.SimilarityMin(), DefaultSimilarityThreshold},
		{"intent threshold", cfg.Routing.IntentMin(), DefaultIntentThreshold},
		{"hallucination threshold", cfg.Stages.Hallucination.Threshold, DefaultHallucinationThreshold},
		{"guard timeout", cfg.Stages.Guard.Timeout, DefaultGuardTimeout},
		{"embedding timeout", cfg.Stages.Embedding.Timeout, DefaultEmbeddingTimeout},
		{"function calling timeout", cfg.Stages.FunctionCalling.Timeout, DefaultFunctionCallingTimeout},
		{"fc model", cfg.Models.FunctionCalling, DefaultFunctionCallingModel},
		{"embedding model", cfg.Models.Embedding, DefaultEmbeddingModel},
		{"retry schedule", cfg.EmbeddingStore.RetrySchedule, DefaultEmbeddingRetrySchedule},
		{"secrets prefix", cfg.Secrets.EnvPrefix, DefaultSecretsEnvPrefix},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if cfg.JailbreakGuardEnabled() {
		t.Error("guard should be disabled when not configured")
	}
	if cfg.DefaultTarget() != nil {
		t.Error("expected no default target")
	}
}

func TestParse_ExplicitZeroThresholds(t *testing.T) {
	cfg, err := Parse([]byte(`
llm_upstream:
  base_url: "http://llm:8080"
routing:
  similarity_threshold: 0
  intent_threshold: 0
`))
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}
	if cfg.Routing.SimilarityMin() != 0 {
		t.Errorf("explicit similarity threshold 0 replaced by %v", cfg.Routing.SimilarityMin())
	}
	if cfg.Routing.IntentMin() != 0 {
		t.Errorf("explicit intent threshold 0 replaced by %v", cfg.Routing.IntentMin())
	}

	programmatic := &Config{Routing: RoutingConfig{SimilarityThreshold: Float(0)}}
	ApplyDefaults(programmatic)
	if programmatic.Routing.SimilarityMin() != 0 {
		t.Errorf("ApplyDefaults overwrote explicit 0 with %v", programmatic.Routing.SimilarityMin())
	}
	if programmatic.Routing.IntentMin() != DefaultIntentThreshold {
		t.Errorf("unset intent threshold = %v, want default", programmatic.Routing.IntentMin())
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "listener: [unclosed"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "routing:\n  precedence: coin_flip\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors) < 2 {
		t.Errorf("expected missing upstream and bad precedence errors, got %v", verr.Errors)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	t.Setenv("CURVE_LISTENER_LISTEN_ADDRESS", "127.0.0.1:9999")
	t.Setenv("CURVE_ROUTING_PRECEDENCE", "INTENT")
	t.Setenv("CURVE_ROUTING_SIMILARITY_THRESHOLD", "0.5")
	t.Setenv("CURVE_TELEMETRY_METRICS_ENABLED", "true")
	t.Setenv("CURVE_LLM_UPSTREAM_BASE_URL", "http://llm.internal:8080")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Listener.ListenAddress != "127.0.0.1:9999" {
		t.Errorf("listen address not overridden: %q", cfg.Listener.ListenAddress)
	}
	if cfg.Routing.Precedence != PrecedenceIntent {
		t.Errorf("precedence not overridden: %q", cfg.Routing.Precedence)
	}
	if cfg.Routing.SimilarityMin() != 0.5 {
		t.Errorf("similarity threshold not overridden: %v", cfg.Routing.SimilarityMin())
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("metrics not enabled by override")
	}
	if cfg.LLMUpstream.BaseURL != "http://llm.internal:8080" {
		t.Errorf("llm upstream not overridden: %q", cfg.LLMUpstream.BaseURL)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv("CURVE_TELEMETRY_LOGGING_LEVEL", "loud")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Fatal("expected validation error after override")
	}
}
