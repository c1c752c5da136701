package config

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{
		LLMUpstream: LLMUpstreamConfig{BaseURL: "http://llm:8080"},
		Endpoints: map[string]EndpointConfig{
			"api": {Endpoint: "http://api:80"},
		},
		PromptTargets: []PromptTarget{
			{
				Name:        "weather",
				Description: "weather forecast",
				Endpoint:    &TargetEndpoint{Name: "api", Path: "/weather"},
				Parameters:  []Parameter{{Name: "city", Required: true}},
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "missing listen address",
			mutate: func(c *Config) { c.Listener.ListenAddress = "" },
			field:  "listener.listen_address",
		},
		{
			name:   "bad upstream url",
			mutate: func(c *Config) { c.LLMUpstream.BaseURL = "ftp://llm" },
			field:  "llm_upstream.base_url",
		},
		{
			name: "duplicate target",
			mutate: func(c *Config) {
				c.PromptTargets = append(c.PromptTargets, c.PromptTargets[0])
			},
			field: "prompt_targets[1].name",
		},
		{
			name:   "parameters without endpoint",
			mutate: func(c *Config) { c.PromptTargets[0].Endpoint = nil },
			field:  "prompt_targets[0].endpoint",
		},
		{
			name:   "unknown endpoint",
			mutate: func(c *Config) { c.PromptTargets[0].Endpoint.Name = "missing" },
			field:  "prompt_targets[0].endpoint.name",
		},
		{
			name: "two defaults",
			mutate: func(c *Config) {
				ep := &TargetEndpoint{Name: "api", Path: "/"}
				c.PromptTargets = append(c.PromptTargets,
					PromptTarget{Name: "a", Default: true, Endpoint: ep},
					PromptTarget{Name: "b", Default: true, Endpoint: ep},
				)
			},
			field: "prompt_targets",
		},
		{
			name:   "default without endpoint",
			mutate: func(c *Config) { c.PromptTargets = append(c.PromptTargets, PromptTarget{Name: "d", Default: true}) },
			field:  "prompt_targets[1].endpoint",
		},
		{
			name:   "threshold out of range",
			mutate: func(c *Config) { c.Routing.SimilarityThreshold = Float(1.5) },
			field:  "routing.similarity_threshold",
		},
		{
			name:   "unknown failure policy",
			mutate: func(c *Config) { c.Stages.Guard.FailurePolicy = "maybe" },
			field:  "stages.guard.failure_policy",
		},
		{
			name:   "developer api fail open",
			mutate: func(c *Config) { c.Stages.DeveloperAPI.FailurePolicy = FailurePolicyOpen },
			field:  "stages.developer_api.failure_policy",
		},
		{
			name:   "bad schedule",
			mutate: func(c *Config) { c.EmbeddingStore.RetrySchedule = "every now and then" },
			field:  "embedding_store.retry_schedule",
		},
		{
			name:   "bad cache",
			mutate: func(c *Config) { c.EmbeddingStore.Cache = "redis" },
			field:  "embedding_store.cache",
		},
		{
			name:   "tracing without endpoint",
			mutate: func(c *Config) { c.Telemetry.Tracing.Enabled = true },
			field:  "telemetry.tracing.endpoint",
		},
		{
			name:   "tls without cert",
			mutate: func(c *Config) { c.Security.TLS.Enabled = true; c.Security.TLS.KeyFile = "k" },
			field:  "security.tls.cert_file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error for field %q, got %v", tt.field, verr.Errors)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if single.Error() != "configuration validation failed: a: bad" {
		t.Errorf("unexpected message: %q", single.Error())
	}

	multi := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	if !strings.Contains(multi.Error(), "2 errors") {
		t.Errorf("unexpected message: %q", multi.Error())
	}
}
