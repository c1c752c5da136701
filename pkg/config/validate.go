package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "listener.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateListener(&cfg.Listener)...)
	errs = append(errs, validateURL("model_server.base_url", cfg.ModelServer.BaseURL, true)...)
	errs = append(errs, validateURL("llm_upstream.base_url", cfg.LLMUpstream.BaseURL, true)...)

	for name, ep := range cfg.Endpoints {
		errs = append(errs, validateURL("endpoints."+name+".endpoint", ep.Endpoint, true)...)
	}

	errs = append(errs, validateTargets(cfg)...)
	errs = append(errs, validateRouting(&cfg.Routing)...)
	errs = append(errs, validateStages(&cfg.Stages)...)
	errs = append(errs, validateEmbeddingStore(&cfg.EmbeddingStore)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if cfg.Security.TLS.Enabled {
		if cfg.Security.TLS.CertFile == "" {
			errs = append(errs, FieldError{Field: "security.tls.cert_file", Message: "cert file is required when TLS is enabled"})
		}
		if cfg.Security.TLS.KeyFile == "" {
			errs = append(errs, FieldError{Field: "security.tls.key_file", Message: "key file is required when TLS is enabled"})
		}
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateListener(cfg *ListenerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "listener.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "listener.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "listener.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "listener.max_body_bytes", Message: "max body bytes must be non-negative"})
	}

	return errs
}

func validateURL(field, raw string, required bool) []FieldError {
	if raw == "" {
		if required {
			return []FieldError{{Field: field, Message: "field is required"}}
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return []FieldError{{Field: field, Message: fmt.Sprintf("invalid URL %q", raw)}}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []FieldError{{Field: field, Message: fmt.Sprintf("unsupported scheme %q", u.Scheme)}}
	}
	return nil
}

func validateTargets(cfg *Config) []FieldError {
	var errs []FieldError
	seen := make(map[string]bool, len(cfg.PromptTargets))
	defaults := 0

	for i, t := range cfg.PromptTargets {
		field := fmt.Sprintf("prompt_targets[%d]", i)
		if t.Name == "" {
			errs = append(errs, FieldError{Field: field + ".name", Message: "name is required"})
		} else if seen[t.Name] {
			errs = append(errs, FieldError{Field: field + ".name", Message: fmt.Sprintf("duplicate target name %q", t.Name)})
		}
		seen[t.Name] = true

		if t.Default {
			defaults++
		} else if t.Description == "" {
			errs = append(errs, FieldError{Field: field + ".description", Message: "description is required for routable targets"})
		}

		if t.Endpoint != nil {
			if t.Endpoint.Name == "" {
				errs = append(errs, FieldError{Field: field + ".endpoint.name", Message: "endpoint name is required"})
			} else if _, ok := cfg.Endpoints[t.Endpoint.Name]; !ok {
				errs = append(errs, FieldError{Field: field + ".endpoint.name", Message: fmt.Sprintf("unknown endpoint %q", t.Endpoint.Name)})
			}
			if !strings.HasPrefix(t.Endpoint.Path, "/") {
				errs = append(errs, FieldError{Field: field + ".endpoint.path", Message: "path must start with /"})
			}
		} else if t.Default {
			errs = append(errs, FieldError{Field: field + ".endpoint", Message: "default target requires an endpoint"})
		}

		pseen := make(map[string]bool, len(t.Parameters))
		for j, p := range t.Parameters {
			if p.Name == "" {
				errs = append(errs, FieldError{Field: fmt.Sprintf("%s.parameters[%d].name", field, j), Message: "name is required"})
			} else if pseen[p.Name] {
				errs = append(errs, FieldError{Field: fmt.Sprintf("%s.parameters[%d].name", field, j), Message: fmt.Sprintf("duplicate parameter %q", p.Name)})
			}
			pseen[p.Name] = true
		}
		if len(t.Parameters) > 0 && t.Endpoint == nil && !t.Default {
			errs = append(errs, FieldError{Field: field + ".endpoint", Message: "targets with parameters require an endpoint"})
		}
	}

	if defaults > 1 {
		errs = append(errs, FieldError{Field: "prompt_targets", Message: "at most one target may be the default"})
	}

	return errs
}

func validateRouting(cfg *RoutingConfig) []FieldError {
	var errs []FieldError

	if cfg.Precedence != PrecedenceEmbedding && cfg.Precedence != PrecedenceIntent {
		errs = append(errs, FieldError{
			Field:   "routing.precedence",
			Message: fmt.Sprintf("invalid precedence %q (must be %q or %q)", cfg.Precedence, PrecedenceEmbedding, PrecedenceIntent),
		})
	}
	if t := cfg.SimilarityMin(); t < 0 || t > 1 {
		errs = append(errs, FieldError{Field: "routing.similarity_threshold", Message: "threshold must be between 0 and 1"})
	}
	if t := cfg.IntentMin(); t < 0 || t > 1 {
		errs = append(errs, FieldError{Field: "routing.intent_threshold", Message: "threshold must be between 0 and 1"})
	}

	return errs
}

func validateStages(cfg *StagesConfig) []FieldError {
	var errs []FieldError

	stages := []struct {
		name  string
		stage StageConfig
	}{
		{"guard", cfg.Guard},
		{"embedding", cfg.Embedding},
		{"intent", cfg.Intent},
		{"function_calling", cfg.FunctionCalling},
		{"hallucination", cfg.Hallucination.StageConfig},
		{"developer_api", cfg.DeveloperAPI},
	}
	for _, s := range stages {
		if s.stage.Timeout < 0 {
			errs = append(errs, FieldError{Field: "stages." + s.name + ".timeout", Message: "timeout must be positive"})
		}
		if s.stage.FailurePolicy != FailurePolicyOpen && s.stage.FailurePolicy != FailurePolicyClosed {
			errs = append(errs, FieldError{
				Field:   "stages." + s.name + ".failure_policy",
				Message: fmt.Sprintf("invalid failure policy %q", s.stage.FailurePolicy),
			})
		}
	}

	if cfg.DeveloperAPI.FailurePolicy == FailurePolicyOpen {
		errs = append(errs, FieldError{Field: "stages.developer_api.failure_policy", Message: "developer API failures cannot fail open"})
	}
	if cfg.Hallucination.Threshold < 0 || cfg.Hallucination.Threshold > 1 {
		errs = append(errs, FieldError{Field: "stages.hallucination.threshold", Message: "threshold must be between 0 and 1"})
	}

	return errs
}

func validateEmbeddingStore(cfg *EmbeddingStoreConfig) []FieldError {
	var errs []FieldError

	switch cfg.Cache {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{Field: "embedding_store.cache", Message: fmt.Sprintf("invalid cache backend %q (must be memory or sqlite)", cfg.Cache)})
	}
	if _, err := cron.ParseStandard(cfg.RetrySchedule); err != nil {
		errs = append(errs, FieldError{Field: "embedding_store.retry_schedule", Message: fmt.Sprintf("invalid schedule: %v", err)})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{Field: "telemetry.logging.level", Message: fmt.Sprintf("invalid log level %q", cfg.Logging.Level)})
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{Field: "telemetry.logging.format", Message: fmt.Sprintf("invalid log format %q", cfg.Logging.Format)})
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "path must start with /"})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "sample ratio must be between 0 and 1"})
	}

	return errs
}
