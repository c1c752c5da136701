package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse builds a configuration from YAML bytes, applying defaults and
// validating the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CURVE_SECTION_FIELD (e.g., CURVE_LISTENER_LISTEN_ADDRESS) and
// always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// Listener overrides
	if val := os.Getenv("CURVE_LISTENER_LISTEN_ADDRESS"); val != "" {
		cfg.Listener.ListenAddress = val
	}
	if val := os.Getenv("CURVE_LISTENER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Listener.WriteTimeout = d
		}
	}

	// Upstream overrides
	if val := os.Getenv("CURVE_MODEL_SERVER_BASE_URL"); val != "" {
		cfg.ModelServer.BaseURL = val
	}
	if val := os.Getenv("CURVE_LLM_UPSTREAM_BASE_URL"); val != "" {
		cfg.LLMUpstream.BaseURL = val
	}
	if val := os.Getenv("CURVE_LLM_UPSTREAM_API_KEY_SECRET"); val != "" {
		cfg.LLMUpstream.APIKeySecret = val
	}

	// Routing overrides
	if val := os.Getenv("CURVE_ROUTING_PRECEDENCE"); val != "" {
		cfg.Routing.Precedence = strings.ToLower(val)
	}
	if val := os.Getenv("CURVE_ROUTING_SIMILARITY_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Routing.SimilarityThreshold = Float(f)
		}
	}
	if val := os.Getenv("CURVE_ROUTING_INTENT_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Routing.IntentThreshold = Float(f)
		}
	}

	if val := os.Getenv("CURVE_SECRETS_DIRECTORY"); val != "" {
		cfg.Secrets.Directory = val
	}

	// Telemetry overrides
	if val := os.Getenv("CURVE_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("CURVE_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("CURVE_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("CURVE_TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("CURVE_TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
}
