package config

import "time"

// Config is the root configuration structure for the Curve prompt gateway.
// It is built once at startup and passed by reference to every component;
// nothing mutates it after LoadConfig returns.
type Config struct {
	// Listener contains HTTP listener configuration including listen address,
	// timeouts, and body limits.
	Listener ListenerConfig `yaml:"listener"`

	// ModelServer describes the internal model server hosting the guard,
	// embedding, intent, function-calling and hallucination models.
	ModelServer ModelServerConfig `yaml:"model_server"`

	// LLMUpstream is the backend model the resumed chat request is forwarded to.
	LLMUpstream LLMUpstreamConfig `yaml:"llm_upstream"`

	// Endpoints are the developer API clusters referenced by prompt targets.
	// Keys are endpoint names.
	Endpoints map[string]EndpointConfig `yaml:"endpoints"`

	// PromptTargets are the routable targets, in declaration order.
	// Declaration order breaks similarity and intent ties.
	PromptTargets []PromptTarget `yaml:"prompt_targets"`

	// PromptGuards configures input guards.
	PromptGuards PromptGuardsConfig `yaml:"prompt_guards"`

	// Routing controls how similarity and intent signals pick a target.
	Routing RoutingConfig `yaml:"routing"`

	// Stages holds per-callout timeouts and failure policies.
	Stages StagesConfig `yaml:"stages"`

	// Models names the models requested from the model server.
	Models ModelsConfig `yaml:"models"`

	// SystemPrompt is prepended to the LLM request when the resolved target
	// does not define its own.
	SystemPrompt string `yaml:"system_prompt"`

	// EmbeddingStore configures the target vector store.
	EmbeddingStore EmbeddingStoreConfig `yaml:"embedding_store"`

	// Secrets configures where upstream credentials are read from.
	Secrets SecretsConfig `yaml:"secrets"`

	// Telemetry contains configuration for logging, metrics, and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Security contains TLS settings for the listener.
	Security SecurityConfig `yaml:"security"`
}

// ListenerConfig contains configuration for the inbound HTTP listener.
type ListenerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:10000"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It must cover the slowest pipeline (function calling plus
	// the developer API plus the LLM).
	// Default: 300s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits inbound chat request bodies.
	// Default: 10485760 (10MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	// Enabled controls whether CORS handling is installed.
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	// Default: ["Authorization", "Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache lifetime in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`

	AllowCredentials bool `yaml:"allow_credentials"`
}

// ModelServerConfig describes the internal model server.
type ModelServerConfig struct {
	// BaseURL is the model server address.
	// Default: "http://127.0.0.1:8000"
	BaseURL string `yaml:"base_url"`

	// GuardPath default: "/guard"
	GuardPath string `yaml:"guard_path"`

	// EmbeddingsPath default: "/embeddings"
	EmbeddingsPath string `yaml:"embeddings_path"`

	// IntentPath default: "/zeroshot"
	IntentPath string `yaml:"intent_path"`

	// FunctionCallingPath default: "/function_calling"
	FunctionCallingPath string `yaml:"function_calling_path"`

	// HallucinationPath default: "/hallucination"
	HallucinationPath string `yaml:"hallucination_path"`

	// MaxRetries is the transport retry budget for model server calls.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`
}

// LLMUpstreamConfig describes the backend LLM.
type LLMUpstreamConfig struct {
	// BaseURL is the upstream address, e.g. "https://api.openai.com".
	BaseURL string `yaml:"base_url"`

	// Path is appended to BaseURL for chat completions.
	// Default: "/v1/chat/completions"
	Path string `yaml:"path"`

	// APIKeySecret names the secret holding the bearer token, if any.
	APIKeySecret string `yaml:"api_key_secret"`

	// Timeout bounds a single upstream exchange.
	// Default: 120s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries default: 3
	MaxRetries int `yaml:"max_retries"`
}

// EndpointConfig describes a developer API cluster.
type EndpointConfig struct {
	// Endpoint is the base URL of the cluster, e.g. "http://api-server:80".
	Endpoint string `yaml:"endpoint"`

	// APIKeySecret names the secret holding the bearer token, if any.
	APIKeySecret string `yaml:"api_key_secret"`

	// MaxRetries default: 3
	MaxRetries int `yaml:"max_retries"`
}

// PromptTarget is a routable destination. Read-only after startup.
type PromptTarget struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Default marks the target used when no signal resolves a match.
	// At most one target may be the default.
	Default bool `yaml:"default"`

	// AutoLLMDispatchOnResponse forwards the default target's reply to the
	// LLM as context instead of returning it to the caller directly.
	AutoLLMDispatchOnResponse bool `yaml:"auto_llm_dispatch_on_response"`

	// SystemPrompt overrides the global system prompt for this target.
	SystemPrompt string `yaml:"system_prompt"`

	Endpoint   *TargetEndpoint `yaml:"endpoint"`
	Parameters []Parameter     `yaml:"parameters"`
}

// TargetEndpoint binds a target to an endpoint path.
type TargetEndpoint struct {
	// Name references a key of Config.Endpoints.
	Name string `yaml:"name"`

	// Path default: "/"
	Path string `yaml:"path"`

	// Method default: "POST"
	Method string `yaml:"method"`
}

// Parameter is one field of a target's parameter schema.
type Parameter struct {
	Name        string      `yaml:"name"`
	Type        string      `yaml:"type"`
	Description string      `yaml:"description"`
	Required    bool        `yaml:"required"`
	Enum        []string    `yaml:"enum"`
	Default     interface{} `yaml:"default"`
}

// PromptGuardsConfig configures prompt guards.
type PromptGuardsConfig struct {
	InputGuards InputGuardsConfig `yaml:"input_guards"`
}

// InputGuardsConfig lists the guards applied to user input.
type InputGuardsConfig struct {
	// Jailbreak enables the jailbreak guard when present.
	Jailbreak *GuardConfig `yaml:"jailbreak"`
}

// GuardConfig configures a single guard.
type GuardConfig struct {
	OnException GuardExceptionConfig `yaml:"on_exception"`
}

// GuardExceptionConfig controls what the caller sees when a guard trips.
type GuardExceptionConfig struct {
	// Message is the refusal text.
	// Default: "Looks like you're curious about my abilities, but I can only provide assistance within my programmed parameters."
	Message string `yaml:"message"`
}

// RoutingConfig controls target selection.
type RoutingConfig struct {
	// Precedence is the signal that wins when both are confident.
	// Valid values: "embedding", "intent".
	// Default: "embedding"
	Precedence string `yaml:"precedence"`

	// SimilarityThreshold is the minimum cosine similarity for a match.
	// An explicit 0 accepts the best-scoring target.
	// Default: 0.8
	SimilarityThreshold *float64 `yaml:"similarity_threshold"`

	// IntentThreshold is the minimum intent confidence for a match.
	// Default: 0.6
	IntentThreshold *float64 `yaml:"intent_threshold"`

	// DisableEmbedding turns the similarity signal off.
	DisableEmbedding bool `yaml:"disable_embedding"`

	// DisableIntent turns the intent signal off.
	DisableIntent bool `yaml:"disable_intent"`
}

// SimilarityMin returns the similarity threshold, or its default when unset.
func (r RoutingConfig) SimilarityMin() float64 {
	if r.SimilarityThreshold == nil {
		return DefaultSimilarityThreshold
	}
	return *r.SimilarityThreshold
}

// IntentMin returns the intent threshold, or its default when unset.
func (r RoutingConfig) IntentMin() float64 {
	if r.IntentThreshold == nil {
		return DefaultIntentThreshold
	}
	return *r.IntentThreshold
}

// Float returns a pointer to v, for optional thresholds.
func Float(v float64) *float64 {
	return &v
}

// StagesConfig holds per-stage timeouts and failure policies.
type StagesConfig struct {
	Guard           StageConfig        `yaml:"guard"`
	Embedding       StageConfig        `yaml:"embedding"`
	Intent          StageConfig        `yaml:"intent"`
	FunctionCalling StageConfig        `yaml:"function_calling"`
	Hallucination   HallucinationStage `yaml:"hallucination"`
	DeveloperAPI    StageConfig        `yaml:"developer_api"`
}

// StageConfig configures a single callout stage.
type StageConfig struct {
	// Timeout bounds the callout.
	Timeout time.Duration `yaml:"timeout"`

	// FailurePolicy is "fail_open" or "fail_closed".
	FailurePolicy string `yaml:"failure_policy"`
}

// FailOpen reports whether a failed callout should be treated as "no signal".
func (s StageConfig) FailOpen() bool {
	return s.FailurePolicy == FailurePolicyOpen
}

// HallucinationStage configures the hallucination check.
type HallucinationStage struct {
	StageConfig `yaml:",inline"`

	// Threshold is passed to the model server.
	// Default: 0.25
	Threshold float64 `yaml:"threshold"`

	// Skip disables the check; tool calls go straight to the developer API.
	Skip bool `yaml:"skip"`
}

// ModelsConfig names the models requested from the model server.
type ModelsConfig struct {
	// Embedding default: "curvelaboratory/bge-large-en-v1.5"
	Embedding string `yaml:"embedding"`

	// Intent default: "curvelaboratory/bart-large-mnli"
	Intent string `yaml:"intent"`

	// FunctionCalling default: "Curve-Function-1.5B"
	FunctionCalling string `yaml:"function_calling"`
}

// EmbeddingStoreConfig configures the target vector store.
type EmbeddingStoreConfig struct {
	// Cache is the vector cache backend: "memory" or "sqlite".
	// Default: "memory"
	Cache string `yaml:"cache"`

	// SQLitePath is the cache database file when Cache is "sqlite".
	// Default: "data/embeddings.db"
	SQLitePath string `yaml:"sqlite_path"`

	// RetrySchedule is the cron spec used to retry initialization while
	// the model server is unavailable.
	// Default: "@every 30s"
	RetrySchedule string `yaml:"retry_schedule"`
}

// SecretsConfig configures credential lookup.
type SecretsConfig struct {
	// Directory holds one file per secret. Empty disables file secrets.
	Directory string `yaml:"directory"`

	// Watch reloads file secrets when they change on disk.
	Watch bool `yaml:"watch"`

	// EnvPrefix is the prefix for environment secrets.
	// Default: "CURVE_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level valid values: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format valid values: "json", "text", "console".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path default: "/metrics"
	Path string `yaml:"path"`

	// Namespace default: "curve"
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// ServiceName default: "curve-gateway"
	ServiceName string `yaml:"service_name"`

	// SampleRatio default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	Insecure bool `yaml:"insecure"`
}

// SecurityConfig contains listener security settings.
type SecurityConfig struct {
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains TLS configuration.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// DefaultTarget returns the default prompt target, or nil when none is declared.
func (c *Config) DefaultTarget() *PromptTarget {
	for i := range c.PromptTargets {
		if c.PromptTargets[i].Default {
			return &c.PromptTargets[i]
		}
	}
	return nil
}

// Target returns the prompt target with the given name, or nil.
func (c *Config) Target(name string) *PromptTarget {
	for i := range c.PromptTargets {
		if c.PromptTargets[i].Name == name {
			return &c.PromptTargets[i]
		}
	}
	return nil
}

// JailbreakGuardEnabled reports whether the jailbreak guard is configured.
func (c *Config) JailbreakGuardEnabled() bool {
	return c.PromptGuards.InputGuards.Jailbreak != nil
}
