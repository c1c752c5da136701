package config

import "time"

// Failure policies for callout stages.
const (
	FailurePolicyOpen   = "fail_open"
	FailurePolicyClosed = "fail_closed"
)

// Routing precedences.
const (
	PrecedenceEmbedding = "embedding"
	PrecedenceIntent    = "intent"
)

// Default values for configuration fields.
const (
	// Listener defaults
	DefaultListenAddress   = "127.0.0.1:10000"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 300 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576  // 1MB
	DefaultMaxBodyBytes    = 10485760 // 10MB
	DefaultCORSMaxAge      = 3600

	// Model server defaults
	DefaultModelServerURL      = "http://127.0.0.1:8000"
	DefaultGuardPath           = "/guard"
	DefaultEmbeddingsPath      = "/embeddings"
	DefaultIntentPath          = "/zeroshot"
	DefaultFunctionCallingPath = "/function_calling"
	DefaultHallucinationPath   = "/hallucination"
	DefaultMaxRetries          = 3

	// LLM upstream defaults
	DefaultLLMPath    = "/v1/chat/completions"
	DefaultLLMTimeout = 120 * time.Second

	// Target defaults
	DefaultTargetPath   = "/"
	DefaultTargetMethod = "POST"

	DefaultGuardMessage = "Looks like you're curious about my abilities, but I can only provide assistance within my programmed parameters."

	// Routing defaults
	DefaultPrecedence          = PrecedenceEmbedding
	DefaultSimilarityThreshold = 0.8
	DefaultIntentThreshold     = 0.6

	// Stage defaults
	DefaultGuardTimeout           = 5 * time.Second
	DefaultEmbeddingTimeout       = 60 * time.Second
	DefaultIntentTimeout          = 5 * time.Second
	DefaultFunctionCallingTimeout = 120 * time.Second
	DefaultHallucinationTimeout   = 5 * time.Second
	DefaultDeveloperAPITimeout    = 120 * time.Second
	DefaultHallucinationThreshold = 0.25

	// Model defaults
	DefaultEmbeddingModel       = "curvelaboratory/bge-large-en-v1.5"
	DefaultIntentModel          = "curvelaboratory/bart-large-mnli"
	DefaultFunctionCallingModel = "Curve-Function-1.5B"

	// Embedding store defaults
	DefaultEmbeddingCache         = "memory"
	DefaultEmbeddingSQLitePath    = "data/embeddings.db"
	DefaultEmbeddingRetrySchedule = "@every 30s"

	// Secrets defaults
	DefaultSecretsEnvPrefix = "CURVE_SECRET_"

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultMetricsPath         = "/metrics"
	DefaultMetricsNamespace    = "curve"
	DefaultTracingServiceName  = "curve-gateway"
	DefaultTracingSamplingRate = 1.0
)

// ApplyDefaults applies default values to any unset configuration fields.
// It is idempotent.
func ApplyDefaults(cfg *Config) {
	applyListenerDefaults(&cfg.Listener)

	ms := &cfg.ModelServer
	if ms.BaseURL == "" {
		ms.BaseURL = DefaultModelServerURL
	}
	if ms.GuardPath == "" {
		ms.GuardPath = DefaultGuardPath
	}
	if ms.EmbeddingsPath == "" {
		ms.EmbeddingsPath = DefaultEmbeddingsPath
	}
	if ms.IntentPath == "" {
		ms.IntentPath = DefaultIntentPath
	}
	if ms.FunctionCallingPath == "" {
		ms.FunctionCallingPath = DefaultFunctionCallingPath
	}
	if ms.HallucinationPath == "" {
		ms.HallucinationPath = DefaultHallucinationPath
	}
	if ms.MaxRetries == 0 {
		ms.MaxRetries = DefaultMaxRetries
	}

	if cfg.LLMUpstream.Path == "" {
		cfg.LLMUpstream.Path = DefaultLLMPath
	}
	if cfg.LLMUpstream.Timeout == 0 {
		cfg.LLMUpstream.Timeout = DefaultLLMTimeout
	}
	if cfg.LLMUpstream.MaxRetries == 0 {
		cfg.LLMUpstream.MaxRetries = DefaultMaxRetries
	}

	for name, ep := range cfg.Endpoints {
		if ep.MaxRetries == 0 {
			ep.MaxRetries = DefaultMaxRetries
			cfg.Endpoints[name] = ep
		}
	}

	for i := range cfg.PromptTargets {
		if ep := cfg.PromptTargets[i].Endpoint; ep != nil {
			if ep.Path == "" {
				ep.Path = DefaultTargetPath
			}
			if ep.Method == "" {
				ep.Method = DefaultTargetMethod
			}
		}
	}

	if jb := cfg.PromptGuards.InputGuards.Jailbreak; jb != nil && jb.OnException.Message == "" {
		jb.OnException.Message = DefaultGuardMessage
	}

	if cfg.Routing.Precedence == "" {
		cfg.Routing.Precedence = DefaultPrecedence
	}
	if cfg.Routing.SimilarityThreshold == nil {
		cfg.Routing.SimilarityThreshold = Float(DefaultSimilarityThreshold)
	}
	if cfg.Routing.IntentThreshold == nil {
		cfg.Routing.IntentThreshold = Float(DefaultIntentThreshold)
	}

	applyStageDefaults(&cfg.Stages)

	if cfg.Models.Embedding == "" {
		cfg.Models.Embedding = DefaultEmbeddingModel
	}
	if cfg.Models.Intent == "" {
		cfg.Models.Intent = DefaultIntentModel
	}
	if cfg.Models.FunctionCalling == "" {
		cfg.Models.FunctionCalling = DefaultFunctionCallingModel
	}

	if cfg.EmbeddingStore.Cache == "" {
		cfg.EmbeddingStore.Cache = DefaultEmbeddingCache
	}
	if cfg.EmbeddingStore.SQLitePath == "" {
		cfg.EmbeddingStore.SQLitePath = DefaultEmbeddingSQLitePath
	}
	if cfg.EmbeddingStore.RetrySchedule == "" {
		cfg.EmbeddingStore.RetrySchedule = DefaultEmbeddingRetrySchedule
	}

	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
}

func applyListenerDefaults(l *ListenerConfig) {
	if l.ListenAddress == "" {
		l.ListenAddress = DefaultListenAddress
	}
	if l.ReadTimeout == 0 {
		l.ReadTimeout = DefaultReadTimeout
	}
	if l.WriteTimeout == 0 {
		l.WriteTimeout = DefaultWriteTimeout
	}
	if l.IdleTimeout == 0 {
		l.IdleTimeout = DefaultIdleTimeout
	}
	if l.ShutdownTimeout == 0 {
		l.ShutdownTimeout = DefaultShutdownTimeout
	}
	if l.MaxHeaderBytes == 0 {
		l.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if l.MaxBodyBytes == 0 {
		l.MaxBodyBytes = DefaultMaxBodyBytes
	}

	cors := &l.CORS
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}

func applyStageDefaults(s *StagesConfig) {
	stageDefault(&s.Guard, DefaultGuardTimeout, FailurePolicyClosed)
	stageDefault(&s.Embedding, DefaultEmbeddingTimeout, FailurePolicyOpen)
	stageDefault(&s.Intent, DefaultIntentTimeout, FailurePolicyOpen)
	stageDefault(&s.FunctionCalling, DefaultFunctionCallingTimeout, FailurePolicyClosed)
	stageDefault(&s.Hallucination.StageConfig, DefaultHallucinationTimeout, FailurePolicyClosed)
	stageDefault(&s.DeveloperAPI, DefaultDeveloperAPITimeout, FailurePolicyClosed)

	if s.Hallucination.Threshold == 0 {
		s.Hallucination.Threshold = DefaultHallucinationThreshold
	}
}

func stageDefault(s *StageConfig, timeout time.Duration, policy string) {
	if s.Timeout == 0 {
		s.Timeout = timeout
	}
	if s.FailurePolicy == "" {
		s.FailurePolicy = policy
	}
}
