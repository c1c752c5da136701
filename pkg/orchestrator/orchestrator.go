package orchestrator

import (
	"log/slog"
	"sync/atomic"

	"curvelaboratory/promptgateway/pkg/callout"
	"curvelaboratory/promptgateway/pkg/config"
	"curvelaboratory/promptgateway/pkg/embeddings"
)

// Routes and reserved names.
const (
	// ChatCompletionsPath is the only path that enters the pipeline.
	ChatCompletionsPath = "/v1/chat/completions"

	// HealthzPath reports embedding store readiness.
	HealthzPath = "/healthz"

	// StateKey is the metadata key carrying continuation state.
	StateKey = "x-curve-state"

	// RequestIDHeader is propagated to every callout.
	RequestIDHeader = "x-request-id"
)

// Stage names, used for calls, errors and metrics.
const (
	StageGuard           = "guard"
	StageEmbedding       = "embedding"
	StageIntent          = "intent"
	StageFunctionCalling = "function_calling"
	StageHallucination   = "hallucination"
	StageDeveloperAPI    = "developer_api"
	StageDefaultTarget   = "default_target"
)

// Recorder receives routing outcomes. *metrics.Collector satisfies it.
type Recorder interface {
	RoutingDecision(target, signal string)
	GuardBlocked()
	ConsistencyError()
}

type nopRecorder struct{}

func (nopRecorder) RoutingDecision(string, string) {}
func (nopRecorder) GuardBlocked()                  {}
func (nopRecorder) ConsistencyError()              {}

// Orchestrator holds what every request shares: the immutable
// configuration, the correlation registry and the target vectors.
type Orchestrator struct {
	cfg      *config.Config
	registry *callout.Registry[CallContext]
	store    *embeddings.Store
	recorder Recorder
	logger   *slog.Logger

	// labels are the routable target names in declaration order.
	labels  []string
	streams atomic.Uint64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder sets the sink for routing metrics.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithLogger sets the base logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an orchestrator. cfg must already carry defaults and have
// passed validation; it is not modified.
func New(cfg *config.Config, registry *callout.Registry[CallContext], store *embeddings.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		registry: registry,
		store:    store,
		recorder: nopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = embeddings.NewStore()
	}

	for _, t := range cfg.PromptTargets {
		if t.Description != "" {
			o.labels = append(o.labels, t.Name)
		}
	}
	return o
}

// NewStream starts the state machine for one inbound request.
func (o *Orchestrator) NewStream() *Stream {
	id := o.streams.Add(1)
	return &Stream{
		o:      o,
		id:     id,
		logger: o.logger.With("stream", id),
	}
}

// Ready reports whether routing can run: the target vectors are loaded or
// similarity routing is disabled.
func (o *Orchestrator) Ready() bool {
	return o.cfg.Routing.DisableEmbedding || o.store.Ready()
}

// Registry returns the correlation registry shared by all streams.
func (o *Orchestrator) Registry() *callout.Registry[CallContext] {
	return o.registry
}
