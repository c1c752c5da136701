package embeddings

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"curvelaboratory/promptgateway/pkg/config"
)

// Bootstrapper fills a Store with target vectors. When the model server is
// not reachable at startup it keeps retrying on a cron schedule and removes
// its job after the first success.
type Bootstrapper struct {
	store    *Store
	embedder Embedder
	cache    Cache
	targets  []config.PromptTarget
	model    string
	schedule string

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	running bool
	logger  *slog.Logger
}

// NewBootstrapper creates a bootstrapper for the routable targets in cfg.
// cache may be nil.
func NewBootstrapper(cfg *config.Config, store *Store, embedder Embedder, cache Cache) *Bootstrapper {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Bootstrapper{
		store:    store,
		embedder: embedder,
		cache:    cache,
		targets:  cfg.PromptTargets,
		model:    cfg.Models.Embedding,
		schedule: cfg.EmbeddingStore.RetrySchedule,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   slog.Default().With("component", "embeddings.bootstrap"),
	}
}

// Initialize computes every target vector and loads the store. Cached
// vectors are reused; freshly computed ones are written back.
func (b *Bootstrapper) Initialize(ctx context.Context) error {
	vectors := make([]TargetVector, 0, len(b.targets))

	for _, t := range b.targets {
		if t.Description == "" {
			continue
		}

		key := CacheKey(b.model, t.Description)
		vector, ok, err := b.cache.Get(ctx, key)
		if err != nil {
			b.logger.WarnContext(ctx, "embedding cache read failed", "target", t.Name, "error", err)
		}
		if !ok {
			vector, err = b.embedder.Embed(ctx, t.Description)
			if err != nil {
				return fmt.Errorf("failed to embed target %q: %w", t.Name, err)
			}
			if err := b.cache.Put(ctx, key, vector); err != nil {
				b.logger.WarnContext(ctx, "embedding cache write failed", "target", t.Name, "error", err)
			}
		}

		vectors = append(vectors, TargetVector{Target: t.Name, Vector: vector})
	}

	b.store.Load(vectors)
	b.logger.InfoContext(ctx, "embedding store initialized", "targets", len(vectors))
	return nil
}

// Start tries Initialize once and, on failure, schedules retries. It
// returns an error only when the schedule cannot be installed.
func (b *Bootstrapper) Start(ctx context.Context) error {
	err := b.Initialize(ctx)
	if err == nil {
		return nil
	}
	b.logger.WarnContext(ctx, "embedding store not ready, scheduling retries",
		"schedule", b.schedule,
		"error", err,
	)

	b.mu.Lock()
	defer b.mu.Unlock()

	id, err := b.cron.AddFunc(b.schedule, func() { b.retry(ctx) })
	if err != nil {
		return fmt.Errorf("invalid retry schedule %q: %w", b.schedule, err)
	}
	b.entry = id
	b.cron.Start()
	b.running = true

	go func() {
		<-ctx.Done()
		b.Stop()
	}()

	return nil
}

func (b *Bootstrapper) retry(ctx context.Context) {
	if b.store.Ready() {
		return
	}
	if err := b.Initialize(ctx); err != nil {
		b.logger.WarnContext(ctx, "embedding store retry failed", "error", err)
		return
	}

	// entry is set before the scheduler starts, so jobs never observe it unset.
	b.cron.Remove(b.entry)
}

// Stop stops the retry scheduler and waits for a running attempt.
func (b *Bootstrapper) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		<-b.cron.Stop().Done()
		b.running = false
	}
}

// Pending reports whether a retry job is still scheduled.
func (b *Bootstrapper) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.cron.Entries()) > 0
}
