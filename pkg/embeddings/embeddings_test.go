package embeddings

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"curvelaboratory/promptgateway/pkg/config"
	"curvelaboratory/promptgateway/pkg/upstream"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"length mismatch", []float64{1}, []float64{1, 2}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	scores := []Score{{"a", 0.7}, {"b", 0.9}, {"c", 0.9}, {"d", 0.1}}

	tests := []struct {
		threshold float64
		want      string
		ok        bool
	}{
		{0.5, "b", true},
		{0.9, "b", true},
		{0.91, "", false},
	}
	for _, tt := range tests {
		got, ok := Select(scores, tt.threshold)
		if got != tt.want || ok != tt.ok {
			t.Errorf("threshold %v: got (%q, %v), want (%q, %v)", tt.threshold, got, ok, tt.want, tt.ok)
		}
	}

	if _, ok := Select(nil, 0); ok {
		t.Error("empty scores must not select")
	}
}

func TestSelect_MonotonicThreshold(t *testing.T) {
	queries := [][]Score{
		{{"a", 0.95}, {"b", 0.2}},
		{{"a", 0.81}, {"b", 0.79}},
		{{"a", 0.5}, {"b", 0.6}},
		{{"a", 0.0}},
	}

	prev := len(queries) + 1
	for th := 0.0; th <= 1.0; th += 0.05 {
		routed := 0
		for _, q := range queries {
			if _, ok := Select(q, th); ok {
				routed++
			}
		}
		if routed > prev {
			t.Fatalf("raising threshold to %.2f increased routed count from %d to %d", th, prev, routed)
		}
		prev = routed
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	if s.Ready() {
		t.Fatal("new store must not be ready")
	}

	s.Load([]TargetVector{
		{Target: "weather", Vector: []float64{1, 0}},
		{Target: "stocks", Vector: []float64{0, 1}},
	})
	if !s.Ready() || s.Len() != 2 {
		t.Fatalf("store not loaded: ready=%v len=%d", s.Ready(), s.Len())
	}

	scores := s.Scores([]float64{1, 0.1})
	if scores[0].Target != "weather" || scores[1].Target != "stocks" {
		t.Fatalf("scores out of declaration order: %+v", scores)
	}
	if scores[0].Value <= scores[1].Value {
		t.Errorf("expected weather to score higher: %+v", scores)
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantLen int
		wantErr bool
	}{
		{"vector", `{"vector":[0.1,0.2]}`, 2, false},
		{"openai", `{"data":[{"embedding":[0.1,0.2,0.3]}]}`, 3, false},
		{"empty", `{}`, 0, true},
		{"garbage", `nope`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseResponse([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(v) != tt.wantLen {
				t.Errorf("got %d dims, want %d", len(v), tt.wantLen)
			}
		})
	}
}

func TestModelServerEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"vector":[1,2,3]}`))
	}))
	defer server.Close()

	pool := upstream.NewPool()
	pool.Register(upstream.NewClient(upstream.ClusterConfig{Name: upstream.ModelServerCluster, BaseURL: server.URL}, nil, nil))

	v, err := NewModelServerEmbedder(pool, "/embeddings", "m").Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(v) != 3 {
		t.Errorf("unexpected vector %v", v)
	}
}

func TestCaches(t *testing.T) {
	sqlite, err := NewSQLiteCache(filepath.Join(t.TempDir(), "nested", "vectors.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite cache: %v", err)
	}
	defer sqlite.Close()

	caches := map[string]Cache{
		"memory": NewMemoryCache(),
		"sqlite": sqlite,
	}

	for name, c := range caches {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := CacheKey("model", "weather forecast")

			if _, ok, err := c.Get(ctx, key); ok || err != nil {
				t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
			}
			if err := c.Put(ctx, key, []float64{0.5, 0.25}); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			if err := c.Put(ctx, key, []float64{0.5, 0.75}); err != nil {
				t.Fatalf("overwrite failed: %v", err)
			}
			v, ok, err := c.Get(ctx, key)
			if err != nil || !ok {
				t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
			}
			if len(v) != 2 || v[1] != 0.75 {
				t.Errorf("unexpected vector %v", v)
			}
		})
	}
}

func TestSQLiteCache_Pragmas(t *testing.T) {
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "vectors.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite cache: %v", err)
	}
	defer c.Close()

	var mode string
	if err := c.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var timeout int
	if err := c.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}

func TestCacheKey(t *testing.T) {
	if CacheKey("a", "b") == CacheKey("b", "a") {
		t.Error("key must depend on model and text separately")
	}
	if CacheKey("m", "x") != CacheKey("m", "x") {
		t.Error("key must be deterministic")
	}
}

type fakeEmbedder struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	f.calls.Add(1)
	if f.fail.Load() {
		return nil, errors.New("model server unavailable")
	}
	return []float64{float64(len(text)), 1}, nil
}

func bootstrapConfig() *config.Config {
	cfg := &config.Config{PromptTargets: []config.PromptTarget{
		{Name: "weather", Description: "weather forecast"},
		{Name: "fallback", Default: true},
		{Name: "stocks", Description: "stock quotes"},
	}}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestBootstrapper_InitializeUsesCache(t *testing.T) {
	cfg := bootstrapConfig()
	cache := NewMemoryCache()
	emb := &fakeEmbedder{}

	store := NewStore()
	if err := NewBootstrapper(cfg, store, emb, cache).Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("expected 2 routable targets, got %d", store.Len())
	}
	if emb.calls.Load() != 2 {
		t.Errorf("expected 2 embed calls, got %d", emb.calls.Load())
	}

	second := NewStore()
	if err := NewBootstrapper(cfg, second, emb, cache).Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
	if emb.calls.Load() != 2 {
		t.Errorf("cached vectors should not be recomputed, got %d calls", emb.calls.Load())
	}
}

func TestBootstrapper_RetriesUntilReady(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emb := &fakeEmbedder{}
	emb.fail.Store(true)

	store := NewStore()
	b := NewBootstrapper(bootstrapConfig(), store, emb, nil)
	defer b.Stop()

	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if store.Ready() {
		t.Fatal("store should not be ready while the model server fails")
	}
	if !b.Pending() {
		t.Fatal("expected a retry job to be scheduled")
	}

	b.retry(ctx)
	if store.Ready() {
		t.Fatal("failed retry must not mark the store ready")
	}

	emb.fail.Store(false)
	b.retry(ctx)
	if !store.Ready() {
		t.Fatal("store should be ready after a successful retry")
	}
	if b.Pending() {
		t.Error("retry job should be removed after success")
	}
}

func TestBootstrapper_StartReadyImmediately(t *testing.T) {
	store := NewStore()
	b := NewBootstrapper(bootstrapConfig(), store, &fakeEmbedder{}, nil)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !store.Ready() || b.Pending() {
		t.Errorf("expected ready store and no retry job: ready=%v pending=%v", store.Ready(), b.Pending())
	}
}
