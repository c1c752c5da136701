package embeddings

import (
	"sync"
	"sync/atomic"
)

// TargetVector is the precomputed embedding of one target description.
type TargetVector struct {
	Target string
	Vector []float64
}

// Store holds the target vectors used for similarity routing. It is empty
// and not ready until Load succeeds.
type Store struct {
	mu      sync.RWMutex
	vectors []TargetVector
	ready   atomic.Bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Load replaces the vectors, preserving their order, and marks the store ready.
func (s *Store) Load(vectors []TargetVector) {
	cp := make([]TargetVector, len(vectors))
	copy(cp, vectors)

	s.mu.Lock()
	s.vectors = cp
	s.mu.Unlock()

	s.ready.Store(true)
}

// Ready reports whether target vectors have been loaded.
func (s *Store) Ready() bool {
	return s.ready.Load()
}

// Len returns the number of loaded targets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Scores returns the similarity of query to every target in load order.
func (s *Store) Scores(query []float64) []Score {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := make([]Score, len(s.vectors))
	for i, tv := range s.vectors {
		scores[i] = Score{Target: tv.Target, Value: CosineSimilarity(query, tv.Vector)}
	}
	return scores
}
