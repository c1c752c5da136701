package callout

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Entry is a pending callout: the stream that dispatched it and the
// snapshot its completion handler needs.
type Entry[T any] struct {
	Stream uint64
	Value  T
}

// Registry correlates callout tokens with pending entries. It is safe for
// concurrent use by every in-flight request.
//
// Tokens are issued from a monotonically increasing counter and are never
// reused, so a token is unique among outstanding calls for the lifetime of
// the process.
type Registry[T any] struct {
	next    atomic.Uint64
	mu      sync.Mutex
	pending map[uint64]Entry[T]
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{pending: make(map[uint64]Entry[T])}
}

// Insert records a pending callout for stream and returns its token.
func (r *Registry[T]) Insert(stream uint64, value T) uint64 {
	token := r.next.Add(1)

	r.mu.Lock()
	r.pending[token] = Entry[T]{Stream: stream, Value: value}
	r.mu.Unlock()

	return token
}

// Take removes and returns the entry for token. It fails with an
// *UnknownTokenError when the token is not outstanding, either because it
// was never issued, was already taken, or was evicted.
func (r *Registry[T]) Take(token uint64) (Entry[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.pending[token]
	if !ok {
		return Entry[T]{}, &UnknownTokenError{Token: token}
	}
	delete(r.pending, token)
	return e, nil
}

// TakeOwned is Take restricted to entries owned by stream. A token owned by
// another stream fails with a *ForeignTokenError and stays pending.
func (r *Registry[T]) TakeOwned(stream, token uint64) (Entry[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.pending[token]
	if !ok {
		return Entry[T]{}, &UnknownTokenError{Token: token}
	}
	if e.Stream != stream {
		return Entry[T]{}, &ForeignTokenError{Token: token, Owner: e.Stream}
	}
	delete(r.pending, token)
	return e, nil
}

// EvictStream removes every entry owned by stream and returns how many
// were removed.
func (r *Registry[T]) EvictStream(stream uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for token, e := range r.pending {
		if e.Stream == stream {
			delete(r.pending, token)
			n++
		}
	}
	return n
}

// Pending returns the number of outstanding entries owned by stream.
func (r *Registry[T]) Pending(stream uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.pending {
		if e.Stream == stream {
			n++
		}
	}
	return n
}

// Len returns the number of outstanding entries.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// UnknownTokenError reports a completion for a token that has no pending entry.
type UnknownTokenError struct {
	Token uint64
}

// Error implements the error interface.
func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("no pending callout for token %d", e.Token)
}

// ForeignTokenError reports a completion delivered to a stream that does not
// own the token.
type ForeignTokenError struct {
	Token uint64
	Owner uint64
}

// Error implements the error interface.
func (e *ForeignTokenError) Error() string {
	return fmt.Sprintf("token %d belongs to stream %d", e.Token, e.Owner)
}
