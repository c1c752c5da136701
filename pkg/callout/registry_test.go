package callout

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistry_InsertTake(t *testing.T) {
	r := NewRegistry[string]()

	t1 := r.Insert(1, "guard")
	t2 := r.Insert(1, "embeddings")
	if t1 == t2 {
		t.Fatalf("tokens must be unique, got %d twice", t1)
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 pending, got %d", r.Len())
	}

	e, err := r.Take(t1)
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if e.Value != "guard" || e.Stream != 1 {
		t.Errorf("unexpected entry %+v", e)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 pending after take, got %d", r.Len())
	}
}

func TestRegistry_TakeTwice(t *testing.T) {
	r := NewRegistry[int]()
	token := r.Insert(7, 42)

	if _, err := r.Take(token); err != nil {
		t.Fatalf("first Take failed: %v", err)
	}

	_, err := r.Take(token)
	var unknown *UnknownTokenError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownTokenError, got %v", err)
	}
	if unknown.Token != token {
		t.Errorf("expected token %d in error, got %d", token, unknown.Token)
	}
}

func TestRegistry_TakeUnknown(t *testing.T) {
	r := NewRegistry[int]()
	if _, err := r.Take(999); err == nil {
		t.Fatal("expected error for unknown token")
	}
}

func TestRegistry_TakeOwned(t *testing.T) {
	r := NewRegistry[string]()
	token := r.Insert(1, "guard")

	_, err := r.TakeOwned(2, token)
	var foreign *ForeignTokenError
	if !errors.As(err, &foreign) {
		t.Fatalf("expected ForeignTokenError, got %v", err)
	}
	if foreign.Owner != 1 || foreign.Token != token {
		t.Errorf("unexpected error fields %+v", foreign)
	}
	if r.Pending(1) != 1 {
		t.Fatal("a foreign take must leave the owner's entry pending")
	}

	e, err := r.TakeOwned(1, token)
	if err != nil {
		t.Fatalf("owner TakeOwned failed: %v", err)
	}
	if e.Value != "guard" || r.Len() != 0 {
		t.Errorf("unexpected entry %+v, %d left", e, r.Len())
	}

	var unknown *UnknownTokenError
	if _, err := r.TakeOwned(1, token); !errors.As(err, &unknown) {
		t.Errorf("expected UnknownTokenError after take, got %v", err)
	}
}

func TestRegistry_EvictStream(t *testing.T) {
	r := NewRegistry[string]()
	a := r.Insert(1, "a")
	r.Insert(1, "b")
	c := r.Insert(2, "c")

	if n := r.EvictStream(1); n != 2 {
		t.Errorf("expected 2 evicted, got %d", n)
	}
	if r.Pending(1) != 0 {
		t.Errorf("stream 1 still has %d pending", r.Pending(1))
	}
	if _, err := r.Take(a); err == nil {
		t.Error("evicted token should not be redeemable")
	}
	if _, err := r.Take(c); err != nil {
		t.Errorf("other stream's entry should survive eviction: %v", err)
	}
}

func TestRegistry_ConcurrentExactlyOnce(t *testing.T) {
	r := NewRegistry[int]()
	const n = 200

	tokens := make([]uint64, n)
	for i := range tokens {
		tokens[i] = r.Insert(uint64(i%4), i)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes = make(map[uint64]int)
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, tok := range tokens {
				if _, err := r.Take(tok); err == nil {
					mu.Lock()
					successes[tok]++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if len(successes) != n {
		t.Fatalf("expected %d tokens taken, got %d", n, len(successes))
	}
	for tok, count := range successes {
		if count != 1 {
			t.Errorf("token %d taken %d times", tok, count)
		}
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
}
