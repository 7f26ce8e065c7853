package querycachefake

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goforj/querycache"
)

// Op identifies a snapshot store operation for assertions.
type Op string

const (
	OpLoad   Op = "load"
	OpSave   Op = "save"
	OpDelete Op = "delete"
	OpFlush  Op = "flush"
)

// Fake exposes a cache backed by a deterministic in-memory snapshot store plus
// assertion helpers for tests. No external services are needed.
type Fake struct {
	cache  *querycache.Cache
	counts map[Op]map[string]int
	mu     sync.Mutex
}

// New creates a Fake using an in-memory snapshot store.
func New(opts ...querycache.Option) *Fake {
	store := &countingStore{inner: querycache.NewMemorySnapshotStore(context.Background())}
	f := &Fake{
		counts: make(map[Op]map[string]int),
	}
	store.onCount = f.record
	f.cache = querycache.New(append([]querycache.Option{querycache.WithSnapshots(store)}, opts...)...)
	return f
}

// Cache returns the cache to inject into code under test.
func (f *Fake) Cache() *querycache.Cache { return f.cache }

// Reset clears recorded counts.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = make(map[Op]map[string]int)
}

// AssertCalled verifies key was touched by op the expected number of times.
func (f *Fake) AssertCalled(t *testing.T, op Op, key string, times int) {
	t.Helper()
	if got := f.Count(op, key); got != times {
		t.Fatalf("expected %s %q called %d times, got %d", op, key, times, got)
	}
}

// AssertNotCalled ensures key was never touched by op.
func (f *Fake) AssertNotCalled(t *testing.T, op Op, key string) {
	t.Helper()
	if got := f.Count(op, key); got != 0 {
		t.Fatalf("expected %s %q not called, got %d", op, key, got)
	}
}

// AssertTotal ensures the total call count for an op matches times.
func (f *Fake) AssertTotal(t *testing.T, op Op, times int) {
	t.Helper()
	if got := f.Total(op); got != times {
		t.Fatalf("expected %s total=%d, got %d", op, times, got)
	}
}

// Count returns calls for op+key.
func (f *Fake) Count(op Op, key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[op] == nil {
		return 0
	}
	return f.counts[op][key]
}

// Total returns total calls for an op across keys.
func (f *Fake) Total(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int
	for _, v := range f.counts[op] {
		sum += v
	}
	return sum
}

func (f *Fake) record(op Op, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[op] == nil {
		f.counts[op] = make(map[string]int)
	}
	f.counts[op][key]++
}

// countingStore wraps a SnapshotStore to record calls.
type countingStore struct {
	inner   querycache.SnapshotStore
	onCount func(Op, string)
}

func (s *countingStore) Driver() querycache.Driver { return s.inner.Driver() }

func (s *countingStore) Ready(ctx context.Context) error { return s.inner.Ready(ctx) }

func (s *countingStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	s.bump(OpLoad, key)
	return s.inner.Load(ctx, key)
}

func (s *countingStore) Save(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	s.bump(OpSave, key)
	return s.inner.Save(ctx, key, val, ttl)
}

func (s *countingStore) Delete(ctx context.Context, key string) error {
	s.bump(OpDelete, key)
	return s.inner.Delete(ctx, key)
}

func (s *countingStore) Flush(ctx context.Context) error {
	s.bump(OpFlush, "")
	return s.inner.Flush(ctx)
}

func (s *countingStore) bump(op Op, key string) {
	if s.onCount != nil {
		s.onCount(op, key)
	}
}
