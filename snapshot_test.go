package querycache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSnapshotPersistAndHydrate(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySnapshotStore(ctx)

	var fetches atomic.Int64
	fetcher := func(context.Context) (Result, error) {
		fetches.Add(1)
		return Result{Data: map[string]any{"title": "persisted"}, Tags: []Tag{"Todo"}}, nil
	}

	warm := New(WithSnapshots(store))
	if _, err := warm.Initiate(ctx, "todos", nil, fetcher); err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	// A cold cache over the same store hydrates without fetching.
	cold := New(WithSnapshots(store))
	e, err := cold.Initiate(ctx, "todos", nil, fetcher)
	if err != nil {
		t.Fatalf("cold initiate failed: %v", err)
	}
	if e.Status != StatusFulfilled {
		t.Fatalf("unexpected status: %s", e.Status)
	}
	if got := fetches.Load(); got != 1 {
		t.Fatalf("expected hydration instead of a second fetch, got %d fetches", got)
	}
	data, ok := e.Data.(map[string]any)
	if !ok || data["title"] != "persisted" {
		t.Fatalf("unexpected hydrated data: %+v", e.Data)
	}
	if len(e.Tags) != 1 || e.Tags[0] != "Todo" {
		t.Fatalf("expected tags restored, got %v", e.Tags)
	}
	// The restored tag edges are live for invalidation.
	if n := cold.InvalidateTags(ctx, "Todo"); n != 1 {
		t.Fatalf("expected hydrated entry invalidatable, got %d", n)
	}
}

type gatedLoadStore struct {
	SnapshotStore
	gated   string
	release chan struct{}
}

func (s *gatedLoadStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if key == s.gated {
		<-s.release
	}
	return s.SnapshotStore.Load(ctx, key)
}

func TestHydrationLoadDoesNotBlockDispatch(t *testing.T) {
	ctx := context.Background()
	inner := NewMemorySnapshotStore(ctx)

	seed := New(WithSnapshots(inner))
	if _, err := seed.Initiate(ctx, "slowTodos", nil, fixedFetcher("v1", "Todo")); err != nil {
		t.Fatalf("seed initiate failed: %v", err)
	}

	gate := &gatedLoadStore{SnapshotStore: inner, gated: "slowTodos()", release: make(chan struct{})}
	c := New(WithSnapshots(gate))

	var fetches atomic.Int64
	done := make(chan Entry, 1)
	go func() {
		e, _ := c.Initiate(ctx, "slowTodos", nil, func(context.Context) (Result, error) {
			fetches.Add(1)
			return Result{Data: "fetched"}, nil
		})
		done <- e
	}()

	waitForStatus(t, c, "slowTodos", nil, StatusPending)

	// Other operations keep flowing while the gated load is in flight.
	if _, err := c.Initiate(ctx, "otherTodos", nil, fixedFetcher("v2")); err != nil {
		t.Fatalf("initiate during hydration failed: %v", err)
	}
	if got := c.Len(); got != 2 {
		t.Fatalf("expected both entries present, got %d", got)
	}

	close(gate.release)
	select {
	case e := <-done:
		if e.Status != StatusFulfilled || e.Data != "v1" {
			t.Fatalf("unexpected hydrated entry: %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hydration never completed")
	}
	if got := fetches.Load(); got != 0 {
		t.Fatalf("expected hydration instead of a fetch, got %d fetches", got)
	}
}

func TestSnapshotDroppedOnEviction(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySnapshotStore(ctx)
	c := New(WithSnapshots(store), WithKeepUnusedFor(10*time.Millisecond))

	sub, err := c.Subscribe("todos", nil)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if _, err := c.Initiate(ctx, "todos", nil, fixedFetcher("v1")); err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	key, _ := NewKey("todos", nil)
	if _, ok, _ := store.Load(ctx, key.String()); !ok {
		t.Fatalf("expected snapshot saved")
	}

	sub.Cancel()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok, _ := store.Load(ctx, key.String()); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected snapshot deleted after eviction")
}

func TestSnapshotStoreFailureIsBestEffort(t *testing.T) {
	ctx := context.Background()
	var saveFailures atomic.Int64
	observer := ObserverFunc(func(_ context.Context, op, _ string, ok bool, err error, _ time.Duration, _ Status) {
		if op == "snapshot_save" && !ok && err != nil {
			saveFailures.Add(1)
		}
	})
	broken := &errorStore{driver: DriverMemory, err: context.DeadlineExceeded}
	c := New(WithSnapshots(broken), WithObserver(observer))

	e, err := c.Initiate(ctx, "todos", nil, fixedFetcher("v1"))
	if err != nil {
		t.Fatalf("initiate should not surface snapshot errors: %v", err)
	}
	if e.Status != StatusFulfilled {
		t.Fatalf("unexpected status: %s", e.Status)
	}
	if saveFailures.Load() != 1 {
		t.Fatalf("expected snapshot failure reported to observer, got %d", saveFailures.Load())
	}
}

func TestSnapshotCorruptBodyFallsThroughToFetch(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySnapshotStore(ctx)
	key, _ := NewKey("todos", nil)
	if err := store.Save(ctx, key.String(), []byte("{not json"), time.Minute); err != nil {
		t.Fatalf("seed corrupt snapshot: %v", err)
	}

	var fetches atomic.Int64
	fetcher := func(context.Context) (Result, error) {
		fetches.Add(1)
		return Result{Data: "fresh"}, nil
	}
	c := New(WithSnapshots(store))
	e, err := c.Initiate(ctx, "todos", nil, fetcher)
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if e.Status != StatusFulfilled || e.Data != "fresh" {
		t.Fatalf("expected fresh fetch past corrupt snapshot, got %+v", e)
	}
	if fetches.Load() != 1 {
		t.Fatalf("expected one fetch, got %d", fetches.Load())
	}
}

func TestResetFlushesSnapshots(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySnapshotStore(ctx)
	c := New(WithSnapshots(store))
	if _, err := c.Initiate(ctx, "todos", nil, fixedFetcher("v1")); err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if err := c.Reset(ctx); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	key, _ := NewKey("todos", nil)
	if _, ok, _ := store.Load(ctx, key.String()); ok {
		t.Fatalf("expected snapshots flushed on reset")
	}
}

func TestDataAsTypedAndHydrated(t *testing.T) {
	// Direct assertion path.
	e := Entry{Data: todo{ID: "1", Title: "typed"}}
	got, err := DataAs[todo](e)
	if err != nil || got.Title != "typed" {
		t.Fatalf("unexpected typed conversion: %+v err=%v", got, err)
	}

	// Hydrated entries carry generic JSON.
	e = Entry{Data: map[string]any{"id": "2", "title": "generic", "done": true}}
	got, err = DataAs[todo](e)
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	if got.ID != "2" || got.Title != "generic" || !got.Done {
		t.Fatalf("unexpected converted record: %+v", got)
	}

	if _, err := DataAs[int](Entry{Data: "not a number"}); err == nil {
		t.Fatalf("expected conversion error")
	}
}

func TestSnapshotEnvelopeRoundTrip(t *testing.T) {
	fetched := time.Now().Truncate(time.Millisecond)
	body, err := encodeSnapshot(Entry{
		Data:      map[string]any{"n": float64(3)},
		Tags:      []Tag{"A", "B"},
		FetchedAt: fetched,
	})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	data, tags, at, err := decodeSnapshot(body)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	m, ok := data.(map[string]any)
	if !ok || m["n"] != float64(3) {
		t.Fatalf("unexpected data: %+v", data)
	}
	if len(tags) != 2 {
		t.Fatalf("unexpected tags: %v", tags)
	}
	if !at.Equal(fetched) {
		t.Fatalf("unexpected fetchedAt: %v vs %v", at, fetched)
	}
}
