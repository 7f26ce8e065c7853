package querycachetest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goforj/querycache"
)

// Options configures shared snapshot store contract checks.
type Options struct {
	// CaseName is used to namespace keys. Defaults to t.Name().
	CaseName string
	// NullSemantics enables relaxed expectations for the null store.
	NullSemantics bool
	// SkipCloneCheck disables the "load returns a cloned value" assertion.
	SkipCloneCheck bool
	// TTL controls the expiry duration used in TTL tests.
	TTL time.Duration
	// TTLWait is how long the harness waits for expiry to occur.
	TTLWait time.Duration
	// SkipFlush disables the flush assertion for drivers where it is expensive or unavailable.
	SkipFlush bool
}

// Store is the minimal contract required by RunSnapshotStoreContract.
type Store = querycache.SnapshotStore

// RunSnapshotStoreContract runs a backend-agnostic snapshot store contract suite.
func RunSnapshotStoreContract(t *testing.T, store Store, opts Options) {
	t.Helper()

	caseName := opts.CaseName
	if caseName == "" {
		caseName = t.Name()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 50 * time.Millisecond
	}
	wait := opts.TTLWait
	if wait <= 0 {
		wait = 120 * time.Millisecond
	}

	ctx := context.Background()
	key := func(s string) string {
		return sanitize(caseName) + ":" + s
	}

	// Save/Load round-trip.
	if err := store.Save(ctx, key("alpha"), []byte("value"), time.Second); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	body, ok, err := store.Load(ctx, key("alpha"))
	if err != nil {
		t.Fatalf("load failed: ok=%v err=%v", ok, err)
	}
	if opts.NullSemantics {
		if ok {
			t.Fatalf("expected miss for null semantics")
		}
	} else {
		if !ok || string(body) != "value" {
			t.Fatalf("unexpected load result: ok=%v body=%q err=%v", ok, string(body), err)
		}
		if !opts.SkipCloneCheck {
			body[0] = 'X'
			body2, ok2, err2 := store.Load(ctx, key("alpha"))
			if err2 != nil || !ok2 || string(body2) != "value" {
				t.Fatalf("expected stored value unchanged, got ok=%v body=%q err=%v", ok2, string(body2), err2)
			}
		}
	}

	// TTL expiry.
	if err := store.Save(ctx, key("ttl"), []byte("v"), ttl); err != nil {
		t.Fatalf("save ttl failed: %v", err)
	}
	if err := waitForMiss(ctx, store, key("ttl"), wait); err != nil {
		t.Fatalf("expected ttl expiry: %v", err)
	}

	// Overwrite keeps the latest value.
	if err := store.Save(ctx, key("latest"), []byte("first"), time.Second); err != nil {
		t.Fatalf("save first failed: %v", err)
	}
	if err := store.Save(ctx, key("latest"), []byte("second"), time.Second); err != nil {
		t.Fatalf("save second failed: %v", err)
	}
	body, ok, err = store.Load(ctx, key("latest"))
	if err != nil {
		t.Fatalf("load latest failed: %v", err)
	}
	if opts.NullSemantics {
		if ok {
			t.Fatalf("expected miss for null semantics")
		}
	} else if !ok || string(body) != "second" {
		t.Fatalf("expected overwrite to win: ok=%v body=%q", ok, string(body))
	}

	// Delete.
	if err := store.Save(ctx, key("a"), []byte("1"), time.Second); err != nil {
		t.Fatalf("save a failed: %v", err)
	}
	if err := store.Delete(ctx, key("a")); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, err := store.Load(ctx, key("a")); err != nil || ok {
		t.Fatalf("expected key a deleted; ok=%v err=%v", ok, err)
	}
	// Deleting a missing key is not an error.
	if err := store.Delete(ctx, key("missing")); err != nil {
		t.Fatalf("delete missing failed: %v", err)
	}

	// Flush.
	if !opts.SkipFlush {
		if err := store.Save(ctx, key("flush"), []byte("x"), time.Second); err != nil {
			t.Fatalf("save flush failed: %v", err)
		}
		if err := store.Flush(ctx); err != nil {
			t.Fatalf("flush failed: %v", err)
		}
		if _, ok, err := store.Load(ctx, key("flush")); err != nil || ok {
			t.Fatalf("expected flush to clear key; ok=%v err=%v", ok, err)
		}
	}
}

func waitForMiss(ctx context.Context, store Store, key string, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		_, ok, err := store.Load(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	_, ok, err := store.Load(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("key %q still present after %s", key, wait)
	}
	return nil
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
