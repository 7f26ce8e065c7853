package querycache

import (
	"context"
	"testing"
	"time"
)

func TestNullStoreDropsEverything(t *testing.T) {
	ctx := context.Background()
	store := newNullStore()

	if store.Driver() != DriverNull {
		t.Fatalf("unexpected driver: %s", store.Driver())
	}
	if err := store.Ready(ctx); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	if err := store.Save(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, ok, err := store.Load(ctx, "k"); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
}
