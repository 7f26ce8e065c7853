package querycache_test

import (
	"context"
	"testing"

	"github.com/goforj/querycache"
	"github.com/goforj/querycache/querycachetest"
)

func TestSnapshotStoreContract_MemoryStore(t *testing.T) {
	store := querycache.NewMemorySnapshotStore(context.Background())
	querycachetest.RunSnapshotStoreContract(t, store, querycachetest.Options{})
}

func TestSnapshotStoreContract_NullStore(t *testing.T) {
	store := querycache.NewNullSnapshotStore(context.Background())
	querycachetest.RunSnapshotStoreContract(t, store, querycachetest.Options{NullSemantics: true})
}

func TestSnapshotStoreContract_FileStore(t *testing.T) {
	store := querycache.NewFileSnapshotStore(context.Background(), t.TempDir())
	querycachetest.RunSnapshotStoreContract(t, store, querycachetest.Options{})
}

func TestSnapshotStoreContract_SQLiteStore(t *testing.T) {
	store := querycache.NewSQLSnapshotStore(context.Background(), "sqlite", "file::memory:?cache=shared")
	if err := store.Ready(context.Background()); err != nil {
		t.Fatalf("sqlite store not ready: %v", err)
	}
	querycachetest.RunSnapshotStoreContract(t, store, querycachetest.Options{})
}
