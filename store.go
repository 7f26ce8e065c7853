package querycache

import (
	"context"
	"time"
)

// SnapshotStore persists serialized query results keyed by entry key.
// Implementations are expected to expire values at or after the saved TTL.
type SnapshotStore interface {
	Driver() Driver
	Ready(ctx context.Context) error
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Flush(ctx context.Context) error
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
