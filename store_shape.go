package querycache

import (
	"context"
	"time"
)

// shapingStore enforces data shaping concerns (compression, size limits)
// transparently on top of any concrete SnapshotStore implementation.
type shapingStore struct {
	inner SnapshotStore
	codec CompressionCodec
	max   int
}

func newShapingStore(inner SnapshotStore, codec CompressionCodec, max int) SnapshotStore {
	if codec == CompressionNone && max <= 0 {
		return inner
	}
	return &shapingStore{inner: inner, codec: codec, max: max}
}

func (s *shapingStore) Driver() Driver { return s.inner.Driver() }

func (s *shapingStore) Ready(ctx context.Context) error {
	return s.inner.Ready(ctx)
}

func (s *shapingStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	body, ok, err := s.inner.Load(ctx, key)
	if err != nil || !ok {
		return body, ok, err
	}
	decoded, err := decodeValue(body)
	if err != nil {
		return nil, false, err
	}
	return decoded, true, nil
}

func (s *shapingStore) Save(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, err := encodeValue(s.codec, s.max, value)
	if err != nil {
		return err
	}
	return s.inner.Save(ctx, key, encoded, ttl)
}

func (s *shapingStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *shapingStore) Flush(ctx context.Context) error {
	return s.inner.Flush(ctx)
}
