package querycache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient captures the subset of redis.Client used by the store.
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

type redisStore struct {
	client     RedisClient
	defaultTTL time.Duration
	prefix     string
}

func newRedisStore(client RedisClient, defaultTTL time.Duration, prefix string) SnapshotStore {
	if defaultTTL <= 0 {
		defaultTTL = defaultSnapshotTTL
	}
	if prefix == "" {
		prefix = defaultSnapshotPrefix
	}
	return &redisStore{
		client:     client,
		defaultTTL: defaultTTL,
		prefix:     prefix,
	}
}

func (s *redisStore) Driver() Driver { return DriverRedis }

func (s *redisStore) Ready(ctx context.Context) error {
	if s.client == nil {
		return errors.New("redis snapshot client unavailable")
	}
	return s.client.Ping(ctx).Err()
}

func (s *redisStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if s.client == nil {
		return nil, false, errors.New("redis snapshot client unavailable")
	}
	value, err := s.client.Get(ctx, s.snapshotKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (s *redisStore) Save(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.client == nil {
		return errors.New("redis snapshot client unavailable")
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	return s.client.Set(ctx, s.snapshotKey(key), value, ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return errors.New("redis snapshot client unavailable")
	}
	return s.client.Del(ctx, s.snapshotKey(key)).Err()
}

func (s *redisStore) Flush(ctx context.Context) error {
	if s.client == nil {
		return errors.New("redis snapshot client unavailable")
	}
	pattern := s.snapshotKey("*")
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (s *redisStore) snapshotKey(key string) string {
	return s.prefix + ":" + key
}
