package querycache

import "time"

// Option mutates Config when constructing a Cache.
type Option func(Config) Config

// WithKeepUnusedFor overrides the grace delay before an unsubscribed
// entry is evicted.
func WithKeepUnusedFor(d time.Duration) Option {
	return func(cfg Config) Config {
		cfg.KeepUnusedFor = d
		return cfg
	}
}

// WithObserver attaches an observer to receive operation events.
func WithObserver(o Observer) Option {
	return func(cfg Config) Config {
		cfg.Observer = o
		return cfg
	}
}

// WithSnapshots enables result persistence through store.
func WithSnapshots(store SnapshotStore) Option {
	return func(cfg Config) Config {
		cfg.Snapshots = store
		return cfg
	}
}

// WithSnapshotTTL overrides how long persisted results stay loadable.
func WithSnapshotTTL(d time.Duration) Option {
	return func(cfg Config) Config {
		cfg.SnapshotTTL = d
		return cfg
	}
}

// SnapshotOption mutates SnapshotConfig when constructing a store.
type SnapshotOption func(SnapshotConfig) SnapshotConfig

// WithDefaultTTL overrides the fallback TTL used when a save provides ttl <= 0.
func WithDefaultTTL(ttl time.Duration) SnapshotOption {
	return func(cfg SnapshotConfig) SnapshotConfig {
		cfg.DefaultTTL = ttl
		return cfg
	}
}

// WithPrefix sets the key prefix for shared backends (e.g., redis).
func WithPrefix(prefix string) SnapshotOption {
	return func(cfg SnapshotConfig) SnapshotConfig {
		cfg.Prefix = prefix
		return cfg
	}
}

// WithRedisClient sets the redis client; required when using DriverRedis.
func WithRedisClient(client RedisClient) SnapshotOption {
	return func(cfg SnapshotConfig) SnapshotConfig {
		cfg.RedisClient = client
		return cfg
	}
}

// WithNATSKeyValue sets the key-value bucket; required when using DriverNATS.
func WithNATSKeyValue(kv NATSKeyValue) SnapshotOption {
	return func(cfg SnapshotConfig) SnapshotConfig {
		cfg.NATSKeyValue = kv
		return cfg
	}
}

// WithNATSBucketTTL marks the bucket as enforcing expiry itself.
func WithNATSBucketTTL() SnapshotOption {
	return func(cfg SnapshotConfig) SnapshotConfig {
		cfg.NATSBucketTTL = true
		return cfg
	}
}

// WithFileDir controls where the file driver stores snapshots.
func WithFileDir(dir string) SnapshotOption {
	return func(cfg SnapshotConfig) SnapshotConfig {
		cfg.FileDir = dir
		return cfg
	}
}

// WithSQL configures the sql driver ("sqlite", "pgx", or "mysql") and its DSN.
func WithSQL(driverName, dsn string) SnapshotOption {
	return func(cfg SnapshotConfig) SnapshotConfig {
		cfg.SQLDriverName = driverName
		cfg.SQLDSN = dsn
		return cfg
	}
}

// WithSQLTable overrides the snapshot table name.
func WithSQLTable(table string) SnapshotOption {
	return func(cfg SnapshotConfig) SnapshotConfig {
		cfg.SQLTable = table
		return cfg
	}
}

// WithDynamoClient sets a pre-built DynamoDB client.
func WithDynamoClient(client DynamoAPI) SnapshotOption {
	return func(cfg SnapshotConfig) SnapshotConfig {
		cfg.DynamoClient = client
		return cfg
	}
}

// WithDynamoTable overrides the DynamoDB table name.
func WithDynamoTable(table string) SnapshotOption {
	return func(cfg SnapshotConfig) SnapshotConfig {
		cfg.DynamoTable = table
		return cfg
	}
}

// WithDynamoRegion sets the AWS region used when building a client.
func WithDynamoRegion(region string) SnapshotOption {
	return func(cfg SnapshotConfig) SnapshotConfig {
		cfg.DynamoRegion = region
		return cfg
	}
}

// WithDynamoEndpoint points the client at a custom endpoint (e.g. dynamodb-local).
func WithDynamoEndpoint(endpoint string) SnapshotOption {
	return func(cfg SnapshotConfig) SnapshotConfig {
		cfg.DynamoEndpoint = endpoint
		return cfg
	}
}

// WithCompression compresses stored payloads with codec.
func WithCompression(codec CompressionCodec) SnapshotOption {
	return func(cfg SnapshotConfig) SnapshotConfig {
		cfg.Compression = codec
		return cfg
	}
}

// WithMaxValueSize rejects payloads larger than max bytes.
func WithMaxValueSize(max int) SnapshotOption {
	return func(cfg SnapshotConfig) SnapshotConfig {
		cfg.MaxValueSize = max
		return cfg
	}
}

// WithEncryptionKey enables AES-GCM at-rest encryption.
func WithEncryptionKey(key []byte) SnapshotOption {
	return func(cfg SnapshotConfig) SnapshotConfig {
		cfg.EncryptionKey = key
		return cfg
	}
}
