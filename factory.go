package querycache

import "context"

// NewSnapshotStore returns a concrete snapshot store for the requested driver.
// Caller is responsible for providing any driver-specific dependencies. Drivers
// whose construction can fail (sql, dynamo) degrade to a store that reports the
// construction error on every call, so callers can probe with Ready.
//
// Example: select driver explicitly
//
//	ctx := context.Background()
//	store := querycache.NewSnapshotStore(ctx, querycache.SnapshotConfig{
//		Driver: querycache.DriverMemory,
//	})
//	fmt.Println(store.Driver()) // memory
func NewSnapshotStore(ctx context.Context, cfg SnapshotConfig) SnapshotStore {
	cfg = cfg.withDefaults()
	var store SnapshotStore
	switch cfg.Driver {
	case DriverNull:
		store = newNullStore()
	case DriverRedis:
		store = newRedisStore(cfg.RedisClient, cfg.DefaultTTL, cfg.Prefix)
	case DriverNATS:
		store = newNATSStore(cfg.NATSKeyValue, cfg.DefaultTTL, cfg.Prefix, cfg.NATSBucketTTL)
	case DriverFile:
		store = newFileStore(cfg.FileDir, cfg.DefaultTTL)
	case DriverSQL:
		s, err := newSQLStore(cfg)
		if err != nil {
			s = &errorStore{driver: DriverSQL, err: err}
		}
		store = s
	case DriverDynamo:
		s, err := newDynamoStore(ctx, cfg)
		if err != nil {
			s = &errorStore{driver: DriverDynamo, err: err}
		}
		store = s
	default:
		store = newMemoryStore(cfg.DefaultTTL)
	}
	// Shaping sits outermost so gzip sees plaintext; ciphertext does
	// not compress.
	if enc, err := newEncryptingStore(store, cfg.EncryptionKey); err != nil {
		store = &errorStore{driver: store.Driver(), err: err}
	} else {
		store = enc
	}
	store = newShapingStore(store, cfg.Compression, cfg.MaxValueSize)
	return store
}

// NewSnapshotStoreWith builds a snapshot store using a driver and a set of
// functional options. Required data (e.g., a Redis client) must be provided
// via options when needed.
//
// Example: redis store (options)
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
//	store := querycache.NewSnapshotStoreWith(ctx, querycache.DriverRedis,
//		querycache.WithRedisClient(redisClient),
//		querycache.WithPrefix("app"),
//	)
func NewSnapshotStoreWith(ctx context.Context, driver Driver, opts ...SnapshotOption) SnapshotStore {
	cfg := SnapshotConfig{Driver: driver}
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	return NewSnapshotStore(ctx, cfg)
}

// NewMemorySnapshotStore is a convenience for an in-process snapshot store.
func NewMemorySnapshotStore(ctx context.Context, opts ...SnapshotOption) SnapshotStore {
	return NewSnapshotStoreWith(ctx, DriverMemory, opts...)
}

// NewFileSnapshotStore is a convenience for a filesystem-backed snapshot store.
func NewFileSnapshotStore(ctx context.Context, dir string, opts ...SnapshotOption) SnapshotStore {
	return NewSnapshotStoreWith(ctx, DriverFile, append([]SnapshotOption{WithFileDir(dir)}, opts...)...)
}

// NewRedisSnapshotStore is a convenience for a redis-backed snapshot store.
// The redis client is required.
func NewRedisSnapshotStore(ctx context.Context, client RedisClient, opts ...SnapshotOption) SnapshotStore {
	return NewSnapshotStoreWith(ctx, DriverRedis, append([]SnapshotOption{WithRedisClient(client)}, opts...)...)
}

// NewNATSSnapshotStore is a convenience for a NATS JetStream KV-backed
// snapshot store. The key-value bucket handle is required.
func NewNATSSnapshotStore(ctx context.Context, kv NATSKeyValue, opts ...SnapshotOption) SnapshotStore {
	return NewSnapshotStoreWith(ctx, DriverNATS, append([]SnapshotOption{WithNATSKeyValue(kv)}, opts...)...)
}

// NewSQLSnapshotStore is a convenience for a database-backed snapshot store.
func NewSQLSnapshotStore(ctx context.Context, driverName, dsn string, opts ...SnapshotOption) SnapshotStore {
	return NewSnapshotStoreWith(ctx, DriverSQL, append([]SnapshotOption{WithSQL(driverName, dsn)}, opts...)...)
}

// NewDynamoSnapshotStore is a convenience for a DynamoDB-backed snapshot store.
func NewDynamoSnapshotStore(ctx context.Context, opts ...SnapshotOption) SnapshotStore {
	return NewSnapshotStoreWith(ctx, DriverDynamo, opts...)
}

// NewNullSnapshotStore is a convenience for a store that drops everything.
func NewNullSnapshotStore(ctx context.Context, opts ...SnapshotOption) SnapshotStore {
	return NewSnapshotStoreWith(ctx, DriverNull, opts...)
}
