package querycache

import (
	"os"
	"path/filepath"
	"time"
)

const (
	defaultSnapshotPrefix = "qc"
	defaultSnapshotTTL    = 24 * time.Hour
	defaultKeepUnusedFor  = 60 * time.Second
)

func defaultFileDir() string {
	return filepath.Join(os.TempDir(), "querycache-snapshots")
}

// Config controls how a Cache is constructed.
type Config struct {
	// KeepUnusedFor is the grace delay between an entry's subscriber
	// count reaching zero and its eviction.
	KeepUnusedFor time.Duration

	// Snapshots optionally persists fulfilled results for rehydration
	// on cold start. Persistence is best-effort: store failures are
	// reported to the observer, never to the query path.
	Snapshots SnapshotStore

	// SnapshotTTL bounds how long a persisted result stays loadable.
	SnapshotTTL time.Duration

	// Observer receives an event after each cache operation.
	Observer Observer
}

func (c Config) withDefaults() Config {
	if c.KeepUnusedFor <= 0 {
		c.KeepUnusedFor = defaultKeepUnusedFor
	}
	if c.SnapshotTTL <= 0 {
		c.SnapshotTTL = defaultSnapshotTTL
	}
	return c
}

// SnapshotConfig controls how a SnapshotStore is constructed.
type SnapshotConfig struct {
	Driver Driver

	// DefaultTTL is used when a save provides ttl <= 0.
	DefaultTTL time.Duration

	// Prefix namespaces keys on shared backends (e.g. redis).
	Prefix string

	// RedisClient is required when DriverRedis is used.
	RedisClient RedisClient

	// NATSKeyValue is required when DriverNATS is used.
	NATSKeyValue NATSKeyValue

	// NATSBucketTTL indicates the bucket enforces expiry itself, so
	// values are stored without an expiry envelope.
	NATSBucketTTL bool

	// FileDir controls where the file driver stores snapshots.
	FileDir string

	// SQLDriverName and SQLDSN configure the sql driver
	// ("sqlite", "pgx", or "mysql").
	SQLDriverName string
	SQLDSN        string
	SQLTable      string

	// DynamoClient, DynamoTable, DynamoRegion, and DynamoEndpoint
	// configure the dynamodb driver. A client is built from region and
	// endpoint when none is supplied.
	DynamoClient   DynamoAPI
	DynamoTable    string
	DynamoRegion   string
	DynamoEndpoint string

	// Compression and MaxValueSize shape stored payloads.
	Compression  CompressionCodec
	MaxValueSize int

	// EncryptionKey enables AES-GCM at-rest encryption when set.
	// Must be 16, 24, or 32 bytes.
	EncryptionKey []byte
}

func (c SnapshotConfig) withDefaults() SnapshotConfig {
	if c.Driver == "" {
		c.Driver = DriverMemory
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = defaultSnapshotTTL
	}
	if c.Prefix == "" {
		c.Prefix = defaultSnapshotPrefix
	}
	if c.FileDir == "" {
		c.FileDir = defaultFileDir()
	}
	if c.SQLTable == "" {
		c.SQLTable = "query_snapshots"
	}
	if c.DynamoTable == "" {
		c.DynamoTable = "query_snapshots"
	}
	if c.DynamoRegion == "" {
		c.DynamoRegion = "us-east-1"
	}
	return c
}
