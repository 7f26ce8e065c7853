package querycache

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

func TestFactoryHelpers(t *testing.T) {
	ctx := context.Background()
	if NewSnapshotStoreWith(ctx, DriverMemory).Driver() != DriverMemory {
		t.Fatalf("expected memory driver")
	}
	if NewMemorySnapshotStore(ctx).Driver() != DriverMemory {
		t.Fatalf("expected memory helper driver")
	}
	if NewNullSnapshotStore(ctx).Driver() != DriverNull {
		t.Fatalf("expected null helper driver")
	}
	if NewFileSnapshotStore(ctx, t.TempDir()).Driver() != DriverFile {
		t.Fatalf("expected file helper driver")
	}
	if NewRedisSnapshotStore(ctx, newStubRedisClient()).Driver() != DriverRedis {
		t.Fatalf("expected redis helper driver")
	}
	if NewNATSSnapshotStore(ctx, newStubNATSKeyValue("b")).Driver() != DriverNATS {
		t.Fatalf("expected nats helper driver")
	}
}

func TestFactoryDefaultsToMemory(t *testing.T) {
	store := NewSnapshotStore(context.Background(), SnapshotConfig{})
	if store.Driver() != DriverMemory {
		t.Fatalf("expected memory fallback, got %s", store.Driver())
	}
}

type failingDynamo struct{}

func (f failingDynamo) GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return nil, errors.New("boom")
}
func (f failingDynamo) PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return nil, errors.New("boom")
}
func (f failingDynamo) DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return nil, errors.New("boom")
}
func (f failingDynamo) BatchWriteItem(context.Context, *dynamodb.BatchWriteItemInput, ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	return nil, errors.New("boom")
}
func (f failingDynamo) Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return nil, errors.New("boom")
}
func (f failingDynamo) CreateTable(context.Context, *dynamodb.CreateTableInput, ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	return nil, errors.New("boom")
}
func (f failingDynamo) DescribeTable(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return nil, errors.New("boom")
}

func TestNewSnapshotStoreDynamoErrorReturnsErrorStore(t *testing.T) {
	store := NewSnapshotStore(context.Background(), SnapshotConfig{
		Driver:       DriverDynamo,
		DynamoClient: failingDynamo{},
		DynamoTable:  "tbl",
	})
	if store.Driver() != DriverDynamo {
		t.Fatalf("expected dynamo driver")
	}
	if _, _, err := store.Load(context.Background(), "k"); err == nil {
		t.Fatalf("expected propagated error")
	}
	if err := store.Ready(context.Background()); err == nil {
		t.Fatalf("expected ready to surface construction error")
	}
}

func TestNewSnapshotStoreSQLMissingConfigReturnsErrorStore(t *testing.T) {
	store := NewSnapshotStore(context.Background(), SnapshotConfig{
		Driver: DriverSQL,
	})
	if store.Driver() != DriverSQL {
		t.Fatalf("expected sql driver")
	}
	if _, _, err := store.Load(context.Background(), "k"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewSnapshotStoreBadEncryptionKeyReturnsErrorStore(t *testing.T) {
	store := NewSnapshotStore(context.Background(), SnapshotConfig{
		Driver:        DriverMemory,
		EncryptionKey: []byte("short"),
	})
	if store.Driver() != DriverMemory {
		t.Fatalf("expected memory driver identity")
	}
	if err := store.Ready(context.Background()); !errors.Is(err, ErrEncryptionKey) {
		t.Fatalf("expected ErrEncryptionKey, got %v", err)
	}
}

func TestErrorStoreSurfacesConstructionError(t *testing.T) {
	boom := errors.New("construct failed")
	store := &errorStore{driver: DriverRedis, err: boom}
	ctx := context.Background()
	if store.Driver() != DriverRedis {
		t.Fatalf("expected preserved driver identity")
	}
	if err := store.Ready(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected ready error")
	}
	if _, _, err := store.Load(ctx, "k"); !errors.Is(err, boom) {
		t.Fatalf("expected load error")
	}
	if err := store.Save(ctx, "k", nil, 0); !errors.Is(err, boom) {
		t.Fatalf("expected save error")
	}
	if err := store.Delete(ctx, "k"); !errors.Is(err, boom) {
		t.Fatalf("expected delete error")
	}
	if err := store.Flush(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected flush error")
	}
}
