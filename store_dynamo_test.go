package querycache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynStub struct {
	items map[string]map[string]types.AttributeValue
}

func newDynStub() *dynStub { return &dynStub{items: map[string]map[string]types.AttributeValue{}} }

func (d *dynStub) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	key := in.Key["k"].(*types.AttributeValueMemberS).Value
	item, ok := d.items[key]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (d *dynStub) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	key := in.Item["k"].(*types.AttributeValueMemberS).Value
	d.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (d *dynStub) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	key := in.Key["k"].(*types.AttributeValueMemberS).Value
	delete(d.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (d *dynStub) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	for _, writes := range in.RequestItems {
		for _, wr := range writes {
			if dr := wr.DeleteRequest; dr != nil {
				key := dr.Key["k"].(*types.AttributeValueMemberS).Value
				delete(d.items, key)
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (d *dynStub) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	var items []map[string]types.AttributeValue
	for k := range d.items {
		items = append(items, map[string]types.AttributeValue{
			"k": &types.AttributeValueMemberS{Value: k},
		})
	}
	return &dynamodb.ScanOutput{Items: items}, nil
}

func (d *dynStub) CreateTable(context.Context, *dynamodb.CreateTableInput, ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	return &dynamodb.CreateTableOutput{}, nil
}

func (d *dynStub) DescribeTable(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return nil, &types.ResourceNotFoundException{}
}

func TestDynamoStoreBasicOperations(t *testing.T) {
	stub := newDynStub()
	store, err := newDynamoStore(context.Background(), SnapshotConfig{
		DynamoClient: stub,
		DynamoTable:  "tbl",
		Prefix:       "p",
		DefaultTTL:   time.Minute,
	})
	if err != nil {
		t.Fatalf("store create failed: %v", err)
	}
	if store.Driver() != DriverDynamo {
		t.Fatalf("unexpected driver: %s", store.Driver())
	}

	ctx := context.Background()
	if err := store.Save(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	body, ok, err := store.Load(ctx, "k")
	if err != nil || !ok || string(body) != "v" {
		t.Fatalf("load failed: ok=%v err=%v val=%s", ok, err, string(body))
	}

	if _, ok, err := store.Load(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, _ := store.Load(ctx, "k"); ok {
		t.Fatalf("expected deleted key gone")
	}

	if err := store.Save(ctx, "a", []byte("1"), time.Minute); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Save(ctx, "b", []byte("2"), time.Minute); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if len(stub.items) != 0 {
		t.Fatalf("expected all items flushed, %d remain", len(stub.items))
	}
}

func TestDynamoStoreExpiredItemDeletedOnLoad(t *testing.T) {
	stub := newDynStub()
	store, err := newDynamoStore(context.Background(), SnapshotConfig{
		DynamoClient: stub,
		DynamoTable:  "tbl",
		Prefix:       "p",
		DefaultTTL:   time.Minute,
	})
	if err != nil {
		t.Fatalf("store create failed: %v", err)
	}

	stub.items["p:stale"] = map[string]types.AttributeValue{
		"k":  &types.AttributeValueMemberS{Value: "p:stale"},
		"v":  &types.AttributeValueMemberB{Value: []byte("old")},
		"ea": &types.AttributeValueMemberN{Value: strconv.FormatInt(time.Now().Add(-time.Minute).UnixMilli(), 10)},
	}

	if _, ok, err := store.Load(context.Background(), "stale"); err != nil || ok {
		t.Fatalf("expected expired item treated as miss, ok=%v err=%v", ok, err)
	}
	if _, ok := stub.items["p:stale"]; ok {
		t.Fatalf("expected expired item removed")
	}
}
