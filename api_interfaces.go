package querycache

import "context"

// QueryAPI exposes read and mutation operations.
type QueryAPI interface {
	Initiate(ctx context.Context, endpoint string, args any, fetcher Fetcher) (Entry, error)
	Mutate(ctx context.Context, endpoint string, args any, fetcher Fetcher) (Result, error)
	State(endpoint string, args any) (Entry, error)
}

// SubscriptionAPI exposes reference counting and change notification.
type SubscriptionAPI interface {
	Subscribe(endpoint string, args any) (*Subscription, error)
	OnChange(fn func(version uint64)) (cancel func())
	Version() uint64
}

// InvalidationAPI exposes tag-based invalidation.
type InvalidationAPI interface {
	InvalidateTags(ctx context.Context, tags ...Tag) int
}

// MaintenanceAPI exposes housekeeping operations.
type MaintenanceAPI interface {
	Len() int
	Reset(ctx context.Context) error
}

// CacheAPI is the composed application-facing interface for Cache.
type CacheAPI interface {
	QueryAPI
	SubscriptionAPI
	InvalidationAPI
	MaintenanceAPI
}

var _ CacheAPI = (*Cache)(nil)
