package querycache

import "errors"

var (
	// ErrEndpointRequired is returned when a query is issued without an endpoint name.
	ErrEndpointRequired = errors.New("querycache: endpoint name is required")

	// ErrFetcherRequired is returned when Initiate or Mutate is called without a fetcher.
	ErrFetcherRequired = errors.New("querycache: fetcher is required")
)
