package querycache

import (
	"context"
	"time"
)

type nullStore struct{}

func newNullStore() SnapshotStore { return &nullStore{} }

func (s *nullStore) Driver() Driver { return DriverNull }

func (s *nullStore) Ready(context.Context) error { return nil }

func (s *nullStore) Load(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (s *nullStore) Save(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (s *nullStore) Delete(context.Context, string) error { return nil }

func (s *nullStore) Flush(context.Context) error { return nil }
