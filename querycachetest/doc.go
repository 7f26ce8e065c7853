// Package querycachetest provides reusable contract tests for
// querycache.SnapshotStore implementations.
//
// External store implementations can use this package from their own tests
// without importing root test helpers.
//
// Example pattern:
//
//	func TestRedisSnapshotContract(t *testing.T) {
//		client := newTestRedisClient(t)
//		store := querycache.NewRedisSnapshotStore(context.Background(), client,
//			querycache.WithPrefix("test"))
//
//		// Namespace keys per test and tune TTL waits for backend semantics as needed.
//		querycachetest.RunSnapshotStoreContract(t, store, querycachetest.Options{
//			CaseName: t.Name(),
//			TTL:      time.Second,
//			TTLWait:  1500 * time.Millisecond,
//		})
//	}
package querycachetest
