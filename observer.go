package querycache

import (
	"context"
	"time"
)

// Observer receives events for cache operations.
// It is called after each operation completes; ok reports whether the
// operation was served from cache (hit, dedup join, hydration).
type Observer interface {
	OnQueryOp(ctx context.Context, op string, key string, ok bool, err error, dur time.Duration, status Status)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, op string, key string, ok bool, err error, dur time.Duration, status Status)

// OnQueryOp implements Observer.
func (f ObserverFunc) OnQueryOp(ctx context.Context, op string, key string, ok bool, err error, dur time.Duration, status Status) {
	if f == nil {
		return
	}
	f(ctx, op, key, ok, err, dur, status)
}
