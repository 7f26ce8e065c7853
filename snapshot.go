package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// snapshotEnvelope is the persisted form of a fulfilled entry. Only
// fulfilled results are persisted; errors and in-flight state are not.
type snapshotEnvelope struct {
	Data      json.RawMessage `json:"d"`
	Tags      []Tag           `json:"t,omitempty"`
	FetchedAt int64           `json:"f"`
}

// persist saves a fulfilled entry to the snapshot store. Best-effort:
// failures are reported to the observer and never to the query path.
func (c *Cache) persist(ctx context.Context, e Entry) {
	if c.cfg.Snapshots == nil || e.Status != StatusFulfilled {
		return
	}
	start := time.Now()
	body, err := encodeSnapshot(e)
	if err == nil {
		err = c.cfg.Snapshots.Save(ctx, e.Key.String(), body, c.cfg.SnapshotTTL)
	}
	c.observe(ctx, "snapshot_save", e.Key.String(), err == nil, err, start, e.Status)
}

// dropSnapshot removes the persisted result for an evicted entry.
func (c *Cache) dropSnapshot(ctx context.Context, id string) {
	if c.cfg.Snapshots == nil {
		return
	}
	start := time.Now()
	err := c.cfg.Snapshots.Delete(ctx, id)
	c.observe(ctx, "snapshot_delete", id, err == nil, err, start, "")
}

// hydrate fulfills a cold key from the snapshot store without invoking
// the fetcher. The store call runs outside the dispatch lock so a slow
// backend cannot stall other operations; the entry is re-validated
// before the snapshot is applied, and a completion or eviction that
// raced the load wins. The fetcher is still recorded so later
// invalidation can re-fetch.
func (c *Cache) hydrate(ctx context.Context, id string, fetcher Fetcher) (Entry, bool) {
	if c.cfg.Snapshots == nil {
		return Entry{}, false
	}
	start := time.Now()
	body, ok, err := c.cfg.Snapshots.Load(ctx, id)
	if err != nil || !ok {
		if err != nil {
			c.observe(ctx, "hydrate", id, false, err, start, "")
		}
		return Entry{}, false
	}
	data, tags, fetchedAt, err := decodeSnapshot(body)
	if err != nil {
		c.observe(ctx, "hydrate", id, false, err, start, "")
		return Entry{}, false
	}

	c.mu.Lock()
	e, exists := c.entries[id]
	if !exists || e.status != StatusPending {
		c.mu.Unlock()
		return Entry{}, false
	}
	e.status = StatusFulfilled
	e.data = data
	e.err = nil
	e.tags = tags
	e.fetcher = fetcher
	e.fetchedAt = fetchedAt
	c.graph.tag(id, tags)
	out := e.view()
	version, listeners := c.bumpLocked()
	c.mu.Unlock()
	notifyAll(version, listeners)
	c.observe(ctx, "hydrate", id, true, nil, start, out.Status)
	return out, true
}

func encodeSnapshot(e Entry) ([]byte, error) {
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot data: %w", err)
	}
	return json.Marshal(snapshotEnvelope{
		Data:      raw,
		Tags:      e.Tags,
		FetchedAt: e.FetchedAt.UnixMilli(),
	})
}

// decodeSnapshot returns the payload as generic JSON (maps and slices),
// not the fetcher's concrete type; use DataAs to recover a typed value.
func decodeSnapshot(body []byte) (any, []Tag, time.Time, error) {
	var envelope snapshotEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, nil, time.Time{}, fmt.Errorf("decode snapshot envelope: %w", err)
	}
	var data any
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return nil, nil, time.Time{}, fmt.Errorf("decode snapshot data: %w", err)
		}
	}
	return data, envelope.Tags, time.UnixMilli(envelope.FetchedAt), nil
}

// DataAs extracts an entry's payload as T. A direct type assertion is
// tried first; hydrated entries carry generic JSON and go through a
// round-trip instead.
func DataAs[T any](e Entry) (T, error) {
	if v, ok := e.Data.(T); ok {
		return v, nil
	}
	var out T
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return out, fmt.Errorf("convert entry data: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("convert entry data: %w", err)
	}
	return out, nil
}
