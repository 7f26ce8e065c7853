package querycache

import (
	"errors"
	"sort"
	"sync"

	"dario.cat/mergo"
)

// ErrMissingID is returned when a record's id selector yields an empty id.
var ErrMissingID = errors.New("querycache: record has empty id")

// CollectionMeta carries request metadata co-located with a collection
// but logically separate from the entity set.
type CollectionMeta struct {
	Status   string
	Err      string
	Counters map[string]int64
}

// CollectionOption mutates a Collection during construction.
type CollectionOption[T any] func(*Collection[T])

// SortWith configures a comparator; the id sequence is re-sorted after
// every mutation. cmp follows the usual negative/zero/positive contract.
func SortWith[T any](cmp func(a, b T) int) CollectionOption[T] {
	return func(c *Collection[T]) {
		c.sortWith = cmp
	}
}

// MergeWith overrides how an incoming record is merged onto an existing
// one during upsert. The default performs a field-level merge: fields
// set on the incoming record win, zero-valued fields keep the existing
// value. Nested struct fields merge the same way, field by field;
// provide a custom merge to replace nested structs wholesale.
func MergeWith[T any](merge func(existing, incoming T) (T, error)) CollectionOption[T] {
	return func(c *Collection[T]) {
		c.merge = merge
	}
}

// Collection is a normalized set of records keyed by id plus an ordered
// id sequence. The map and the sequence are kept mutually consistent:
// every id in the sequence has a record and vice versa, no duplicates.
// All reads return copies; internal state is never aliased out.
type Collection[T any] struct {
	mu       sync.RWMutex
	selectID func(T) string
	sortWith func(a, b T) int
	merge    func(existing, incoming T) (T, error)
	ids      []string
	byID     map[string]T
	meta     CollectionMeta
}

// NewCollection creates an empty collection. selectID extracts the
// unique id from a record and must not return "" for valid records.
func NewCollection[T any](selectID func(T) string, opts ...CollectionOption[T]) *Collection[T] {
	c := &Collection[T]{
		selectID: selectID,
		merge:    shallowMerge[T],
		byID:     make(map[string]T),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// shallowMerge keeps incoming's set fields and fills its zero-valued
// fields from existing; mergo recurses into nested struct fields the
// same way. Non-struct records fall back to replacement.
func shallowMerge[T any](existing, incoming T) (T, error) {
	merged := incoming
	if err := mergo.Merge(&merged, existing); err != nil {
		if errors.Is(err, mergo.ErrNotSupported) {
			return incoming, nil
		}
		return incoming, err
	}
	return merged, nil
}

// UpsertOne inserts record or merges it onto the existing record with
// the same id. Re-upserting an existing id keeps its position unless a
// comparator is configured.
func (c *Collection[T]) UpsertOne(record T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.upsertLocked(record); err != nil {
		return err
	}
	c.resortLocked()
	return nil
}

// UpsertMany applies UpsertOne to each record in order. On error the
// records preceding the failing one remain applied.
func (c *Collection[T]) UpsertMany(records ...T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, record := range records {
		if err := c.upsertLocked(record); err != nil {
			return err
		}
	}
	c.resortLocked()
	return nil
}

func (c *Collection[T]) upsertLocked(record T) error {
	id := c.selectID(record)
	if id == "" {
		return ErrMissingID
	}
	if existing, ok := c.byID[id]; ok {
		merged, err := c.merge(existing, record)
		if err != nil {
			return err
		}
		c.byID[id] = merged
		return nil
	}
	c.byID[id] = record
	c.ids = append(c.ids, id)
	return nil
}

// RemoveOne deletes id from the collection. No-op when absent.
func (c *Collection[T]) RemoveOne(id string) {
	c.RemoveMany(id)
}

// RemoveMany deletes each id from both the map and the sequence.
func (c *Collection[T]) RemoveMany(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := false
	for _, id := range ids {
		if _, ok := c.byID[id]; !ok {
			continue
		}
		delete(c.byID, id)
		removed = true
	}
	if !removed {
		return
	}
	kept := c.ids[:0]
	for _, id := range c.ids {
		if _, ok := c.byID[id]; ok {
			kept = append(kept, id)
		}
	}
	c.ids = kept
}

// SetAll atomically replaces the entire collection. Readers never
// observe a partially replaced state. Duplicate ids keep the position
// of the first occurrence; the last record wins.
func (c *Collection[T]) SetAll(records []T) error {
	byID := make(map[string]T, len(records))
	ids := make([]string, 0, len(records))
	for _, record := range records {
		id := c.selectID(record)
		if id == "" {
			return ErrMissingID
		}
		if _, ok := byID[id]; !ok {
			ids = append(ids, id)
		}
		byID[id] = record
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = byID
	c.ids = ids
	c.resortLocked()
	return nil
}

// Get returns the record for id.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	record, ok := c.byID[id]
	return record, ok
}

// All returns the records in sequence order.
func (c *Collection[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.byID[id])
	}
	return out
}

// IDs returns a copy of the ordered id sequence.
func (c *Collection[T]) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Len reports the number of records.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}

// SetMeta replaces the collection metadata.
func (c *Collection[T]) SetMeta(meta CollectionMeta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meta = cloneMeta(meta)
}

// Meta returns a copy of the collection metadata.
func (c *Collection[T]) Meta() CollectionMeta {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneMeta(c.meta)
}

func (c *Collection[T]) resortLocked() {
	if c.sortWith == nil {
		return
	}
	sort.SliceStable(c.ids, func(i, j int) bool {
		return c.sortWith(c.byID[c.ids[i]], c.byID[c.ids[j]]) < 0
	})
}

func cloneMeta(meta CollectionMeta) CollectionMeta {
	out := meta
	if meta.Counters != nil {
		out.Counters = make(map[string]int64, len(meta.Counters))
		for k, v := range meta.Counters {
			out.Counters[k] = v
		}
	}
	return out
}
