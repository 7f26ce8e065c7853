package querycache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Status is the lifecycle state of a query cache entry.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusPending       Status = "pending"
	StatusFulfilled     Status = "fulfilled"
	StatusRejected      Status = "rejected"
	StatusStale         Status = "stale"
)

// Result is a successful fetch payload plus the tags the result was
// fulfilled with.
type Result struct {
	Data any
	Tags []Tag
}

// Fetcher performs the actual request for a query or mutation. The
// cache never retries a failed fetcher; retry policy belongs to the
// caller. Fetchers own their timeout policy through ctx.
type Fetcher func(ctx context.Context) (Result, error)

// Entry is a point-in-time copy of one cache entry. Data is shared with
// the cache and must be treated as immutable by callers.
type Entry struct {
	Key         Key
	Status      Status
	Data        any
	Err         error
	Tags        []Tag
	Subscribers int
	FetchedAt   time.Time
}

type entry struct {
	key         Key
	status      Status
	data        any
	err         error
	tags        []Tag
	fetcher     Fetcher
	subscribers int
	evict       *time.Timer
	fetchedAt   time.Time
}

func (e *entry) view() Entry {
	tags := make([]Tag, len(e.tags))
	copy(tags, e.tags)
	return Entry{
		Key:         e.key,
		Status:      e.status,
		Data:        e.data,
		Err:         e.err,
		Tags:        tags,
		Subscribers: e.subscribers,
		FetchedAt:   e.fetchedAt,
	}
}

// Cache is a normalized client-side query cache with request
// deduplication, subscriber reference counting, and tag-based
// invalidation. All state mutations are serialized through one mutex;
// fetches run off that critical path and re-apply their results through
// the same dispatch point, in completion order.
type Cache struct {
	cfg Config

	mu        sync.Mutex
	entries   map[string]*entry
	graph     *tagGraph
	version   uint64
	listeners map[uuid.UUID]func(version uint64)

	group singleflight.Group
}

// New creates a Cache.
//
// Example: cache with a short unused-entry grace period
//
//	c := querycache.New(querycache.WithKeepUnusedFor(10 * time.Second))
//	entry, err := c.Initiate(ctx, "todos", nil, fetchTodos)
func New(opts ...Option) *Cache {
	var cfg Config
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Cache from an explicit Config.
func NewWithConfig(cfg Config) *Cache {
	return &Cache{
		cfg:       cfg.withDefaults(),
		entries:   make(map[string]*entry),
		graph:     newTagGraph(),
		listeners: make(map[uuid.UUID]func(uint64)),
	}
}

// Initiate returns the cached result for (endpoint, args) or fetches it.
// A pending or fulfilled entry is served without invoking fetcher;
// concurrent initiations of the same key share a single underlying
// fetch and all receive the same resolved value. A stale or rejected
// entry triggers a fresh fetch. The returned error is the fetch error
// when the entry resolves rejected.
func (c *Cache) Initiate(ctx context.Context, endpoint string, args any, fetcher Fetcher) (Entry, error) {
	start := time.Now()
	if fetcher == nil {
		return Entry{}, ErrFetcherRequired
	}
	key, err := NewKey(endpoint, args)
	if err != nil {
		return Entry{}, err
	}
	id := key.String()

	c.mu.Lock()
	e, ok := c.entries[id]
	cold := !ok || e.status == StatusUninitialized
	if cold {
		if !ok {
			e = &entry{key: key}
			c.entries[id] = e
		}
		e.status = StatusPending
		e.fetcher = fetcher
	} else {
		e.fetcher = fetcher
		switch e.status {
		case StatusFulfilled:
			out := e.view()
			c.mu.Unlock()
			c.observe(ctx, "initiate", id, true, nil, start, out.Status)
			return out, nil
		case StatusStale, StatusRejected:
			e.status = StatusPending
		}
	}
	c.mu.Unlock()

	value, fetchErr, shared := c.group.Do(id, func() (any, error) {
		return c.resolve(ctx, id, fetcher, cold)
	})
	out, _ := value.(Entry)
	c.observe(ctx, "initiate", id, shared, fetchErr, start, out.Status)
	return out, fetchErr
}

// resolve runs inside singleflight: it re-checks freshness so a
// re-executed flight after a concurrent completion does not fetch
// again, tries snapshot hydration for cold keys, then performs the
// fetch and applies the completion.
func (c *Cache) resolve(ctx context.Context, id string, fetcher Fetcher, tryHydrate bool) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[id]; ok && e.status == StatusFulfilled {
		out := e.view()
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	if tryHydrate {
		if out, ok := c.hydrate(ctx, id, fetcher); ok {
			return out, nil
		}
	}

	res, err := fetcher(ctx)
	return c.complete(ctx, id, res, err)
}

// complete applies a fetch outcome through the dispatch point. Results
// are applied in completion order; a completion for an entry evicted
// mid-flight is discarded but still returned to waiting callers.
func (c *Cache) complete(ctx context.Context, id string, res Result, fetchErr error) (Entry, error) {
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok {
		c.mu.Unlock()
		if fetchErr != nil {
			return Entry{Status: StatusRejected, Err: fetchErr}, fetchErr
		}
		return Entry{Status: StatusFulfilled, Data: res.Data, Tags: res.Tags}, nil
	}

	if fetchErr != nil {
		e.status = StatusRejected
		e.err = fetchErr
		out := e.view()
		version, listeners := c.bumpLocked()
		c.mu.Unlock()
		notifyAll(version, listeners)
		return out, fetchErr
	}

	e.status = StatusFulfilled
	e.data = res.Data
	e.err = nil
	e.tags = append([]Tag(nil), res.Tags...)
	e.fetchedAt = time.Now()
	c.graph.tag(id, res.Tags)
	out := e.view()
	version, listeners := c.bumpLocked()
	c.mu.Unlock()

	c.persist(ctx, out)
	notifyAll(version, listeners)
	return out, nil
}

// Mutate runs fetcher once, without caching or deduplication, and on
// success invalidates the tags the result declares.
func (c *Cache) Mutate(ctx context.Context, endpoint string, args any, fetcher Fetcher) (Result, error) {
	start := time.Now()
	if fetcher == nil {
		return Result{}, ErrFetcherRequired
	}
	key, err := NewKey(endpoint, args)
	if err != nil {
		return Result{}, err
	}
	res, err := fetcher(ctx)
	if err != nil {
		c.observe(ctx, "mutate", key.String(), false, err, start, StatusRejected)
		return Result{}, err
	}
	if len(res.Tags) > 0 {
		c.InvalidateTags(ctx, res.Tags...)
	}
	c.observe(ctx, "mutate", key.String(), true, nil, start, StatusFulfilled)
	return res, nil
}

// InvalidateTags marks every entry whose tag set intersects tags as
// stale. Stale entries with active subscribers re-fetch in the
// background; entries with zero subscribers are evicted immediately.
// Unknown tags are a no-op. Returns the number of affected entries.
func (c *Cache) InvalidateTags(ctx context.Context, tags ...Tag) int {
	start := time.Now()
	c.mu.Lock()
	keys := c.graph.invalidates(tags)
	var refetch, dropped []string
	for _, id := range keys {
		e := c.entries[id]
		if e == nil {
			continue
		}
		if e.subscribers > 0 {
			e.status = StatusStale
			refetch = append(refetch, id)
		} else {
			c.evictLocked(id, e)
			dropped = append(dropped, id)
		}
	}
	var version uint64
	var listeners []func(uint64)
	if len(keys) > 0 {
		version, listeners = c.bumpLocked()
	}
	c.mu.Unlock()

	for _, id := range dropped {
		c.dropSnapshot(ctx, id)
	}
	background := context.WithoutCancel(ctx)
	for _, id := range refetch {
		go c.refetch(background, id)
	}
	notifyAll(version, listeners)
	c.observe(ctx, "invalidate", "", len(keys) > 0, nil, start, StatusStale)
	return len(keys)
}

// refetch re-runs a stale entry's stored fetcher through singleflight.
func (c *Cache) refetch(ctx context.Context, id string) {
	start := time.Now()
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok || e.status != StatusStale || e.fetcher == nil {
		c.mu.Unlock()
		return
	}
	fetcher := e.fetcher
	e.status = StatusPending
	c.mu.Unlock()

	_, err, _ := c.group.Do(id, func() (any, error) {
		res, fetchErr := fetcher(ctx)
		return c.complete(ctx, id, res, fetchErr)
	})
	c.observe(ctx, "refetch", id, err == nil, err, start, "")
}

// Subscribe registers interest in (endpoint, args), creating an
// uninitialized entry when none exists, and cancels any pending
// eviction for the key.
func (c *Cache) Subscribe(endpoint string, args any) (*Subscription, error) {
	key, err := NewKey(endpoint, args)
	if err != nil {
		return nil, err
	}
	id := key.String()
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: key, status: StatusUninitialized}
		c.entries[id] = e
	}
	e.subscribers++
	if e.evict != nil {
		e.evict.Stop()
		e.evict = nil
	}
	status := e.status
	c.mu.Unlock()
	c.observe(context.Background(), "subscribe", id, ok, nil, time.Now(), status)
	return &Subscription{ID: uuid.New(), key: key, cache: c}, nil
}

func (c *Cache) unsubscribe(key Key) {
	id := key.String()
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	if e.subscribers > 0 {
		e.subscribers--
	}
	if e.subscribers == 0 && e.evict == nil {
		e.evict = time.AfterFunc(c.cfg.KeepUnusedFor, func() {
			c.evictIfUnused(id)
		})
	}
	status := e.status
	c.mu.Unlock()
	c.observe(context.Background(), "unsubscribe", id, true, nil, time.Now(), status)
}

func (c *Cache) evictIfUnused(id string) {
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok || e.subscribers > 0 {
		c.mu.Unlock()
		return
	}
	c.evictLocked(id, e)
	version, listeners := c.bumpLocked()
	c.mu.Unlock()

	ctx := context.Background()
	c.dropSnapshot(ctx, id)
	notifyAll(version, listeners)
	c.observe(ctx, "evict", id, true, nil, time.Now(), "")
}

// evictLocked removes the entry from every map, including the
// invalidation graph, and stops any pending eviction timer.
func (c *Cache) evictLocked(id string, e *entry) {
	if e.evict != nil {
		e.evict.Stop()
		e.evict = nil
	}
	delete(c.entries, id)
	c.graph.untag(id)
}

// State returns a copy of the entry for (endpoint, args);
// StatusUninitialized when the key has never been initiated.
func (c *Cache) State(endpoint string, args any) (Entry, error) {
	key, err := NewKey(endpoint, args)
	if err != nil {
		return Entry{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return Entry{Key: key, Status: StatusUninitialized}, nil
	}
	return e.view(), nil
}

// Version returns the monotonically increasing state version, bumped
// after every applied change.
func (c *Cache) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// OnChange registers a listener called with the new version after each
// applied change. Returns a cancel function.
func (c *Cache) OnChange(fn func(version uint64)) (cancel func()) {
	id := uuid.New()
	c.mu.Lock()
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reset drops every entry, all tag associations, and the persisted
// snapshots when a store is configured.
func (c *Cache) Reset(ctx context.Context) error {
	c.mu.Lock()
	for id, e := range c.entries {
		c.evictLocked(id, e)
	}
	c.graph = newTagGraph()
	version, listeners := c.bumpLocked()
	c.mu.Unlock()

	notifyAll(version, listeners)
	if c.cfg.Snapshots == nil {
		return nil
	}
	return c.cfg.Snapshots.Flush(ctx)
}

// bumpLocked advances the state version and snapshots the listener set
// so notification happens outside the lock.
func (c *Cache) bumpLocked() (uint64, []func(uint64)) {
	c.version++
	listeners := make([]func(uint64), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	return c.version, listeners
}

func notifyAll(version uint64, listeners []func(uint64)) {
	for _, fn := range listeners {
		fn(version)
	}
}

func (c *Cache) observe(ctx context.Context, op, key string, ok bool, err error, start time.Time, status Status) {
	if c.cfg.Observer == nil {
		return
	}
	c.cfg.Observer.OnQueryOp(ctx, op, key, ok, err, time.Since(start), status)
}

// Subscription is a live claim on a query key. Cancel releases it;
// when the key's subscriber count reaches zero an eviction timer
// starts, canceled by a new Subscribe before it fires.
type Subscription struct {
	ID    uuid.UUID
	key   Key
	cache *Cache
	once  sync.Once
}

// Key returns the subscribed query key.
func (s *Subscription) Key() Key { return s.key }

// Cancel releases the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.cache.unsubscribe(s.key)
	})
}
