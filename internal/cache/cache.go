package cache

import (
	"encoding/binary"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/strata/internal/query"
	"github.com/roach88/strata/internal/store"
	"github.com/roach88/strata/internal/types"
)

// DefaultShards is the number of shards used when no option overrides it.
const DefaultShards = 16

// Source is the store a cache observes: a *store.Store or a *store.Shared.
type Source interface {
	ID() string
	Registry() *store.Registry
}

// pairKey identifies the unit of invalidation.
type pairKey struct {
	entity    types.EntityPathHash
	component types.ComponentName
}

// entry holds one resolution and its decoded outcomes.
type entry struct {
	// raw is a query.LatestAtResult (when found) or []query.RangeItem.
	raw   any
	found bool

	mu      sync.Mutex
	decoded map[string]any
}

type shard struct {
	mu      sync.RWMutex
	entries map[pairKey]map[string]*entry
	// epochs counts evictions per pair so a resolution racing an
	// eviction is never stored.
	epochs map[pairKey]uint64
}

// Cache memoises query results for one store.
//
// Thread-safety: safe for concurrent use. OnEvents is called by the store
// registry under the store's write discipline.
type Cache struct {
	storeID  string
	registry *store.Registry
	handle   store.SubscriberHandle
	closed   atomic.Bool

	resolver query.Resolver
	shards   []*shard
	group    singleflight.Group

	hits        atomic.Int64
	misses      atomic.Int64
	resolutions atomic.Int64
	evictions   atomic.Int64

	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Cache.
type Option func(*Cache)

// WithResolver replaces the resolver used on cache misses.
func WithResolver(r query.Resolver) Option {
	return func(c *Cache) {
		if r != nil {
			c.resolver = r
		}
	}
}

// WithShards sets the number of shards. Non-positive values are ignored.
func WithShards(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.shards = make([]*shard, n)
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus collectors created by NewMetrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates a cache for src and registers it as a subscriber.
func New(src Source, opts ...Option) *Cache {
	c := &Cache{
		storeID:  src.ID(),
		registry: src.Registry(),
		resolver: query.DefaultResolver{},
		shards:   make([]*shard, DefaultShards),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	for i := range c.shards {
		c.shards[i] = &shard{
			entries: make(map[pairKey]map[string]*entry),
			epochs:  make(map[pairKey]uint64),
		}
	}
	c.handle = c.registry.Register(c)
	return c
}

// Name implements store.Subscriber.
func (c *Cache) Name() string {
	return "query-cache/" + c.storeID
}

// Handle returns the cache's registration handle.
func (c *Cache) Handle() store.SubscriberHandle {
	return c.handle
}

// Close unregisters the cache and drops every entry. Safe to call twice.
func (c *Cache) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.registry.Unregister(c.handle)
	c.Clear()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	for _, sh := range c.shards {
		sh.mu.Lock()
		for k := range sh.entries {
			sh.epochs[k]++
		}
		sh.entries = make(map[pairKey]map[string]*entry)
		sh.mu.Unlock()
	}
}

// OnEvents implements store.Subscriber. It evicts exactly the
// (entity, component) pairs touched by the events of this cache's store.
func (c *Cache) OnEvents(events []store.Event) {
	touched := make(map[pairKey]struct{})
	for _, ev := range events {
		if ev.StoreID != c.storeID {
			continue
		}
		for _, comp := range ev.Components {
			touched[pairKey{entity: ev.EntityPath.Hash(), component: comp}] = struct{}{}
		}
	}

	evicted := 0
	for k := range touched {
		sh := c.shardFor(k)
		sh.mu.Lock()
		evicted += len(sh.entries[k])
		delete(sh.entries, k)
		sh.epochs[k]++
		sh.mu.Unlock()
	}
	if evicted > 0 {
		c.evictions.Add(int64(evicted))
		c.metrics.evicted(evicted)
		c.logger.Debug("cache entries evicted", "store", c.storeID, "pairs", len(touched), "entries", evicted)
	}
}

func (c *Cache) shardFor(k pairKey) *shard {
	buf := make([]byte, 8, 8+len(k.component))
	binary.BigEndian.PutUint64(buf, uint64(k.entity))
	buf = append(buf, k.component...)
	return c.shards[xxhash.Sum64(buf)%uint64(len(c.shards))]
}

// lookup returns the entry for (pair, shape) and the pair's epoch.
func (c *Cache) lookup(k pairKey, shape string) (*entry, uint64) {
	sh := c.shardFor(k)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.entries[k][shape], sh.epochs[k]
}

// getOrResolve returns the entry for (pair, shape), resolving it at most
// once concurrently.
func (c *Cache) getOrResolve(k pairKey, shape string, resolve func() *entry) *entry {
	if e, _ := c.lookup(k, shape); e != nil {
		c.hits.Add(1)
		c.metrics.hit()
		return e
	}
	c.misses.Add(1)
	c.metrics.miss()

	flightKey := k.entity.String() + "|" + string(k.component) + "|" + shape
	v, _, _ := c.group.Do(flightKey, func() (any, error) {
		e, epoch := c.lookup(k, shape)
		if e != nil {
			return e, nil
		}

		e = resolve()
		c.resolutions.Add(1)
		c.metrics.resolved()

		sh := c.shardFor(k)
		sh.mu.Lock()
		defer sh.mu.Unlock()
		if sh.epochs[k] != epoch {
			// Invalidated while resolving: hand the result to this caller only.
			return e, nil
		}
		if sh.entries[k] == nil {
			sh.entries[k] = make(map[string]*entry)
		}
		sh.entries[k][shape] = e
		return e, nil
	})
	return v.(*entry)
}

// decoded returns the memoised decode result for decoder name, computing
// it with decode on first use. Pending results are never memoised.
func decoded[R any](e *entry, name string, decode func() Promise[R]) Promise[R] {
	e.mu.Lock()
	if p, ok := e.decoded[name]; ok {
		e.mu.Unlock()
		return p.(Promise[R])
	}
	e.mu.Unlock()

	p := decode()
	if p.IsPending() {
		return p
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prev, ok := e.decoded[name]; ok {
		return prev.(Promise[R])
	}
	if e.decoded == nil {
		e.decoded = make(map[string]any)
	}
	e.decoded[name] = p
	return p
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	n := 0
	for _, sh := range c.shards {
		sh.mu.RLock()
		for _, shapes := range sh.entries {
			n += len(shapes)
		}
		sh.mu.RUnlock()
	}
	return n
}

// Contains reports whether an entry exists for the pair, any shape.
func (c *Cache) Contains(entity types.EntityPath, component types.ComponentName) bool {
	k := pairKey{entity: entity.Hash(), component: component}
	sh := c.shardFor(k)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return len(sh.entries[k]) > 0
}
