package query

import (
	"sync/atomic"

	"github.com/roach88/strata/internal/store"
	"github.com/roach88/strata/internal/types"
)

// Resolver scans the store for query results.
// The query cache resolves misses through a Resolver.
type Resolver interface {
	LatestAt(v *store.View, entity types.EntityPath, q LatestAtQuery, components ...types.ComponentName) LatestAtResults
	Range(v *store.View, entity types.EntityPath, q RangeQuery, components ...types.ComponentName) RangeResults
}

// DefaultResolver scans buckets directly.
type DefaultResolver struct{}

// LatestAt implements Resolver.
func (DefaultResolver) LatestAt(v *store.View, entity types.EntityPath, q LatestAtQuery, components ...types.ComponentName) LatestAtResults {
	return latestAt(v, entity, q, components)
}

// Range implements Resolver.
func (DefaultResolver) Range(v *store.View, entity types.EntityPath, q RangeQuery, components ...types.ComponentName) RangeResults {
	return rangeQuery(v, entity, q, components)
}

// LatestAt resolves each component independently at q.At.
func LatestAt(v *store.View, entity types.EntityPath, q LatestAtQuery, components ...types.ComponentName) LatestAtResults {
	return latestAt(v, entity, q, components)
}

// Range resolves each component over q.Range.
func Range(v *store.View, entity types.EntityPath, q RangeQuery, components ...types.ComponentName) RangeResults {
	return rangeQuery(v, entity, q, components)
}

// CountingResolver wraps a Resolver and counts scans.
//
// Thread-safety: safe for concurrent use.
type CountingResolver struct {
	inner    Resolver
	latestAt atomic.Int64
	ranges   atomic.Int64
}

// NewCountingResolver wraps inner; a nil inner uses DefaultResolver.
func NewCountingResolver(inner Resolver) *CountingResolver {
	if inner == nil {
		inner = DefaultResolver{}
	}
	return &CountingResolver{inner: inner}
}

// LatestAt implements Resolver.
func (r *CountingResolver) LatestAt(v *store.View, entity types.EntityPath, q LatestAtQuery, components ...types.ComponentName) LatestAtResults {
	r.latestAt.Add(1)
	return r.inner.LatestAt(v, entity, q, components...)
}

// Range implements Resolver.
func (r *CountingResolver) Range(v *store.View, entity types.EntityPath, q RangeQuery, components ...types.ComponentName) RangeResults {
	r.ranges.Add(1)
	return r.inner.Range(v, entity, q, components...)
}

// LatestAtCalls returns the number of latest-at scans performed.
func (r *CountingResolver) LatestAtCalls() int64 { return r.latestAt.Load() }

// RangeCalls returns the number of range scans performed.
func (r *CountingResolver) RangeCalls() int64 { return r.ranges.Load() }
