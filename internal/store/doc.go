// Package store implements the in-memory time-series column store.
//
// A Store owns one IndexTable per (entity, timeline) pair. Each table is an
// ordered list of time buckets keyed by their lower bound; the first bucket
// of every table is keyed at types.MinTime so every time has a home.
//
// Writes are single-writer: Store methods perform no locking of their own.
// Embedders that need concurrent readers wrap the store in Shared, which
// holds a sync.RWMutex and hands readers a sorted View.
//
// Reads only go through a *View, obtained from Store.Sorted. Sorted runs
// the deferred resort pass when the store is dirty, so every bucket reached
// through a View is ordered by (time, RowID).
//
// Every successful mutating call emits one batch of Events to the
// subscribers in the store's Registry, in registration order. Subscribers
// registered after a call never see that call's events.
//
// Bucket topology depends on insertion order, and buckets are never merged
// once split. Latest-at and range results do not depend on topology.
package store
