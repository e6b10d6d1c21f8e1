// Package cache memoises decoded query results per (entity, component, query shape).
//
// A Cache subscribes to its store's registry and evicts exactly the
// (entity, component) pairs touched by each batch of store events; every
// other entry survives. Entries keep the raw resolution from the query
// resolver and the decoded outcome per decoder.
//
// Decoding may depend on data fetched from outside the store, so every
// decoded value is a Promise: Pending, Ready or Failed. Ready and Failed
// outcomes are memoised until invalidated. A Pending outcome is not: the
// next call re-decodes the memoised raw data without rescanning the store.
// Nothing in this package blocks waiting for a pending value.
//
// The entry map is split into shards selected by xxhash so unrelated keys
// never contend on one lock, and singleflight guarantees at most one
// resolution per key at a time.
package cache
