// Package engine implements the strata ingestion loop.
//
// Producers on any goroutine hand batches of rows to Enqueue. A single
// goroutine running Run drains the FIFO queue and applies each batch to
// the store under the exclusive lock of store.Shared, so subscriber
// notifications for one batch are never interleaved with another.
//
// Batches are stamped with a monotonic logical Clock when they are
// enqueued. Wall-clock time plays no part in ordering.
//
// A failed batch is logged with its sequence number and processing
// continues with the next one. Retrying would reorder batches relative
// to the recording.
package engine
