package engine

import (
	"sync"

	"github.com/roach88/strata/internal/types"
)

// Batch is a group of rows applied to the store in one InsertBatch call.
type Batch struct {
	Seq  int64
	Rows []types.DataRow
}

// batchQueue is an unbounded, thread-safe FIFO of batches.
//
// The signal channel has a buffer of one so that many enqueues coalesce
// into a single wakeup. It is closed by Close, which wakes every waiter.
type batchQueue struct {
	mu      sync.Mutex
	batches []Batch
	closed  bool
	signal  chan struct{}
}

func newBatchQueue() *batchQueue {
	return &batchQueue{
		batches: make([]Batch, 0, 64),
		signal:  make(chan struct{}, 1),
	}
}

// enqueue stamps rows with the next clock value and appends the batch.
// Stamping happens under the queue lock so sequence order matches queue
// order even with concurrent producers. Returns false once closed.
func (q *batchQueue) enqueue(clock *Clock, rows []types.DataRow) (int64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, false
	}

	seq := clock.Next()
	q.batches = append(q.batches, Batch{Seq: seq, Rows: rows})

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return seq, true
}

// tryDequeue removes the front batch without blocking.
func (q *batchQueue) tryDequeue() (Batch, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.batches) == 0 {
		return Batch{}, false
	}

	b := q.batches[0]
	// Drop the reference so the rows can be collected.
	q.batches[0] = Batch{}
	if len(q.batches) == 1 {
		q.batches = q.batches[:0]
	} else {
		q.batches = q.batches[1:]
	}
	return b, true
}

// wait returns a channel that fires when batches may be available.
func (q *batchQueue) wait() <-chan struct{} {
	return q.signal
}

// drained reports whether the queue is closed and empty.
func (q *batchQueue) drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.batches) == 0
}

func (q *batchQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.batches)
}

// close stops further enqueues and wakes waiters. Idempotent.
func (q *batchQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
