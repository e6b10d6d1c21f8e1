package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchQueue_FIFOAndStamping(t *testing.T) {
	q := newBatchQueue()
	c := NewClock()

	for i := 0; i < 3; i++ {
		seq, ok := q.enqueue(c, nil)
		require.True(t, ok)
		assert.Equal(t, int64(i+1), seq)
	}
	assert.Equal(t, 3, q.len())

	for i := 0; i < 3; i++ {
		b, ok := q.tryDequeue()
		require.True(t, ok)
		assert.Equal(t, int64(i+1), b.Seq)
	}

	_, ok := q.tryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestBatchQueue_EnqueueAfterClose(t *testing.T) {
	q := newBatchQueue()
	c := NewClock()
	q.close()
	q.close() // idempotent

	_, ok := q.enqueue(c, nil)
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.Current(), "a rejected batch must not consume a sequence number")
	assert.True(t, q.drained())
}

func TestBatchQueue_DrainedOnlyWhenClosedAndEmpty(t *testing.T) {
	q := newBatchQueue()
	c := NewClock()

	assert.False(t, q.drained(), "open queue is never drained")

	q.enqueue(c, nil)
	q.close()
	assert.False(t, q.drained(), "closed queue with pending batches")

	q.tryDequeue()
	assert.True(t, q.drained())
}

func TestBatchQueue_CloseWakesWaiter(t *testing.T) {
	q := newBatchQueue()

	done := make(chan struct{})
	go func() {
		<-q.wait()
		close(done)
	}()

	q.close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter not woken by close")
	}
}

func TestBatchQueue_ConcurrentProducersKeepSeqOrder(t *testing.T) {
	q := newBatchQueue()
	c := NewClock()

	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.enqueue(c, nil)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, producers*perProducer, q.len())
	var last int64
	for {
		b, ok := q.tryDequeue()
		if !ok {
			break
		}
		assert.Greater(t, b.Seq, last, "queue order must match sequence order")
		last = b.Seq
	}
	assert.Equal(t, int64(producers*perProducer), last)
}
