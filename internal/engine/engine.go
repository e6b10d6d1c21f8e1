package engine

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/strata/internal/store"
	"github.com/roach88/strata/internal/types"
)

// Sink receives every batch before it reaches the store. The recording
// log implements it.
type Sink interface {
	Append(ctx context.Context, rows []types.DataRow) error
}

// Engine is the single-writer ingestion loop.
//
// Thread-safety model:
//   - Enqueue, Stop, Processed, Failed, QueueLen: safe from any goroutine
//   - Run: must be called from exactly one goroutine
type Engine struct {
	shared *store.Shared
	clock  *Clock
	queue  *batchQueue
	sink   Sink
	logger *slog.Logger
	hook   func(Batch, error)

	processed atomic.Int64
	failed    atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the default clock, typically with ResumeClock seeded
// from a recording.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithSink makes the engine append each batch to sink before inserting it.
// A batch the sink rejects is not inserted.
func WithSink(sink Sink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithBatchHook registers fn to run on the Run goroutine after every batch,
// with the batch error or nil.
func WithBatchHook(fn func(Batch, error)) Option {
	return func(e *Engine) {
		e.hook = fn
	}
}

// New creates an Engine writing into shared.
func New(shared *store.Shared, opts ...Option) *Engine {
	e := &Engine{
		shared: shared,
		clock:  NewClock(),
		queue:  newBatchQueue(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enqueue submits rows as one batch and returns its sequence number.
// Returns false if the engine has been stopped. The caller must not
// modify rows afterwards.
func (e *Engine) Enqueue(rows ...types.DataRow) (int64, bool) {
	return e.queue.enqueue(e.clock, rows)
}

// QueueLen returns the number of batches waiting.
func (e *Engine) QueueLen() int {
	return e.queue.len()
}

// Processed returns the number of batches applied successfully.
func (e *Engine) Processed() int64 {
	return e.processed.Load()
}

// Failed returns the number of batches dropped after an error.
func (e *Engine) Failed() int64 {
	return e.failed.Load()
}

// Clock returns the engine clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Run drains the queue until ctx is cancelled or Stop is called. Batches
// already queued when Stop is called are still applied.
//
// A failing batch is logged and skipped. Run only returns an error for
// context cancellation.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "store", e.shared.ID())

	for {
		if b, ok := e.queue.tryDequeue(); ok {
			err := e.processBatch(ctx, b)
			if err != nil {
				e.failed.Add(1)
				e.logBatchError(b, err)
			} else {
				e.processed.Add(1)
			}
			if e.hook != nil {
				e.hook(b, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.close()
			return ctx.Err()

		case <-e.queue.wait():
			if e.queue.drained() {
				e.logger.Info("engine stopping: queue closed",
					"processed", e.processed.Load(),
					"failed", e.failed.Load(),
				)
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once the remaining batches are applied.
func (e *Engine) Stop() {
	e.queue.close()
}

// processBatch validates b, appends it to the sink, then inserts it. Called only from Run.
func (e *Engine) processBatch(ctx context.Context, b Batch) error {
	e.logger.Debug("processing batch", "seq", b.Seq, "rows", len(b.Rows))

	for _, row := range b.Rows {
		if err := row.Validate(); err != nil {
			return &BatchError{Seq: b.Seq, Rows: len(b.Rows), Stage: "validate", Err: err}
		}
	}

	if e.sink != nil {
		if err := e.sink.Append(ctx, b.Rows); err != nil {
			return &BatchError{Seq: b.Seq, Rows: len(b.Rows), Stage: "sink", Err: err}
		}
	}

	err := e.shared.Write(func(s *store.Store) error {
		return s.InsertBatch(b.Rows)
	})
	if err != nil {
		return &BatchError{Seq: b.Seq, Rows: len(b.Rows), Stage: "store", Err: err}
	}
	return nil
}

// logBatchError logs a dropped batch with enough context to find it in the
// recording.
func (e *Engine) logBatchError(b Batch, err error) {
	attrs := []any{
		"error", err,
		"seq", b.Seq,
		"rows", len(b.Rows),
	}
	if len(b.Rows) > 0 {
		attrs = append(attrs,
			"first_row_id", b.Rows[0].RowID.String(),
			"first_entity", b.Rows[0].EntityPath.String(),
		)
	}
	e.logger.Error("batch processing failed", attrs...)
}
