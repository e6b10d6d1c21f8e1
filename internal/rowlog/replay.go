package rowlog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/strata/internal/types"
)

// DefaultReplayBatchSize is the number of rows per InsertBatch call during
// replay.
const DefaultReplayBatchSize = 1024

// Inserter receives replayed rows. *store.Store implements it.
type Inserter interface {
	InsertBatch(rows []types.DataRow) error
	Contains(id types.RowID) bool
}

// ReplayResult summarises a replay.
type ReplayResult struct {
	Rows    int   // rows read from the recording
	Skipped int   // rows the target already contained
	Batches int   // InsertBatch calls
	LastSeq int64 // seq of the last row read
}

// Replay feeds the recording into dst in seq order, batchSize rows at a
// time. A batchSize <= 0 selects DefaultReplayBatchSize.
//
// Rows already present in dst are counted as skipped; the store ignores
// duplicates, so replaying twice is harmless.
func (l *Log) Replay(ctx context.Context, dst Inserter, batchSize int) (ReplayResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultReplayBatchSize
	}

	var res ReplayResult
	batch := make([]types.DataRow, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := dst.InsertBatch(batch); err != nil {
			return fmt.Errorf("replay: insert batch ending at seq %d: %w", res.LastSeq, err)
		}
		res.Batches++
		batch = make([]types.DataRow, 0, batchSize)
		return nil
	}

	err := l.Each(ctx, func(rec Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Rows++
		res.LastSeq = rec.Seq
		if dst.Contains(rec.Row.RowID) {
			res.Skipped++
			return nil
		}
		batch = append(batch, rec.Row)
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	if err := flush(); err != nil {
		return res, err
	}

	slog.Debug("replay complete",
		"recording", l.recordingID,
		"rows", res.Rows,
		"skipped", res.Skipped,
		"batches", res.Batches,
	)
	return res, nil
}
