package engine

import (
	"errors"
	"fmt"
)

// ErrCodeBatchFailed identifies a batch the engine could not apply.
const ErrCodeBatchFailed = "BATCH_FAILED"

// BatchError reports a batch that was dropped by the Run loop.
type BatchError struct {
	Seq   int64
	Rows  int
	Stage string // "validate", "sink" or "store"
	Err   error
}

// Code returns ErrCodeBatchFailed.
func (e *BatchError) Code() string { return ErrCodeBatchFailed }

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s: batch %d (%d rows) failed at %s: %v", ErrCodeBatchFailed, e.Seq, e.Rows, e.Stage, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// IsBatchError reports whether err wraps a *BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}
