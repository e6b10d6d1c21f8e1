package cache

import (
	"errors"
	"fmt"

	"github.com/roach88/strata/internal/types"
)

// ErrCodeDecode is the code reported by DecodeError.
const ErrCodeDecode = "DECODE_FAILED"

// DecodeError reports a cell that could not be decoded.
// It is memoised as the entry's Failed outcome until the entry is invalidated.
type DecodeError struct {
	Decoder   string
	Component types.ComponentName
	DataType  types.DataType
	Err       error
}

// Code returns the error category.
func (e *DecodeError) Code() string { return ErrCodeDecode }

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s: %s cannot decode %s cell of %s: %v",
			ErrCodeDecode, e.Decoder, e.DataType, e.Component, e.Err)
	}
	return fmt.Sprintf("%s: %s cannot decode %s cell: %v", ErrCodeDecode, e.Decoder, e.DataType, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError returns true if err wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// errWrongType is the cause of a DecodeError for a data type mismatch.
var errWrongType = errors.New("unexpected data type")
