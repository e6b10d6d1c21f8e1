package cache

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/roach88/strata/internal/types"
)

// Decoder turns a cell into typed instance values.
//
// Name identifies the decoder in cache keys: two decoders with the same
// name must produce the same values for the same cell.
type Decoder[T any] interface {
	Name() string
	Decode(cell types.Cell) Promise[[]T]
}

type funcDecoder[T any] struct {
	name string
	fn   func(types.Cell) Promise[[]T]
}

func (d funcDecoder[T]) Name() string { return d.name }
func (d funcDecoder[T]) Decode(cell types.Cell) Promise[[]T] { return d.fn(cell) }

// NewDecoder builds a Decoder from a function.
func NewDecoder[T any](name string, fn func(types.Cell) Promise[[]T]) Decoder[T] {
	return funcDecoder[T]{name: name, fn: fn}
}

// columnDecoder copies the column so decoded values never alias store memory.
func columnDecoder[C ~[]T, T any](name string) Decoder[T] {
	return NewDecoder(name, func(cell types.Cell) Promise[[]T] {
		c, ok := cell.(C)
		if !ok {
			return FailedPromise[[]T](&DecodeError{Decoder: name, DataType: cell.DataType(), Err: errWrongType})
		}
		return ReadyPromise(slices.Clone([]T(c)))
	})
}

// Float64Decoder decodes Float64s cells.
func Float64Decoder() Decoder[float64] { return columnDecoder[types.Float64s]("float64") }

// Int64Decoder decodes Int64s cells.
func Int64Decoder() Decoder[int64] { return columnDecoder[types.Int64s]("int64") }

// StringDecoder decodes Strings cells.
func StringDecoder() Decoder[string] { return columnDecoder[types.Strings]("string") }

// BoolDecoder decodes Bools cells.
func BoolDecoder() Decoder[bool] { return columnDecoder[types.Bools]("bool") }

// BlobSource fetches blobs stored outside the store.
// Fetch must not block; a blob still in flight is reported as Pending.
type BlobSource interface {
	Fetch(key string) Promise[[]byte]
}

// BlobDecoder decodes Blobs cells directly and BlobRefs cells through src.
// The result is pending while any referenced blob is pending and failed
// if any fetch failed.
func BlobDecoder(src BlobSource) Decoder[[]byte] {
	const name = "blob"
	return NewDecoder(name, func(cell types.Cell) Promise[[][]byte] {
		switch c := cell.(type) {
		case types.Blobs:
			out := make([][]byte, len(c))
			for i, b := range c {
				out[i] = bytes.Clone(b)
			}
			return ReadyPromise(out)
		case types.BlobRefs:
			if src == nil {
				return FailedPromise[[][]byte](&DecodeError{
					Decoder: name, DataType: cell.DataType(), Err: fmt.Errorf("no blob source"),
				})
			}
			out := make([][]byte, len(c))
			pending := false
			for i, key := range c {
				p := src.Fetch(key)
				switch p.Outcome() {
				case Failed:
					return FailedPromise[[][]byte](&DecodeError{
						Decoder: name, DataType: cell.DataType(), Err: fmt.Errorf("fetch %s: %w", key, p.Err()),
					})
				case Pending:
					pending = true
				default:
					out[i], _ = p.Value()
				}
			}
			if pending {
				return PendingPromise[[][]byte]()
			}
			return ReadyPromise(out)
		default:
			return FailedPromise[[][]byte](&DecodeError{Decoder: name, DataType: cell.DataType(), Err: errWrongType})
		}
	})
}
