package cache

import "fmt"

// Outcome is the state of a Promise.
type Outcome int

const (
	// Pending means the value depends on data that is not available yet.
	// Re-issue the query later.
	Pending Outcome = iota + 1
	// Ready means the value is available.
	Ready
	// Failed means the value can never be produced from the cached data.
	Failed
)

// String returns the lowercase outcome name.
func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Promise is a value that is pending, ready, or failed.
// The zero Promise is pending.
type Promise[T any] struct {
	outcome Outcome
	value   T
	err     error
}

// ReadyPromise returns a ready promise holding v.
func ReadyPromise[T any](v T) Promise[T] {
	return Promise[T]{outcome: Ready, value: v}
}

// PendingPromise returns a pending promise.
func PendingPromise[T any]() Promise[T] {
	return Promise[T]{outcome: Pending}
}

// FailedPromise returns a failed promise carrying err.
func FailedPromise[T any](err error) Promise[T] {
	return Promise[T]{outcome: Failed, err: err}
}

// Outcome returns the promise state.
func (p Promise[T]) Outcome() Outcome {
	if p.outcome == 0 {
		return Pending
	}
	return p.outcome
}

// IsPending reports whether the value is not available yet.
func (p Promise[T]) IsPending() bool { return p.Outcome() == Pending }

// IsReady reports whether the value is available.
func (p Promise[T]) IsReady() bool { return p.Outcome() == Ready }

// IsFailed reports whether the value can never be produced.
func (p Promise[T]) IsFailed() bool { return p.Outcome() == Failed }

// Value returns the value and true if the promise is ready.
func (p Promise[T]) Value() (T, bool) {
	return p.value, p.Outcome() == Ready
}

// Err returns the failure, or nil unless the promise failed.
func (p Promise[T]) Err() error {
	return p.err
}

// MapPromise transforms a ready value, passing pending and failed through.
func MapPromise[T, U any](p Promise[T], fn func(T) U) Promise[U] {
	switch p.Outcome() {
	case Ready:
		return ReadyPromise(fn(p.value))
	case Failed:
		return FailedPromise[U](p.err)
	default:
		return PendingPromise[U]()
	}
}
