package join

import (
	"iter"
	"slices"
)

// clampedState tracks one secondary input of a clamped join.
type clampedState[S any] struct {
	next      func() (S, bool)
	stop      func()
	last      S
	hasLast   bool
	exhausted bool
	def       func() S
}

func newClampedState[S any](seq iter.Seq[S], def func() S) *clampedState[S] {
	next, stop := iter.Pull(seq)
	return &clampedState[S]{next: next, stop: stop, def: def}
}

// step returns the secondary value paired with the current primary element.
func (c *clampedState[S]) step() S {
	if !c.exhausted {
		if v, ok := c.next(); ok {
			c.last = v
			c.hasLast = true
			return v
		}
		c.exhausted = true
	}
	if c.hasLast {
		return c.last
	}
	return c.def()
}

// ClampedZip pairs each primary element with the secondary element at the
// same position. Once the secondary is exhausted its last value repeats;
// if it never produced a value, defaultFn is called instead.
func ClampedZip[P, S any](primary iter.Seq[P], secondary iter.Seq[S], defaultFn func() S) iter.Seq2[P, S] {
	return func(yield func(P, S) bool) {
		sec := newClampedState(secondary, defaultFn)
		defer sec.stop()
		for p := range primary {
			if !yield(p, sec.step()) {
				return
			}
		}
	}
}

// Clamped2 is one row of a clamped join with two secondaries.
type Clamped2[P, S1, S2 any] struct {
	Primary P
	First   S1
	Second  S2
}

// ClampedZip2 is ClampedZip with two independent secondaries.
func ClampedZip2[P, S1, S2 any](
	primary iter.Seq[P],
	first iter.Seq[S1], firstDefault func() S1,
	second iter.Seq[S2], secondDefault func() S2,
) iter.Seq[Clamped2[P, S1, S2]] {
	return func(yield func(Clamped2[P, S1, S2]) bool) {
		s1 := newClampedState(first, firstDefault)
		defer s1.stop()
		s2 := newClampedState(second, secondDefault)
		defer s2.stop()
		for p := range primary {
			row := Clamped2[P, S1, S2]{Primary: p, First: s1.step(), Second: s2.step()}
			if !yield(row) {
				return
			}
		}
	}
}

// ClampSlice stretches values to n elements with ClampedZip semantics.
func ClampSlice[T any](n int, values []T, defaultFn func() T) []T {
	out := make([]T, 0, n)
	primary := func(yield func(int) bool) {
		for i := 0; i < n; i++ {
			if !yield(i) {
				return
			}
		}
	}
	for _, v := range ClampedZip(primary, slices.Values(values), defaultFn) {
		out = append(out, v)
	}
	return out
}
