package join

import (
	"iter"

	"github.com/roach88/strata/internal/types"
)

// Keyed is a value stamped with its (time, RowID).
type Keyed[T any] struct {
	Index types.DataIndex
	Value T
}

// rangeState tracks one secondary input of a range join.
type rangeState[S any] struct {
	next    func() (Keyed[S], bool)
	stop    func()
	pending Keyed[S]
	hasNext bool
	last    Optional[S]
}

func newRangeState[S any](seq iter.Seq[Keyed[S]]) *rangeState[S] {
	next, stop := iter.Pull(seq)
	st := &rangeState[S]{next: next, stop: stop}
	st.pending, st.hasNext = next()
	return st
}

// advance consumes every secondary item at or before idx and returns the
// last one consumed so far.
func (r *rangeState[S]) advance(idx types.DataIndex) Optional[S] {
	for r.hasNext && r.pending.Index.Compare(idx) <= 0 {
		r.last = Some(r.pending.Value)
		r.pending, r.hasNext = r.next()
	}
	return r.last
}

// RangeRow is one row of a range join.
type RangeRow[P, S any] struct {
	Index     types.DataIndex
	Primary   P
	Secondary Optional[S]
}

// RangeZip pairs each primary item with the most recent secondary item
// whose index is at or before the primary's. Both inputs must be ordered
// by index. Secondary is invalid until the first secondary item is due.
func RangeZip[P, S any](primary iter.Seq[Keyed[P]], secondary iter.Seq[Keyed[S]]) iter.Seq[RangeRow[P, S]] {
	return func(yield func(RangeRow[P, S]) bool) {
		sec := newRangeState(secondary)
		defer sec.stop()
		for p := range primary {
			row := RangeRow[P, S]{Index: p.Index, Primary: p.Value, Secondary: sec.advance(p.Index)}
			if !yield(row) {
				return
			}
		}
	}
}

// RangeRow2 is one row of a range join with two secondaries.
type RangeRow2[P, S1, S2 any] struct {
	Index   types.DataIndex
	Primary P
	First   Optional[S1]
	Second  Optional[S2]
}

// RangeZip2 is RangeZip with two independent secondaries.
func RangeZip2[P, S1, S2 any](primary iter.Seq[Keyed[P]], first iter.Seq[Keyed[S1]], second iter.Seq[Keyed[S2]]) iter.Seq[RangeRow2[P, S1, S2]] {
	return func(yield func(RangeRow2[P, S1, S2]) bool) {
		s1 := newRangeState(first)
		defer s1.stop()
		s2 := newRangeState(second)
		defer s2.stop()
		for p := range primary {
			row := RangeRow2[P, S1, S2]{
				Index:   p.Index,
				Primary: p.Value,
				First:   s1.advance(p.Index),
				Second:  s2.advance(p.Index),
			}
			if !yield(row) {
				return
			}
		}
	}
}

// KeyedSlice adapts an ordered slice to a range join input.
func KeyedSlice[T any](items []Keyed[T]) iter.Seq[Keyed[T]] {
	return func(yield func(Keyed[T]) bool) {
		for _, it := range items {
			if !yield(it) {
				return
			}
		}
	}
}
