package store

import (
	"sort"

	"github.com/roach88/strata/internal/types"
)

// bucket is a contiguous slice of rows for one (entity, timeline).
//
// All slices are parallel: index i of times, rowIDs, numInstances and of
// every column describes the same row. A component absent from a row is a
// nil entry in that component's column.
type bucket struct {
	key          types.TimeInt
	times        []types.TimeInt
	rowIDs       []types.RowID
	numInstances []int
	columns      map[types.ComponentName][]types.Cell
	sorted       bool
}

func newBucket(key types.TimeInt) *bucket {
	return &bucket{
		key:     key,
		columns: make(map[types.ComponentName][]types.Cell),
		sorted:  true,
	}
}

func (b *bucket) len() int {
	return len(b.times)
}

func (b *bucket) index(i int) types.DataIndex {
	return types.DataIndex{Time: b.times[i], RowID: b.rowIDs[i]}
}

// push appends a row, keeping every column the same length as times.
func (b *bucket) push(t types.TimeInt, row types.DataRow) {
	n := b.len()
	if n > 0 {
		last := b.index(n - 1)
		if (types.DataIndex{Time: t, RowID: row.RowID}).Less(last) {
			b.sorted = false
		}
	}

	b.times = append(b.times, t)
	b.rowIDs = append(b.rowIDs, row.RowID)
	b.numInstances = append(b.numInstances, row.NumInstances)

	for name, col := range b.columns {
		b.columns[name] = append(col, row.Cells[name])
	}
	for name, cell := range row.Cells {
		if _, ok := b.columns[name]; ok {
			continue
		}
		col := make([]types.Cell, n, n+1)
		b.columns[name] = append(col, cell)
	}
}

// sort orders rows by (time, RowID). Returns false if already sorted.
func (b *bucket) sort() bool {
	if b.sorted {
		return false
	}

	perm := make([]int, b.len())
	for i := range perm {
		perm[i] = i
	}
	sort.Slice(perm, func(i, j int) bool {
		return b.index(perm[i]).Less(b.index(perm[j]))
	})

	b.times = permute(b.times, perm)
	b.rowIDs = permute(b.rowIDs, perm)
	b.numInstances = permute(b.numInstances, perm)
	for name, col := range b.columns {
		b.columns[name] = permute(col, perm)
	}
	b.sorted = true
	return true
}

func permute[T any](src []T, perm []int) []T {
	out := make([]T, len(src))
	for i, p := range perm {
		out[i] = src[p]
	}
	return out
}

// splitIndex returns where to cut a sorted bucket in two so that no time
// straddles the cut. ok is false when every row has the same time.
//
// The cut lands on the boundary of the run containing the median time,
// whichever boundary is closer to the middle (the upper one on a tie).
func (b *bucket) splitIndex() (idx int, ok bool) {
	n := b.len()
	if n < 2 {
		return 0, false
	}
	half := n / 2
	target := b.times[half]

	lower := sort.Search(n, func(i int) bool { return b.times[i] >= target })
	upper := sort.Search(n, func(i int) bool { return b.times[i] > target })

	lowerOK := lower > 0
	upperOK := upper < n
	switch {
	case lowerOK && upperOK:
		if half-lower < upper-half {
			return lower, true
		}
		return upper, true
	case upperOK:
		return upper, true
	case lowerOK:
		return lower, true
	default:
		return 0, false
	}
}

// split moves the rows from idx onwards into a new bucket keyed at the
// first moved time. The receiver must be sorted.
func (b *bucket) split(idx int) *bucket {
	upper := newBucket(b.times[idx])
	upper.times = append([]types.TimeInt(nil), b.times[idx:]...)
	upper.rowIDs = append([]types.RowID(nil), b.rowIDs[idx:]...)
	upper.numInstances = append([]int(nil), b.numInstances[idx:]...)
	for name, col := range b.columns {
		upper.columns[name] = append([]types.Cell(nil), col[idx:]...)
		b.columns[name] = col[:idx:idx]
	}
	b.times = b.times[:idx:idx]
	b.rowIDs = b.rowIDs[:idx:idx]
	b.numInstances = b.numInstances[:idx:idx]
	return upper
}

// remove deletes the row with the given id. Returns false if absent.
func (b *bucket) remove(id types.RowID) bool {
	for i, rid := range b.rowIDs {
		if rid != id {
			continue
		}
		b.times = append(b.times[:i], b.times[i+1:]...)
		b.rowIDs = append(b.rowIDs[:i], b.rowIDs[i+1:]...)
		b.numInstances = append(b.numInstances[:i], b.numInstances[i+1:]...)
		for name, col := range b.columns {
			b.columns[name] = append(col[:i], col[i+1:]...)
		}
		return true
	}
	return false
}

// singleTime reports whether every row shares one time.
func (b *bucket) singleTime() bool {
	n := b.len()
	if n == 0 {
		return false
	}
	first, last := b.times[0], b.times[0]
	for _, t := range b.times {
		first = min(first, t)
		last = max(last, t)
	}
	return first == last
}

func (b *bucket) timeRange() types.TimeRange {
	if b.len() == 0 {
		return types.TimeRange{Min: b.key, Max: b.key}
	}
	r := types.TimeRange{Min: b.times[0], Max: b.times[0]}
	for _, t := range b.times {
		r.Min = min(r.Min, t)
		r.Max = max(r.Max, t)
	}
	return r
}

func (b *bucket) sizeBytes() int {
	n := b.len() * (8 + 16 + 8)
	for _, col := range b.columns {
		for _, c := range col {
			n += 16
			if c != nil {
				n += c.SizeBytes()
			}
		}
	}
	return n
}
