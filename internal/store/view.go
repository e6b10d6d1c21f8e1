package store

import (
	"errors"
	"sort"

	"github.com/roach88/strata/internal/types"
)

// View is a read-only, sorted view of a store.
//
// A View can only be obtained from Store.Sorted (or Shared.Read), so every
// bucket reached through it is ordered by (time, RowID). Using a view after
// the store has been mutated panics with ErrStaleView; callers holding a
// view across writes check Valid first.
type View struct {
	store      *Store
	generation uint64
}

// ErrStaleView is the panic value of a view used after a mutation.
var ErrStaleView = errors.New("store: view used after the store was mutated")

// Valid reports whether the view still reflects the store.
func (v *View) Valid() bool {
	return v.store.generation == v.generation && !v.store.dirty
}

func (v *View) check() {
	if !v.Valid() {
		panic(ErrStaleView)
	}
}

// StoreID returns the id of the underlying store.
func (v *View) StoreID() string { return v.store.id }

// Generation returns the store generation the view was taken at.
func (v *View) Generation() uint64 { return v.generation }

// Table returns the index table for (entity, timeline).
func (v *View) Table(entity types.EntityPath, timeline types.Timeline) (TableView, bool) {
	v.check()
	t, ok := v.store.tables[tableKey{entity: entity.Hash(), timeline: timeline}]
	if !ok {
		return TableView{}, false
	}
	return TableView{table: t}, true
}

// Entities returns every entity path seen, sorted.
func (v *View) Entities() []types.EntityPath {
	v.check()
	out := make([]types.EntityPath, 0, len(v.store.entities))
	for _, p := range v.store.entities {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Timelines returns the timelines an entity was logged on, sorted.
func (v *View) Timelines(entity types.EntityPath) []types.Timeline {
	v.check()
	var out []types.Timeline
	h := entity.Hash()
	for k := range v.store.tables {
		if k.entity == h {
			out = append(out, k.timeline)
		}
	}
	sort.Slice(out, func(i, j int) bool { return types.CompareTimelines(out[i], out[j]) < 0 })
	return out
}

// TableView is read access to one index table.
type TableView struct {
	table *IndexTable
}

// Entity returns the table's entity.
func (tv TableView) Entity() types.EntityPath { return tv.table.entity }

// Timeline returns the table's timeline.
func (tv TableView) Timeline() types.Timeline { return tv.table.timeline }

// NumBuckets returns the number of buckets.
func (tv TableView) NumBuckets() int { return len(tv.table.buckets) }

// NumRows returns the number of rows.
func (tv TableView) NumRows() int { return tv.table.numRows }

// Bucket returns the i-th bucket in key order.
func (tv TableView) Bucket(i int) BucketView {
	return BucketView{b: tv.table.buckets[i]}
}

// FindBucket returns the index of the bucket that holds time t.
func (tv TableView) FindBucket(t types.TimeInt) int {
	return tv.table.findBucket(t)
}

// BucketView is read access to one sorted bucket.
type BucketView struct {
	b *bucket
}

// Key returns the bucket's lower bound.
func (bv BucketView) Key() types.TimeInt { return bv.b.key }

// Len returns the number of rows.
func (bv BucketView) Len() int { return bv.b.len() }

// Time returns the time of row i.
func (bv BucketView) Time(i int) types.TimeInt { return bv.b.times[i] }

// RowID returns the id of row i.
func (bv BucketView) RowID(i int) types.RowID { return bv.b.rowIDs[i] }

// Index returns the (time, RowID) of row i.
func (bv BucketView) Index(i int) types.DataIndex { return bv.b.index(i) }

// NumInstances returns the instance count of row i.
func (bv BucketView) NumInstances(i int) int { return bv.b.numInstances[i] }

// HasComponent reports whether any row of the bucket carries the component.
func (bv BucketView) HasComponent(c types.ComponentName) bool {
	_, ok := bv.b.columns[c]
	return ok
}

// Cell returns the component cell of row i, or nil if the row does not
// carry the component.
func (bv BucketView) Cell(c types.ComponentName, i int) types.Cell {
	col, ok := bv.b.columns[c]
	if !ok {
		return nil
	}
	return col[i]
}

// TimeRange returns the range spanned by the bucket's rows.
func (bv BucketView) TimeRange() types.TimeRange { return bv.b.timeRange() }

// SearchAfter returns the number of rows with time <= t.
func (bv BucketView) SearchAfter(t types.TimeInt) int {
	return sort.Search(bv.b.len(), func(i int) bool { return bv.b.times[i] > t })
}

// SearchFrom returns the index of the first row with time >= t.
func (bv BucketView) SearchFrom(t types.TimeInt) int {
	return sort.Search(bv.b.len(), func(i int) bool { return bv.b.times[i] >= t })
}
