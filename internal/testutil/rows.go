package testutil

import (
	"sync"

	"github.com/roach88/strata/internal/types"
)

// ScalarComponent is the component RowFactory writes for scalar rows.
const ScalarComponent types.ComponentName = "strata.components.Scalar"

// RowFactory builds rows on a single timeline with sequential row ids.
//
// Two factories created with the same start produce identical rows for the
// same calls, which keeps traces and golden snapshots byte-stable.
//
// Thread-safety: RowFactory is safe for concurrent use.
type RowFactory struct {
	mu       sync.Mutex
	start    uint64
	next     uint64
	timeline types.Timeline
}

// NewRowFactory creates a factory whose first row id is start. A zero start
// is bumped to 1, since the zero RowID is reserved.
func NewRowFactory(timeline types.Timeline, start uint64) *RowFactory {
	if start == 0 {
		start = 1
	}
	return &RowFactory{start: start, next: start, timeline: timeline}
}

// Next implements types.RowIDGenerator.
func (f *RowFactory) Next() types.RowID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := types.RowIDFromUint64(f.next)
	f.next++
	return id
}

// Peek returns the id the next row will get without consuming it.
func (f *RowFactory) Peek() types.RowID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return types.RowIDFromUint64(f.next)
}

// Reset rewinds the factory to its start id.
func (f *RowFactory) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next = f.start
}

// Timeline returns the timeline rows are stamped on.
func (f *RowFactory) Timeline() types.Timeline {
	return f.timeline
}

// Scalar builds a one-instance ScalarComponent row at the given time.
func (f *RowFactory) Scalar(entity types.EntityPath, at types.TimeInt, value float64) types.DataRow {
	return types.NewDataRow(f.Next(), entity, types.TimePoint{f.timeline: at}, ScalarComponent, types.Float64s{value})
}

// Scalars builds one scalar row per frame, each holding its own frame number
// as the value.
func (f *RowFactory) Scalars(entity types.EntityPath, frames ...types.TimeInt) []types.DataRow {
	rows := make([]types.DataRow, 0, len(frames))
	for _, at := range frames {
		rows = append(rows, f.Scalar(entity, at, float64(at)))
	}
	return rows
}

// Row builds a row with the given cells. NumInstances is taken from the
// longest cell, so cells of differing lengths yield a row that fails
// Validate.
func (f *RowFactory) Row(entity types.EntityPath, at types.TimeInt, cells map[types.ComponentName]types.Cell) types.DataRow {
	n := 0
	for _, c := range cells {
		if c != nil {
			n = max(n, c.Len())
		}
	}
	return types.DataRow{
		RowID:        f.Next(),
		EntityPath:   entity,
		TimePoint:    types.TimePoint{f.timeline: at},
		NumInstances: n,
		Cells:        cells,
	}
}
