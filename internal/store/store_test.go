package store

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/types"
)

func TestInsertEmitsOneEventPerRow(t *testing.T) {
	s := New("rec")
	rec := &recorder{name: "rec"}
	s.Registry().Register(rec)
	gen := types.NewSequentialGenerator(1)
	entity := types.ParseEntityPath("points")

	rows := []types.DataRow{rowAt(gen, entity, 1, 1), rowAt(gen, entity, 2, 2), rowAt(gen, entity, 3, 3)}
	require.NoError(t, s.InsertBatch(rows))

	require.Len(t, rec.batches, 1, "one fan-out per mutating call")
	require.Len(t, rec.batches[0], 3)
	for i, ev := range rec.batches[0] {
		assert.Equal(t, EventAddition, ev.Kind)
		assert.Equal(t, 1, ev.Delta)
		assert.Equal(t, "rec", ev.StoreID)
		assert.Equal(t, rows[i].RowID, ev.RowID)
		assert.Equal(t, uint64(i+1), ev.EventID)
		assert.True(t, ev.Touches(entity, compScalar))
		assert.False(t, ev.Touches(entity, compColor))
		assert.False(t, ev.Touches(types.ParseEntityPath("other"), compScalar))
	}
}

func TestMalformedBatchLeavesStoreUntouched(t *testing.T) {
	s := New("rec")
	rec := &recorder{name: "rec"}
	s.Registry().Register(rec)
	gen := types.NewSequentialGenerator(1)
	entity := types.ParseEntityPath("points")

	bad := types.DataRow{
		RowID:        gen.Next(),
		EntityPath:   entity,
		TimePoint:    types.TimePoint{frameNr: 2},
		NumInstances: 2,
		Cells: map[types.ComponentName]types.Cell{
			compScalar: types.Float64s{1, 2},
			compLabel:  types.Strings{"only one"},
		},
	}
	err := s.InsertBatch([]types.DataRow{rowAt(gen, entity, 1, 1), bad})

	require.Error(t, err)
	assert.True(t, types.IsMalformedRowError(err))
	assert.Equal(t, 0, s.NumRows())
	assert.Equal(t, uint64(0), s.Generation())
	assert.Empty(t, rec.batches)
	_, ok := s.Sorted().Table(entity, frameNr)
	assert.False(t, ok, "no table may be created by a rejected batch")
}

func TestReinsertIsIdempotent(t *testing.T) {
	s := New("rec")
	rec := &recorder{name: "rec"}
	s.Registry().Register(rec)
	gen := types.NewSequentialGenerator(1)
	entity := types.ParseEntityPath("points")

	row := rowAt(gen, entity, 5, 1)
	require.NoError(t, s.Insert(row))
	gen1 := s.Generation()
	require.NoError(t, s.Insert(row))
	require.NoError(t, s.InsertBatch([]types.DataRow{row, row}))

	assert.Equal(t, 1, s.NumRows())
	assert.Equal(t, gen1, s.Generation())
	assert.Equal(t, 1, rec.numEvents())

	table, ok := s.Sorted().Table(entity, frameNr)
	require.True(t, ok)
	assert.Equal(t, 1, table.NumRows())
}

func TestRowIndexedOnEveryTimeline(t *testing.T) {
	s := New("rec")
	logTime := types.NewTimeTimeline("log_time")
	entity := types.ParseEntityPath("camera")

	row := types.NewDataRow(types.RowIDFromUint64(1), entity,
		types.TimePoint{frameNr: 3, logTime: 1_000}, compScalar, types.Float64s{1})
	require.NoError(t, s.Insert(row))

	view := s.Sorted()
	assert.Equal(t, []types.Timeline{frameNr, logTime}, view.Timelines(entity))
	assert.Equal(t, []types.EntityPath{entity}, view.Entities())

	got, ok := s.EntityPath(entity.Hash())
	require.True(t, ok)
	assert.Equal(t, entity, got)
}

func TestSortedRestoresOrder(t *testing.T) {
	s := New("rec", WithIndexedBucketNumRows(100))
	gen := types.NewSequentialGenerator(1)
	entity := types.ParseEntityPath("points")

	insertFrames(t, s, gen, entity, 9, 3, 7, 1)
	assert.True(t, s.Dirty())

	view := s.Sorted()
	assert.False(t, s.Dirty())
	table, ok := view.Table(entity, frameNr)
	require.True(t, ok)
	b := table.Bucket(0)
	var got []types.TimeInt
	for i := 0; i < b.Len(); i++ {
		got = append(got, b.Time(i))
	}
	assert.Equal(t, []types.TimeInt{1, 3, 7, 9}, got)
}

func TestViewPanicsAfterMutation(t *testing.T) {
	s := New("rec")
	gen := types.NewSequentialGenerator(1)
	entity := types.ParseEntityPath("points")
	insertFrames(t, s, gen, entity, 1)

	view := s.Sorted()
	assert.True(t, view.Valid())
	insertFrames(t, s, gen, entity, 2)

	assert.False(t, view.Valid())
	assert.PanicsWithValue(t, ErrStaleView, func() { view.Table(entity, frameNr) })
	assert.NotPanics(t, func() { s.Sorted().Table(entity, frameNr) })

	// The panic value is a plain error, so a recovering caller can match it.
	recovered := func() (err error) {
		defer func() { err, _ = recover().(error) }()
		view.Entities()
		return nil
	}()
	assert.ErrorIs(t, recovered, ErrStaleView)

	// GC bumps the generation as well.
	fresh := s.Sorted()
	s.GC(GCOptions{MaxRowsToDrop: 1})
	assert.False(t, fresh.Valid())
}

func TestStatsAndTopology(t *testing.T) {
	s := New("rec", WithIndexedBucketNumRows(2))
	gen := types.NewSequentialGenerator(1)
	insertFrames(t, s, gen, types.ParseEntityPath("b"), 1, 2, 3, 4)
	insertFrames(t, s, gen, types.ParseEntityPath("a"), 1)

	st := s.Stats()
	assert.Equal(t, 2, st.NumEntities)
	assert.Equal(t, 2, st.NumTables)
	assert.Equal(t, 5, st.NumRows)
	assert.Greater(t, st.SizeBytes, 0)

	topo := s.Sorted().Topology()
	require.Len(t, topo, 2)
	assert.Equal(t, "a", topo[0].Entity)
	assert.Equal(t, "b", topo[1].Entity)
	assert.Equal(t, "-∞", topo[1].Buckets[0].Key)

	rows := 0
	for _, b := range topo[1].Buckets {
		rows += b.NumRows
	}
	assert.Equal(t, 4, rows)
	assert.Equal(t, st.NumBuckets, len(topo[0].Buckets)+len(topo[1].Buckets))
}

func TestStoreMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg, "rec")
	require.NoError(t, err)

	s := New("rec", WithIndexedBucketNumRows(2), WithMetrics(m))
	gen := types.NewSequentialGenerator(1)
	entity := types.ParseEntityPath("points")
	insertFrames(t, s, gen, entity, 1, 2, 3, 4)
	require.NoError(t, s.Insert(types.NewDataRow(types.RowIDFromUint64(1), entity,
		types.TimePoint{frameNr: 1}, compScalar, types.Float64s{1})))

	assert.Equal(t, float64(4), testutil.ToFloat64(m.rowsInserted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.duplicateRows))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.eventsEmitted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.bucketSplits))

	_, err = NewMetrics(reg, "rec")
	assert.Error(t, err, "registering the same store twice must fail")
}
