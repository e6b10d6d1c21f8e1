package rowlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/query"
	"github.com/roach88/strata/internal/store"
	"github.com/roach88/strata/internal/types"
)

func appendFrames(t *testing.T, l *Log, entity string, n int) {
	t.Helper()
	rows := make([]types.DataRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, createTestRow(uint64(i+1), entity, types.TimeInt(i)))
	}
	require.NoError(t, l.Append(context.Background(), rows))
}

func TestReplay_RebuildsStore(t *testing.T) {
	l := createTestLog(t)
	appendFrames(t, l, "world/points", 100)

	s := store.New(l.RecordingID(), store.WithIndexedBucketNumRows(8))
	res, err := l.Replay(context.Background(), s, 16)
	require.NoError(t, err)

	assert.Equal(t, 100, res.Rows)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 7, res.Batches, "100 rows in batches of 16")
	assert.Equal(t, int64(100), res.LastSeq)
	assert.Equal(t, 100, s.NumRows())

	view := s.Sorted()
	results := query.LatestAt(view, types.ParseEntityPath("world/points"),
		query.LatestAtQuery{Timeline: frameNr, At: 41}, compPosition)
	got, ok := results.Get(compPosition)
	require.True(t, ok)
	assert.Equal(t, types.Float64s{41, 41.5}, got.Cell)
}

func TestReplay_TwiceSkipsEverything(t *testing.T) {
	l := createTestLog(t)
	appendFrames(t, l, "world/points", 10)

	s := store.New("replay-twice")
	_, err := l.Replay(context.Background(), s, 0)
	require.NoError(t, err)
	generation := s.Generation()

	res, err := l.Replay(context.Background(), s, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Rows)
	assert.Equal(t, 10, res.Skipped)
	assert.Equal(t, 0, res.Batches)
	assert.Equal(t, generation, s.Generation(), "a no-op replay must not mutate the store")
}

func TestReplay_Cancelled(t *testing.T) {
	l := createTestLog(t)
	appendFrames(t, l, "world/points", 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Replay(ctx, store.New("cancelled"), 0)
	assert.Error(t, err)
}
