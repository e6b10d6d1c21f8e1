package rowlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/types"
)

func TestAppend_Basic(t *testing.T) {
	l := createTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, []types.DataRow{
		createTestRow(1, "world/points", 0),
		createTestRow(2, "world/points", 1),
	}))

	n, err := l.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAppend_IdempotentByRowID(t *testing.T) {
	l := createTestLog(t)
	ctx := context.Background()

	row := createTestRow(1, "world/points", 0)
	require.NoError(t, l.Append(ctx, []types.DataRow{row}))

	// Same id, different content: the first write wins.
	changed := createTestRow(1, "world/other", 9)
	require.NoError(t, l.Append(ctx, []types.DataRow{changed, row}))

	records, err := l.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "world/points", records[0].Row.EntityPath.String())

	counts, err := l.ComponentCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[compPosition], "a skipped row must not add component entries")
}

func TestAppend_MalformedRowWritesNothing(t *testing.T) {
	l := createTestLog(t)
	ctx := context.Background()

	bad := createTestRow(2, "world/points", 1)
	bad.Cells[compLabel] = types.Strings{"only-one"}

	err := l.Append(ctx, []types.DataRow{createTestRow(1, "world/points", 0), bad})
	require.Error(t, err)
	assert.True(t, types.IsMalformedRowError(err))

	n, err := l.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAppend_CancelledContext(t *testing.T) {
	l := createTestLog(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Append(ctx, []types.DataRow{createTestRow(1, "world/points", 0)})
	assert.Error(t, err)
}

func TestAppend_Empty(t *testing.T) {
	l := createTestLog(t)
	assert.NoError(t, l.Append(context.Background(), nil))
}
