package join

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/types"
)

func key(time types.TimeInt, offset uint64) types.DataIndex {
	return types.DataIndex{Time: time, RowID: types.RowIDFromUint64(offset)}
}

func collect[P, S any](primary []Keyed[P], secondary []Keyed[S]) []RangeRow[P, S] {
	var out []RangeRow[P, S]
	for row := range RangeZip(KeyedSlice(primary), KeyedSlice(secondary)) {
		out = append(out, row)
	}
	return out
}

func TestRangeZipOrdersByRowIDWithinATime(t *testing.T) {
	primary := []Keyed[string]{
		{Index: key(13, 3), Value: "p+3"},
		{Index: key(13, 5), Value: "p+5"},
		{Index: key(14, 1), Value: "p14"},
	}
	secondary := []Keyed[string]{
		{Index: key(13, 2), Value: "s+2"},
		{Index: key(13, 4), Value: "s+4"},
	}

	rows := collect(primary, secondary)
	require.Len(t, rows, 3)

	// (13,+3) precedes (13,+4) so only the earlier update is visible.
	assert.Equal(t, Some("s+2"), rows[0].Secondary)
	// (13,+4) supersedes (13,+2) for rows at (13,+5) or later.
	assert.Equal(t, Some("s+4"), rows[1].Secondary)
	assert.Equal(t, Some("s+4"), rows[2].Secondary)
}

func TestRangeZipNeverSetIsNone(t *testing.T) {
	primary := []Keyed[int]{{Index: key(1, 1), Value: 1}, {Index: key(5, 2), Value: 2}}
	secondary := []Keyed[int]{{Index: key(3, 3), Value: 0}}

	rows := collect(primary, secondary)
	require.Len(t, rows, 2)
	assert.False(t, rows[0].Secondary.Valid, "no secondary consumed yet")
	assert.Equal(t, Some(0), rows[1].Secondary, "a zero value is still a set value")

	empty := collect(primary, []Keyed[int](nil))
	for _, r := range empty {
		assert.Equal(t, None[int](), r.Secondary)
	}
}

func TestRangeZipExactKeyMatches(t *testing.T) {
	rows := collect(
		[]Keyed[string]{{Index: key(13, 4), Value: "p"}},
		[]Keyed[string]{{Index: key(13, 4), Value: "s"}},
	)
	require.Len(t, rows, 1)
	assert.Equal(t, Some("s"), rows[0].Secondary)
}

func TestRangeZip2(t *testing.T) {
	primary := []Keyed[int]{{Index: key(1, 1)}, {Index: key(2, 2)}, {Index: key(3, 3)}}
	first := []Keyed[string]{{Index: key(2, 9), Value: "late"}}
	second := []Keyed[bool]{{Index: key(0, 1), Value: true}}

	var rows []RangeRow2[int, string, bool]
	for row := range RangeZip2(KeyedSlice(primary), KeyedSlice(first), KeyedSlice(second)) {
		rows = append(rows, row)
	}

	require.Len(t, rows, 3)
	assert.False(t, rows[0].First.Valid)
	assert.False(t, rows[1].First.Valid, "(2,+9) is after (2,+2)")
	assert.Equal(t, "late", rows[2].First.Or("unset"))
	for _, r := range rows {
		assert.True(t, r.Second.Value)
	}
}

func TestOptionalOr(t *testing.T) {
	assert.Equal(t, 3, None[int]().Or(3))
	assert.Equal(t, 1, Some(1).Or(3))
}
