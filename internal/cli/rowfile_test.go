package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/types"
)

func TestLoadRowFile(t *testing.T) {
	f, err := LoadRowFile(filepath.Join("testdata", "rows.yaml"))
	require.NoError(t, err)
	require.Len(t, f.Rows, 5)

	rows, err := f.Build(types.NewSequentialGenerator(1))
	require.NoError(t, err)
	require.Len(t, rows, 5)

	first := rows[0]
	assert.Equal(t, types.RowIDFromUint64(1), first.RowID)
	assert.Equal(t, "world/points", first.EntityPath.String())
	assert.Equal(t, types.TimePoint{
		types.NewSequenceTimeline("frame_nr"): 1,
		types.NewTimeTimeline("log_time"):     1000,
	}, first.TimePoint)
	assert.Equal(t, 3, first.NumInstances)
	assert.Equal(t, types.Float64s{1.5, 2.5, 3.5}, first.Cells["strata.components.Position2D"])

	for _, row := range rows {
		assert.NoError(t, row.Validate())
	}
}

func TestParseRowFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "rows:\n  - entity: a\n    frame: 1\n",
			wantErr: "field frame not found",
		},
		{
			name:    "bad timeline type",
			content: "timelines: {t: calendar}\nrows: []\n",
			wantErr: "timelines[t]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRowFile(strings.NewReader(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRowFileBuildErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing entity",
			content: "rows:\n  - time: {f: 1}\n    components: {c: {type: int64, values: [1]}}\n",
			wantErr: "rows[0]: entity is required",
		},
		{
			name:    "bad row id",
			content: "rows:\n  - entity: a\n    row_id: nope\n    time: {f: 1}\n    components: {c: {type: int64, values: [1]}}\n",
			wantErr: "row_id",
		},
		{
			name:    "bad data type",
			content: "rows:\n  - entity: a\n    time: {f: 1}\n    components: {c: {type: decimal, values: [1]}}\n",
			wantErr: "components[c]",
		},
		{
			name:    "value of wrong type",
			content: "rows:\n  - entity: a\n    time: {f: 1}\n    components: {c: {type: bool, values: [maybe]}}\n",
			wantErr: "components[c]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseRowFile(strings.NewReader(tt.content))
			require.NoError(t, err)
			_, err = f.Build(types.NewSequentialGenerator(1))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRowFilePinnedRowID(t *testing.T) {
	content := `rows:
  - entity: a
    row_id: 00000000-0000-7000-8000-00000000002a
    time: {f: 1}
    components: {c: {type: string, values: [x, y]}}
`
	f, err := ParseRowFile(strings.NewReader(content))
	require.NoError(t, err)
	rows, err := f.Build(types.NewSequentialGenerator(1))
	require.NoError(t, err)
	assert.Equal(t, types.RowIDFromUint64(42), rows[0].RowID)
	assert.Equal(t, 2, rows[0].NumInstances)
}
