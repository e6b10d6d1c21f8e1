package rowlog

import (
	"path/filepath"
	"testing"

	"github.com/roach88/strata/internal/types"
)

var (
	frameNr = types.NewSequenceTimeline("frame_nr")
	logTime = types.NewTimeTimeline("log_time")
)

const (
	compPosition types.ComponentName = "strata.components.Position2D"
	compLabel    types.ComponentName = "strata.components.Text"
)

// createTestLog opens a fresh recording in a temp dir.
func createTestLog(t *testing.T) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

// createTestRow builds a two-instance row with positions and labels.
func createTestRow(id uint64, entity string, frame types.TimeInt) types.DataRow {
	return types.DataRow{
		RowID:      types.RowIDFromUint64(id),
		EntityPath: types.ParseEntityPath(entity),
		TimePoint: types.TimePoint{
			frameNr: frame,
			logTime: types.TimeInt(int64(frame) * 1_000_000),
		},
		NumInstances: 2,
		Cells: map[types.ComponentName]types.Cell{
			compPosition: types.Float64s{float64(frame), float64(frame) + 0.5},
			compLabel:    types.Strings{"a", "b"},
		},
	}
}
