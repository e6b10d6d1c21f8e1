package store

import (
	"testing"

	"github.com/roach88/strata/internal/testutil"
	"github.com/roach88/strata/internal/types"
)

var frameNr = types.NewSequenceTimeline("frame_nr")

const (
	compScalar types.ComponentName = testutil.ScalarComponent
	compColor  types.ComponentName = "strata.components.Color"
	compLabel  types.ComponentName = "strata.components.Label"
)

// rowAt builds a one-instance scalar row on frame_nr.
func rowAt(gen types.RowIDGenerator, entity types.EntityPath, at types.TimeInt, value float64) types.DataRow {
	return types.NewDataRow(gen.Next(), entity, types.TimePoint{frameNr: at}, compScalar, types.Float64s{value})
}

// insertFrames inserts one row per frame, failing the test on error.
func insertFrames(t *testing.T, s *Store, gen types.RowIDGenerator, entity types.EntityPath, frames ...types.TimeInt) {
	t.Helper()
	for _, f := range frames {
		if err := s.Insert(rowAt(gen, entity, f, float64(f))); err != nil {
			t.Fatalf("insert frame %d: %v", f, err)
		}
	}
}

// recorder is a subscriber that keeps every batch it receives.
type recorder struct {
	name    string
	batches [][]Event
	log     *[]string
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) OnEvents(events []Event) {
	r.batches = append(r.batches, events)
	if r.log != nil {
		*r.log = append(*r.log, r.name)
	}
}

func (r *recorder) numEvents() int {
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

// otherSubscriber is a distinct concrete type for handle mismatch tests.
type otherSubscriber struct{}

func (otherSubscriber) Name() string { return "other" }
func (otherSubscriber) OnEvents(_ []Event) {}
