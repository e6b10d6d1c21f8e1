package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/strata/internal/store"
)

// Snapshot is the golden form of a run: the event trace and the final
// topology. Errors are not part of it; a failing run fails the test
// before the comparison.
type Snapshot struct {
	Scenario string                `json:"scenario"`
	Trace    []TraceEvent          `json:"trace"`
	Topology []store.TableTopology `json:"topology"`
}

// MarshalSnapshot renders a result as indented JSON with a trailing
// newline. encoding/json sorts map keys, so the output is deterministic.
func MarshalSnapshot(r *Result) ([]byte, error) {
	data, err := json.MarshalIndent(Snapshot{
		Scenario: r.Name,
		Trace:    r.Trace,
		Topology: r.Topology,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden runs a scenario, fails the test if it does not pass, and
// compares its snapshot against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, sc *Scenario, opts ...Option) error {
	t.Helper()

	result, err := Run(context.Background(), sc, opts...)
	if err != nil {
		return err
	}
	if !result.Pass {
		t.Errorf("scenario %s failed:\n%v", sc.Name, result.Errors)
	}
	return AssertGolden(t, sc.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
