package harness

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/strata/internal/types"
)

// Scenario is one store test case.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Store overrides store settings for this scenario.
	Store StoreSettings `yaml:"store,omitempty"`

	// Timelines maps timeline names to "sequence" or "time". Timelines not
	// listed are sequence timelines.
	Timelines map[string]string `yaml:"timelines,omitempty"`

	// Steps run in order; each insert step is one engine batch.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated against the store after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// StoreSettings overrides store configuration.
type StoreSettings struct {
	IndexedBucketNumRows int `yaml:"indexed_bucket_num_rows,omitempty"`
}

// Step is exactly one of Insert or GC.
type Step struct {
	Insert *InsertStep `yaml:"insert,omitempty"`
	GC     *GCStep     `yaml:"gc,omitempty"`

	// ExpectError is the error code the step must fail with, e.g.
	// MALFORMED_ROW. Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// InsertStep describes one or more rows for a single entity.
//
// Either Time gives one row on several timelines, or Timeline with At
// and/or Span gives one row per listed time.
type InsertStep struct {
	Entity string `yaml:"entity"`

	Time map[string]int64 `yaml:"time,omitempty"`

	Timeline string  `yaml:"timeline,omitempty"`
	At       []int64 `yaml:"at,omitempty"`
	Span     *Span   `yaml:"span,omitempty"`

	// Repeat inserts each time this many times. Defaults to 1.
	Repeat int `yaml:"repeat,omitempty"`

	// Reverse inserts the expanded times in reverse order.
	Reverse bool `yaml:"reverse,omitempty"`

	// RowID pins the id of a single-row step. Generated ids are used
	// otherwise.
	RowID uint64 `yaml:"row_id,omitempty"`

	// NumInstances overrides the instance count taken from the cells.
	NumInstances *int `yaml:"num_instances,omitempty"`

	Components map[string]CellSpec `yaml:"components"`
}

// Span is an inclusive range of times.
type Span struct {
	From int64 `yaml:"from"`
	To   int64 `yaml:"to"`
}

// CellSpec is the cell written for one component.
type CellSpec struct {
	Type   string `yaml:"type"`
	Values []any  `yaml:"values,omitempty"`

	// FromTime writes a single value equal to the row's time, which makes
	// latest-at results easy to read.
	FromTime bool `yaml:"from_time,omitempty"`
}

// GCStep drops the oldest rows.
type GCStep struct {
	MaxRows       int  `yaml:"max_rows,omitempty"`
	ProtectLatest bool `yaml:"protect_latest,omitempty"`
}

// Assertion checks the final store.
type Assertion struct {
	// Type is one of latest_at, range, topology, archetype, rows.
	Type string `yaml:"type"`

	Entity   string `yaml:"entity,omitempty"`
	Timeline string `yaml:"timeline,omitempty"`

	// At is the query time for latest_at and archetype.
	At *int64 `yaml:"at,omitempty"`

	// Min and Max bound a range assertion.
	Min *int64 `yaml:"min,omitempty"`
	Max *int64 `yaml:"max,omitempty"`

	// Component is the queried component of a range assertion.
	Component string `yaml:"component,omitempty"`

	// Expect maps components to their expected cells (latest_at, archetype).
	Expect map[string]ExpectedCell `yaml:"expect,omitempty"`

	// Missing lists components that must have no latest-at value.
	Missing []string `yaml:"missing,omitempty"`

	// Times lists the expected hit times of a range assertion, in order.
	Times []int64 `yaml:"times,omitempty"`

	// Buckets is the expected bucket count of a topology assertion.
	Buckets int `yaml:"buckets,omitempty"`

	// Rows is the expected row count (topology: one table; rows: store).
	Rows *int `yaml:"rows,omitempty"`

	// Archetype names the archetype joined by an archetype assertion.
	Archetype string `yaml:"archetype,omitempty"`

	// Instances is the expected instance count of an archetype join.
	Instances *int `yaml:"instances,omitempty"`

	// ExpectError is the error code an archetype join must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// ExpectedCell is an expected component value.
type ExpectedCell struct {
	// Time is the expected data time on the queried timeline.
	Time *int64 `yaml:"time,omitempty"`

	// Values are compared after conversion to the actual cell's type.
	Values []any `yaml:"values"`
}

// Assertion type constants.
const (
	AssertLatestAt  = "latest_at"
	AssertRange     = "range"
	AssertTopology  = "topology"
	AssertArchetype = "archetype"
	AssertRows      = "rows"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	sc, err := ParseScenario(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// ParseScenario parses and validates one scenario document.
func ParseScenario(r io.Reader) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("scan scenarios: %w", err)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		sc, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// timeline resolves a timeline name using the scenario's declarations.
func (s *Scenario) timeline(name string) (types.Timeline, error) {
	kind, ok := s.Timelines[name]
	if !ok {
		return types.NewSequenceTimeline(name), nil
	}
	tt, err := types.ParseTimeType(kind)
	if err != nil {
		return types.Timeline{}, fmt.Errorf("timeline %s: %w", name, err)
	}
	return types.Timeline{Name: name, Type: tt}, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.Store.IndexedBucketNumRows < 0 {
		return fmt.Errorf("store.indexed_bucket_num_rows must not be negative")
	}
	for name := range s.Timelines {
		if _, err := s.timeline(name); err != nil {
			return err
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	switch {
	case step.Insert != nil && step.GC != nil:
		return fmt.Errorf("steps[%d]: insert and gc are mutually exclusive", index)
	case step.Insert == nil && step.GC == nil:
		return fmt.Errorf("steps[%d]: one of insert or gc is required", index)
	case step.GC != nil:
		return nil
	}

	in := step.Insert
	if in.Entity == "" {
		return fmt.Errorf("steps[%d].insert: entity is required", index)
	}
	if len(in.Components) == 0 {
		return fmt.Errorf("steps[%d].insert: components is required", index)
	}
	hasList := len(in.At) > 0 || in.Span != nil
	switch {
	case len(in.Time) > 0 && (hasList || in.Timeline != ""):
		return fmt.Errorf("steps[%d].insert: time cannot be combined with timeline/at/span", index)
	case len(in.Time) == 0 && !hasList && step.ExpectError == "":
		return fmt.Errorf("steps[%d].insert: one of time, at or span is required", index)
	case hasList && in.Timeline == "":
		return fmt.Errorf("steps[%d].insert: timeline is required with at/span", index)
	}
	if in.Span != nil && in.Span.From > in.Span.To {
		return fmt.Errorf("steps[%d].insert: span.from must not exceed span.to", index)
	}
	if in.Repeat < 0 {
		return fmt.Errorf("steps[%d].insert: repeat must not be negative", index)
	}
	for name, spec := range in.Components {
		if _, err := types.ParseDataType(spec.Type); err != nil {
			return fmt.Errorf("steps[%d].insert.components[%s]: %w", index, name, err)
		}
		if spec.FromTime && len(spec.Values) > 0 {
			return fmt.Errorf("steps[%d].insert.components[%s]: from_time and values are mutually exclusive", index, name)
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needTable := func() error {
		if a.Entity == "" || a.Timeline == "" {
			return fmt.Errorf("assertions[%d]: entity and timeline are required for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertLatestAt:
		if err := needTable(); err != nil {
			return err
		}
		if a.At == nil {
			return fmt.Errorf("assertions[%d]: at is required for latest_at", index)
		}
		if len(a.Expect) == 0 && len(a.Missing) == 0 {
			return fmt.Errorf("assertions[%d]: expect or missing is required for latest_at", index)
		}
	case AssertRange:
		if err := needTable(); err != nil {
			return err
		}
		if a.Min == nil || a.Max == nil || a.Component == "" {
			return fmt.Errorf("assertions[%d]: min, max and component are required for range", index)
		}
	case AssertTopology:
		if err := needTable(); err != nil {
			return err
		}
		if a.Buckets <= 0 {
			return fmt.Errorf("assertions[%d]: buckets must be positive for topology", index)
		}
	case AssertArchetype:
		if err := needTable(); err != nil {
			return err
		}
		if a.At == nil || a.Archetype == "" {
			return fmt.Errorf("assertions[%d]: at and archetype are required for archetype", index)
		}
	case AssertRows:
		if a.Rows == nil {
			return fmt.Errorf("assertions[%d]: rows is required for rows", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
