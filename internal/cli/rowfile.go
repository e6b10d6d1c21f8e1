package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/strata/internal/types"
)

// RowFile is the YAML input of the ingest command:
//
//	timelines:
//	  log_time: time
//	rows:
//	  - entity: world/points
//	    time: {frame_nr: 1, log_time: 1700000000000000000}
//	    components:
//	      strata.components.Position2D: {type: float64, values: [1.0, 2.0]}
//
// Timelines not listed under timelines are sequence timelines.
type RowFile struct {
	Timelines map[string]string `yaml:"timelines"`
	Rows      []RowSpec         `yaml:"rows"`
}

// RowSpec is one row of a RowFile.
type RowSpec struct {
	// RowID pins the row id (UUID text). Empty generates a UUIDv7.
	RowID        string                   `yaml:"row_id"`
	Entity       string                   `yaml:"entity"`
	Time         map[string]int64         `yaml:"time"`
	NumInstances *int                     `yaml:"num_instances"`
	Components   map[string]ComponentSpec `yaml:"components"`
}

// ComponentSpec is one cell of a RowSpec.
type ComponentSpec struct {
	Type   string `yaml:"type"`
	Values []any  `yaml:"values"`
}

// LoadRowFile reads a row file. Unknown fields are rejected.
func LoadRowFile(path string) (*RowFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read row file: %w", err)
	}
	f, err := ParseRowFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ParseRowFile decodes one row file document.
func ParseRowFile(r io.Reader) (*RowFile, error) {
	var f RowFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	for name, kind := range f.Timelines {
		if _, err := types.ParseTimeType(kind); err != nil {
			return nil, fmt.Errorf("timelines[%s]: %w", name, err)
		}
	}
	return &f, nil
}

// Build converts the file into data rows. Only decoding problems are
// reported here; row consistency is checked by the engine on ingest.
func (f *RowFile) Build(gen types.RowIDGenerator) ([]types.DataRow, error) {
	rows := make([]types.DataRow, 0, len(f.Rows))
	for i, spec := range f.Rows {
		row, err := f.buildRow(spec, gen)
		if err != nil {
			return nil, fmt.Errorf("rows[%d]: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (f *RowFile) buildRow(spec RowSpec, gen types.RowIDGenerator) (types.DataRow, error) {
	if spec.Entity == "" {
		return types.DataRow{}, fmt.Errorf("entity is required")
	}

	id := gen.Next()
	if spec.RowID != "" {
		parsed, err := types.ParseRowID(spec.RowID)
		if err != nil {
			return types.DataRow{}, fmt.Errorf("row_id: %w", err)
		}
		id = parsed
	}

	tp := make(types.TimePoint, len(spec.Time))
	for name, t := range spec.Time {
		tp[f.timeline(name)] = types.TimeInt(t)
	}

	names := make([]string, 0, len(spec.Components))
	for name := range spec.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	row := types.DataRow{
		RowID:      id,
		EntityPath: types.ParseEntityPath(spec.Entity),
		TimePoint:  tp,
		Cells:      make(map[types.ComponentName]types.Cell, len(names)),
	}
	for i, name := range names {
		c := spec.Components[name]
		dt, err := types.ParseDataType(c.Type)
		if err != nil {
			return types.DataRow{}, fmt.Errorf("components[%s]: %w", name, err)
		}
		values := c.Values
		if values == nil {
			values = []any{}
		}
		cell, err := types.NewCellFromAny(dt, values)
		if err != nil {
			return types.DataRow{}, fmt.Errorf("components[%s]: %w", name, err)
		}
		row.Cells[types.ComponentName(name)] = cell
		if i == 0 {
			row.NumInstances = cell.Len()
		}
	}
	if spec.NumInstances != nil {
		row.NumInstances = *spec.NumInstances
	}
	return row, nil
}

// timeline resolves a name declared in the file; the type was checked by
// ParseRowFile.
func (f *RowFile) timeline(name string) types.Timeline {
	if kind, ok := f.Timelines[name]; ok {
		tt, _ := types.ParseTimeType(kind)
		return types.Timeline{Name: name, Type: tt}
	}
	return types.NewSequenceTimeline(name)
}
