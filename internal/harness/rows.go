package harness

import (
	"fmt"
	"slices"
	"sort"

	"github.com/roach88/strata/internal/types"
)

// times expands At, Span and Repeat into the insertion order of a step.
func (in *InsertStep) times() []int64 {
	base := slices.Clone(in.At)
	if in.Span != nil {
		for t := in.Span.From; t <= in.Span.To; t++ {
			base = append(base, t)
		}
	}
	repeat := max(in.Repeat, 1)
	out := make([]int64, 0, len(base)*repeat)
	for _, t := range base {
		for range repeat {
			out = append(out, t)
		}
	}
	if in.Reverse {
		slices.Reverse(out)
	}
	return out
}

// buildRows turns an insert step into data rows. Row ids come from gen
// unless the step pins one.
func buildRows(sc *Scenario, in *InsertStep, gen types.RowIDGenerator) ([]types.DataRow, error) {
	entity := types.ParseEntityPath(in.Entity)

	if len(in.Time) > 0 || (len(in.At) == 0 && in.Span == nil) {
		tp := make(types.TimePoint, len(in.Time))
		for name, t := range in.Time {
			tl, err := sc.timeline(name)
			if err != nil {
				return nil, err
			}
			tp[tl] = types.TimeInt(t)
		}
		row, err := buildRow(in, entity, tp, 0, nextID(in, gen))
		if err != nil {
			return nil, err
		}
		return []types.DataRow{row}, nil
	}

	tl, err := sc.timeline(in.Timeline)
	if err != nil {
		return nil, err
	}
	times := in.times()
	if in.RowID != 0 && len(times) > 1 {
		return nil, fmt.Errorf("row_id can only pin a single-row insert, got %d rows", len(times))
	}

	rows := make([]types.DataRow, 0, len(times))
	for _, t := range times {
		row, err := buildRow(in, entity, types.TimePoint{tl: types.TimeInt(t)}, t, nextID(in, gen))
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func nextID(in *InsertStep, gen types.RowIDGenerator) types.RowID {
	if in.RowID != 0 {
		return types.RowIDFromUint64(in.RowID)
	}
	return gen.Next()
}

func buildRow(in *InsertStep, entity types.EntityPath, tp types.TimePoint, at int64, id types.RowID) (types.DataRow, error) {
	names := make([]string, 0, len(in.Components))
	for name := range in.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	row := types.DataRow{
		RowID:      id,
		EntityPath: entity,
		TimePoint:  tp,
		Cells:      make(map[types.ComponentName]types.Cell, len(names)),
	}
	for i, name := range names {
		cell, err := buildCell(in.Components[name], at)
		if err != nil {
			return types.DataRow{}, fmt.Errorf("component %s: %w", name, err)
		}
		row.Cells[types.ComponentName(name)] = cell
		if i == 0 {
			row.NumInstances = cell.Len()
		}
	}
	if in.NumInstances != nil {
		row.NumInstances = *in.NumInstances
	}
	return row, nil
}

func buildCell(spec CellSpec, at int64) (types.Cell, error) {
	dt, err := types.ParseDataType(spec.Type)
	if err != nil {
		return nil, err
	}
	values := spec.Values
	if spec.FromTime {
		values = []any{at}
	}
	if values == nil {
		values = []any{}
	}
	return types.NewCellFromAny(dt, values)
}
