package join

import (
	"errors"
	"fmt"
	"iter"

	"github.com/roach88/strata/internal/query"
	"github.com/roach88/strata/internal/types"
)

// Row is one reconstructed archetype row: every cell has NumInstances values.
type Row struct {
	Index        types.DataIndex
	NumInstances int
	Cells        map[types.ComponentName]types.Cell
}

// LatestAtArchetype rebuilds one archetype row from independently resolved
// latest-at results.
//
// The first required component is the primary and sets the instance count.
// Every other component is clamped to that count; a component with no
// result uses defaults[component] when given and is omitted otherwise.
// Returns *query.MissingComponentError when a required component is absent.
func LatestAtArchetype(res query.LatestAtResults, a types.Archetype, defaults map[types.ComponentName]types.Cell) (Row, error) {
	if err := res.CheckArchetype(a); err != nil {
		return Row{}, err
	}
	primaryName, ok := a.Primary()
	if !ok {
		return Row{}, fmt.Errorf("archetype %s has no required component", a.Name)
	}
	primary, _ := res.Get(primaryName)

	row := Row{
		Index:        primary.Index,
		NumInstances: primary.NumInstances,
		Cells:        map[types.ComponentName]types.Cell{primaryName: primary.Cell},
	}
	for _, name := range a.ComponentNames() {
		if name == primaryName {
			continue
		}
		var cell, def types.Cell
		if r, ok := res.Get(name); ok {
			cell = r.Cell
			if r.Index.Compare(row.Index) > 0 {
				row.Index = r.Index
			}
		}
		def = defaults[name]
		if cell == nil && def == nil {
			continue
		}
		clamped, err := ClampCell(row.NumInstances, cell, def)
		if err != nil {
			return Row{}, fmt.Errorf("join %s.%s: %w", a.Name, name, err)
		}
		row.Cells[name] = clamped
	}
	return row, nil
}

// RangeArchetypeRow is one row of a range archetype join. Secondary
// components that were never set before the row are absent from Cells.
type RangeArchetypeRow struct {
	Index        types.DataIndex
	NumInstances int
	Cells        map[types.ComponentName]types.Cell
}

// RangeArchetype joins range results on the archetype's primary component.
// Each other component contributes its most recent cell at or before each
// primary row.
func RangeArchetype(res query.RangeResults, a types.Archetype) ([]RangeArchetypeRow, error) {
	primaryName, ok := a.Primary()
	if !ok {
		return nil, fmt.Errorf("archetype %s has no required component", a.Name)
	}
	primaryItems := res.Get(primaryName)
	rows := make([]RangeArchetypeRow, len(primaryItems))
	for i, it := range primaryItems {
		rows[i] = RangeArchetypeRow{
			Index:        it.Index,
			NumInstances: it.NumInstances,
			Cells:        map[types.ComponentName]types.Cell{primaryName: it.Cell},
		}
	}

	for _, name := range a.ComponentNames() {
		if name == primaryName {
			continue
		}
		i := 0
		for joined := range RangeZip(rangeItems(primaryItems), rangeItems(res.Get(name))) {
			if joined.Secondary.Valid {
				rows[i].Cells[name] = joined.Secondary.Value
			}
			i++
		}
	}
	return rows, nil
}

func rangeItems(items []query.RangeItem) iter.Seq[Keyed[types.Cell]] {
	return func(yield func(Keyed[types.Cell]) bool) {
		for _, it := range items {
			if !yield(Keyed[types.Cell]{Index: it.Index, Value: it.Cell}) {
				return
			}
		}
	}
}

// ClampCell stretches cell to n instances. A nil cell yields def clamped
// the same way. Both cells must share a data type.
func ClampCell(n int, cell, def types.Cell) (types.Cell, error) {
	if cell == nil {
		cell, def = def, nil
	}
	if cell == nil {
		return nil, errors.New("no cell and no default")
	}
	if def != nil && def.DataType() != cell.DataType() {
		return nil, fmt.Errorf("default is %s, cell is %s", def.DataType(), cell.DataType())
	}

	switch c := cell.(type) {
	case types.Int64s:
		return types.Int64s(clampTyped(n, c, def)), nil
	case types.Float64s:
		return types.Float64s(clampTyped(n, c, def)), nil
	case types.Strings:
		return types.Strings(clampTyped(n, c, def)), nil
	case types.Bools:
		return types.Bools(clampTyped(n, c, def)), nil
	case types.Blobs:
		return types.Blobs(clampTyped(n, c, def)), nil
	case types.BlobRefs:
		return types.BlobRefs(clampTyped(n, c, def)), nil
	default:
		return nil, fmt.Errorf("unsupported cell %T", cell)
	}
}

func clampTyped[C ~[]T, T any](n int, values C, def types.Cell) []T {
	defaultFn := func() T {
		var zero T
		if d, ok := def.(C); ok && len(d) > 0 {
			return d[0]
		}
		return zero
	}
	return ClampSlice(n, []T(values), defaultFn)
}
