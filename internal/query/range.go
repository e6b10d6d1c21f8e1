package query

import (
	"fmt"

	"github.com/roach88/strata/internal/store"
	"github.com/roach88/strata/internal/types"
)

// RangeQuery asks for every value within an inclusive time range.
type RangeQuery struct {
	Timeline types.Timeline
	Range    types.TimeRange
}

// String renders the query shape, used in cache keys and logs.
func (q RangeQuery) String() string {
	return fmt.Sprintf("range(%s@[%d,%d])", q.Timeline, q.Range.Min, q.Range.Max)
}

// RangeItem is one row's cell for a component.
type RangeItem struct {
	Index        types.DataIndex
	NumInstances int
	Cell         types.Cell
}

// RangeResults holds one ordered sequence per requested component.
type RangeResults struct {
	Entity  types.EntityPath
	Query   RangeQuery
	results map[types.ComponentName][]RangeItem
}

// Get returns the items for c ordered by (time, RowID). A component with no
// values in range yields nil.
func (r RangeResults) Get(c types.ComponentName) []RangeItem {
	return r.results[c]
}

func rangeQuery(v *store.View, entity types.EntityPath, q RangeQuery, components []types.ComponentName) RangeResults {
	out := RangeResults{
		Entity:  entity,
		Query:   q,
		results: make(map[types.ComponentName][]RangeItem, len(components)),
	}
	if q.Range.Min > q.Range.Max {
		return out
	}
	table, ok := v.Table(entity, q.Timeline)
	if !ok {
		return out
	}
	for _, c := range components {
		if items := rangeComponent(table, q.Range, c); len(items) > 0 {
			out.results[c] = items
		}
	}
	return out
}

func rangeComponent(table store.TableView, r types.TimeRange, c types.ComponentName) []RangeItem {
	var items []RangeItem
	for i := table.FindBucket(r.Min); i < table.NumBuckets(); i++ {
		b := table.Bucket(i)
		if b.Key() > r.Max {
			break
		}
		if !b.HasComponent(c) {
			continue
		}
		for j := b.SearchFrom(r.Min); j < b.Len() && b.Time(j) <= r.Max; j++ {
			cell := b.Cell(c, j)
			if cell == nil {
				continue
			}
			items = append(items, RangeItem{Index: b.Index(j), NumInstances: b.NumInstances(j), Cell: cell})
		}
	}
	return items
}
