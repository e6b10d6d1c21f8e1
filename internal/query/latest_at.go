package query

import (
	"fmt"

	"github.com/roach88/strata/internal/store"
	"github.com/roach88/strata/internal/types"
)

// LatestAtQuery asks for the most recent value at or before At.
type LatestAtQuery struct {
	Timeline types.Timeline
	At       types.TimeInt
}

// String renders the query shape, used in cache keys and logs.
func (q LatestAtQuery) String() string {
	return fmt.Sprintf("latest_at(%s@%d)", q.Timeline, q.At)
}

// LatestAtResult is one component's resolved cell.
type LatestAtResult struct {
	Index        types.DataIndex
	NumInstances int
	Cell         types.Cell
}

// LatestAtResults holds the independently resolved components of one query.
type LatestAtResults struct {
	Entity  types.EntityPath
	Query   LatestAtQuery
	results map[types.ComponentName]LatestAtResult
}

// Get returns the result for c. Absence is not an error.
func (r LatestAtResults) Get(c types.ComponentName) (LatestAtResult, bool) {
	res, ok := r.results[c]
	return res, ok
}

// Required returns the result for c, or *MissingComponentError.
func (r LatestAtResults) Required(c types.ComponentName) (LatestAtResult, error) {
	res, ok := r.results[c]
	if !ok {
		return LatestAtResult{}, &MissingComponentError{Entity: r.Entity, Component: c}
	}
	return res, nil
}

// CheckArchetype reports the first required component of a with no result.
// Recommended and optional components may be absent.
func (r LatestAtResults) CheckArchetype(a types.Archetype) error {
	for _, c := range a.Required() {
		if _, ok := r.results[c]; !ok {
			return &MissingComponentError{Entity: r.Entity, Component: c, Archetype: a.Name}
		}
	}
	return nil
}

// Len returns the number of components that resolved.
func (r LatestAtResults) Len() int {
	return len(r.results)
}

// MostRecent returns the greatest index among the resolved components.
func (r LatestAtResults) MostRecent() (types.DataIndex, bool) {
	var (
		best  types.DataIndex
		found bool
	)
	for _, res := range r.results {
		if !found || best.Less(res.Index) {
			best = res.Index
			found = true
		}
	}
	return best, found
}

func latestAt(v *store.View, entity types.EntityPath, q LatestAtQuery, components []types.ComponentName) LatestAtResults {
	out := LatestAtResults{
		Entity:  entity,
		Query:   q,
		results: make(map[types.ComponentName]LatestAtResult, len(components)),
	}
	table, ok := v.Table(entity, q.Timeline)
	if !ok {
		return out
	}
	for _, c := range components {
		if res, ok := latestAtComponent(table, q.At, c); ok {
			out.results[c] = res
		}
	}
	return out
}

// latestAtComponent walks back from the bucket containing at until it
// finds a row at or before at that carries the component.
func latestAtComponent(table store.TableView, at types.TimeInt, c types.ComponentName) (LatestAtResult, bool) {
	for i := table.FindBucket(at); i >= 0; i-- {
		b := table.Bucket(i)
		if !b.HasComponent(c) {
			continue
		}
		for j := b.SearchAfter(at) - 1; j >= 0; j-- {
			if cell := b.Cell(c, j); cell != nil {
				return LatestAtResult{Index: b.Index(j), NumInstances: b.NumInstances(j), Cell: cell}, true
			}
		}
	}
	return LatestAtResult{}, false
}
