package harness

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/strata/internal/archetype"
	"github.com/roach88/strata/internal/join"
	"github.com/roach88/strata/internal/query"
	"github.com/roach88/strata/internal/store"
	"github.com/roach88/strata/internal/types"
)

// AssertionError describes one failed assertion.
type AssertionError struct {
	Index    int
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertions[%d] %s: expected %s, got %s", e.Index, e.Type, e.Expected, e.Actual)
}

// evaluateAssertions checks every assertion and returns one message per
// failure.
func evaluateAssertions(v *store.View, sc *Scenario, reg *archetype.Registry) []string {
	var msgs []string
	for i, a := range sc.Assertions {
		if err := evaluate(v, sc, reg, i, a); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

func evaluate(v *store.View, sc *Scenario, reg *archetype.Registry, index int, a Assertion) error {
	fail := func(expected, actual string, args ...any) error {
		return &AssertionError{
			Index:    index,
			Type:     a.Type,
			Expected: expected,
			Actual:   fmt.Sprintf(actual, args...),
		}
	}

	if a.Type == AssertRows {
		if got := storeRows(v); got != *a.Rows {
			return fail(fmt.Sprintf("%d rows", *a.Rows), "%d", got)
		}
		return nil
	}

	entity := types.ParseEntityPath(a.Entity)
	tl, err := sc.timeline(a.Timeline)
	if err != nil {
		return fail("a valid timeline", "%v", err)
	}

	switch a.Type {
	case AssertLatestAt:
		return assertLatestAt(v, entity, tl, a, fail)
	case AssertRange:
		return assertRange(v, entity, tl, a, fail)
	case AssertTopology:
		return assertTopology(v, entity, tl, a, fail)
	case AssertArchetype:
		return assertArchetype(v, entity, tl, reg, a, fail)
	default:
		return fail("a known assertion type", "%q", a.Type)
	}
}

type failFunc func(expected, actual string, args ...any) error

func storeRows(v *store.View) int {
	// Each row is indexed once per timeline, so count distinct row ids.
	seen := make(map[types.RowID]struct{})
	for _, entity := range v.Entities() {
		for _, tl := range v.Timelines(entity) {
			table, _ := v.Table(entity, tl)
			for i := 0; i < table.NumBuckets(); i++ {
				b := table.Bucket(i)
				for j := 0; j < b.Len(); j++ {
					seen[b.RowID(j)] = struct{}{}
				}
			}
		}
	}
	return len(seen)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func assertLatestAt(v *store.View, entity types.EntityPath, tl types.Timeline, a Assertion, fail failFunc) error {
	names := sortedKeys(a.Expect)
	components := make([]types.ComponentName, 0, len(names)+len(a.Missing))
	for _, n := range names {
		components = append(components, types.ComponentName(n))
	}
	for _, n := range a.Missing {
		components = append(components, types.ComponentName(n))
	}

	res := query.LatestAt(v, entity, query.LatestAtQuery{Timeline: tl, At: types.TimeInt(*a.At)}, components...)

	for _, n := range names {
		got, ok := res.Get(types.ComponentName(n))
		if !ok {
			return fail(n+" to have a value", "none")
		}
		if err := compareCell(n, a.Expect[n], got.Index, got.Cell, fail); err != nil {
			return err
		}
	}
	for _, n := range a.Missing {
		if got, ok := res.Get(types.ComponentName(n)); ok {
			return fail(n+" to have no value", "%s at %s", formatCell(got.Cell), got.Index)
		}
	}
	return nil
}

func compareCell(name string, want ExpectedCell, idx types.DataIndex, got types.Cell, fail failFunc) error {
	if want.Time != nil && int64(idx.Time) != *want.Time {
		return fail(fmt.Sprintf("%s at time %d", name, *want.Time), "time %d", int64(idx.Time))
	}
	values := want.Values
	if values == nil {
		values = []any{}
	}
	expected, err := types.NewCellFromAny(got.DataType(), values)
	if err != nil {
		return fail(fmt.Sprintf("%s values %v", name, want.Values), "%s which cannot hold them: %v", got.DataType(), err)
	}
	if !reflect.DeepEqual(expected, got) {
		return fail(fmt.Sprintf("%s = %s", name, formatCell(expected)), "%s", formatCell(got))
	}
	return nil
}

func formatCell(c types.Cell) string {
	parts := make([]string, c.Len())
	for i := range parts {
		parts[i] = types.FormatValue(c, i)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func assertRange(v *store.View, entity types.EntityPath, tl types.Timeline, a Assertion, fail failFunc) error {
	c := types.ComponentName(a.Component)
	q := query.RangeQuery{Timeline: tl, Range: types.NewTimeRange(types.TimeInt(*a.Min), types.TimeInt(*a.Max))}
	items := query.Range(v, entity, q, c).Get(c)

	got := make([]int64, len(items))
	for i, it := range items {
		got[i] = int64(it.Index.Time)
	}
	want := a.Times
	if want == nil {
		want = []int64{}
	}
	if !reflect.DeepEqual(want, got) {
		return fail(fmt.Sprintf("%s hits at %v", a.Component, want), "%v", got)
	}
	return nil
}

func assertTopology(v *store.View, entity types.EntityPath, tl types.Timeline, a Assertion, fail failFunc) error {
	table, ok := v.Table(entity, tl)
	if !ok {
		return fail(fmt.Sprintf("%d buckets", a.Buckets), "no table for %s on %s", entity, tl.Name)
	}
	if table.NumBuckets() != a.Buckets {
		return fail(fmt.Sprintf("%d buckets", a.Buckets), "%d", table.NumBuckets())
	}
	if a.Rows != nil && table.NumRows() != *a.Rows {
		return fail(fmt.Sprintf("%d rows", *a.Rows), "%d", table.NumRows())
	}
	return nil
}

func assertArchetype(v *store.View, entity types.EntityPath, tl types.Timeline, reg *archetype.Registry, a Assertion, fail failFunc) error {
	arch, ok := reg.Get(a.Archetype)
	if !ok {
		return fail("a registered archetype", "unknown archetype %q", a.Archetype)
	}

	q := query.LatestAtQuery{Timeline: tl, At: types.TimeInt(*a.At)}
	res := query.LatestAt(v, entity, q, arch.ComponentNames()...)
	row, err := join.LatestAtArchetype(res, arch, nil)

	if a.ExpectError != "" {
		if err == nil {
			return fail("error "+a.ExpectError, "a joined row")
		}
		if got := errorCode(err); got != a.ExpectError {
			return fail("error "+a.ExpectError, "%s (%v)", got, err)
		}
		return nil
	}
	if err != nil {
		var missing *query.MissingComponentError
		if errors.As(err, &missing) {
			return fail("a joined row", "missing required component %s", missing.Component)
		}
		return fail("a joined row", "%v", err)
	}

	if a.Instances != nil && row.NumInstances != *a.Instances {
		return fail(fmt.Sprintf("%d instances", *a.Instances), "%d", row.NumInstances)
	}
	for _, n := range sortedKeys(a.Expect) {
		cell, ok := row.Cells[types.ComponentName(n)]
		if !ok {
			return fail(n+" in the joined row", "absent")
		}
		if err := compareCell(n, a.Expect[n], row.Index, cell, fail); err != nil {
			return err
		}
	}
	return nil
}
