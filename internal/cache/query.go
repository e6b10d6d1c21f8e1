package cache

import (
	"github.com/roach88/strata/internal/query"
	"github.com/roach88/strata/internal/store"
	"github.com/roach88/strata/internal/types"
)

// LatestAtValue is a cached latest-at result for one component. Values are
// copied out of the store but shared by every caller hitting the same entry,
// so they are read-only.
type LatestAtValue[T any] struct {
	// Found is false when the component has no value at or before the query time.
	Found        bool
	Index        types.DataIndex
	NumInstances int
	Values       Promise[[]T]
}

// LatestAt returns the cached latest-at value of component, resolving and
// decoding it on a miss.
func LatestAt[T any](c *Cache, v *store.View, entity types.EntityPath, q query.LatestAtQuery, component types.ComponentName, dec Decoder[T]) LatestAtValue[T] {
	k := pairKey{entity: entity.Hash(), component: component}
	e := c.getOrResolve(k, q.String(), func() *entry {
		res := c.resolver.LatestAt(v, entity, q, component)
		r, ok := res.Get(component)
		return &entry{raw: r, found: ok}
	})
	if !e.found {
		return LatestAtValue[T]{}
	}

	r := e.raw.(query.LatestAtResult)
	values := decoded(e, dec.Name(), func() Promise[[]T] {
		return withComponent(dec.Decode(r.Cell), component)
	})
	return LatestAtValue[T]{
		Found:        true,
		Index:        r.Index,
		NumInstances: r.NumInstances,
		Values:       values,
	}
}

// RangeValue is one decoded row of a cached range result.
type RangeValue[T any] struct {
	Index  types.DataIndex
	Values []T
}

// Range returns the cached range values of component, resolving and
// decoding them on a miss. As with LatestAt, the values are read-only. The promise is pending while any row is pending
// and failed if any row failed.
func Range[T any](c *Cache, v *store.View, entity types.EntityPath, q query.RangeQuery, component types.ComponentName, dec Decoder[T]) Promise[[]RangeValue[T]] {
	k := pairKey{entity: entity.Hash(), component: component}
	e := c.getOrResolve(k, q.String(), func() *entry {
		items := c.resolver.Range(v, entity, q, component).Get(component)
		return &entry{raw: items, found: len(items) > 0}
	})

	items, _ := e.raw.([]query.RangeItem)
	return decoded(e, dec.Name(), func() Promise[[]RangeValue[T]] {
		out := make([]RangeValue[T], 0, len(items))
		pending := false
		for _, it := range items {
			p := withComponent(dec.Decode(it.Cell), component)
			switch p.Outcome() {
			case Failed:
				return FailedPromise[[]RangeValue[T]](p.Err())
			case Pending:
				pending = true
			default:
				vals, _ := p.Value()
				out = append(out, RangeValue[T]{Index: it.Index, Values: vals})
			}
		}
		if pending {
			return PendingPromise[[]RangeValue[T]]()
		}
		return ReadyPromise(out)
	})
}

// withComponent stamps the component onto a DecodeError.
func withComponent[T any](p Promise[T], component types.ComponentName) Promise[T] {
	if de, ok := p.Err().(*DecodeError); ok && de.Component == "" {
		stamped := *de
		stamped.Component = component
		return FailedPromise[T](&stamped)
	}
	return p
}
