package store

import (
	"sort"

	"github.com/roach88/strata/internal/types"
)

// GCOptions bounds a garbage collection pass.
type GCOptions struct {
	// MaxRowsToDrop caps how many rows are dropped. Zero or negative drops
	// every eligible row.
	MaxRowsToDrop int
	// ProtectLatest keeps, for every (entity, timeline, component), the row
	// with the greatest (time, RowID) so latest-at queries at the end of
	// time still resolve to the same value.
	ProtectLatest bool
}

// GC drops the oldest rows by RowID and emits one deletion event per row.
// Buckets are never merged or removed, even when they become empty.
func (s *Store) GC(opts GCOptions) []Event {
	ids := make([]types.RowID, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })

	protected := make(map[types.RowID]bool)
	if opts.ProtectLatest {
		for _, id := range s.latestRows() {
			protected[id] = true
		}
	}

	var events []Event
	for _, id := range ids {
		if opts.MaxRowsToDrop > 0 && len(events) >= opts.MaxRowsToDrop {
			break
		}
		if protected[id] {
			continue
		}
		rec := s.rows[id]
		h := rec.entity.Hash()
		for tl, at := range rec.timePoint {
			if t, ok := s.tables[tableKey{entity: h, timeline: tl}]; ok {
				t.remove(at, id)
			}
		}
		delete(s.rows, id)
		s.metrics.rowDropped()

		s.nextEventID++
		events = append(events, newEvent(s.id, s.nextEventID, EventDeletion,
			id, rec.entity, rec.timePoint, rec.components))
	}
	if len(events) == 0 {
		return nil
	}

	s.generation++
	s.logger.Debug("garbage collected rows", "store", s.id, "rows", len(events))
	s.metrics.eventsSent(len(events))
	s.registry.Notify(events)
	return events
}

// latestRows returns, per (entity, timeline, component), the RowID a
// latest-at query at MaxTime resolves to.
func (s *Store) latestRows() []types.RowID {
	type key struct {
		entity    types.EntityPathHash
		timeline  types.Timeline
		component types.ComponentName
	}
	latest := make(map[key]types.DataIndex)
	for id, rec := range s.rows {
		h := rec.entity.Hash()
		for tl, at := range rec.timePoint {
			idx := types.DataIndex{Time: at, RowID: id}
			for _, c := range rec.components {
				k := key{h, tl, c}
				if cur, ok := latest[k]; !ok || cur.Less(idx) {
					latest[k] = idx
				}
			}
		}
	}
	ids := make([]types.RowID, 0, len(latest))
	for _, idx := range latest {
		ids = append(ids, idx.RowID)
	}
	return ids
}
