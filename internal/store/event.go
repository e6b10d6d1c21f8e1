package store

import (
	"fmt"
	"slices"

	"github.com/roach88/strata/internal/types"
)

// EventKind distinguishes additions from deletions.
type EventKind int

const (
	// EventAddition reports a row inserted into the store.
	EventAddition EventKind = iota + 1
	// EventDeletion reports a row dropped by garbage collection.
	EventDeletion
)

// String returns "addition" or "deletion".
func (k EventKind) String() string {
	switch k {
	case EventAddition:
		return "addition"
	case EventDeletion:
		return "deletion"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event describes one row added to or removed from a store.
//
// Events are immutable once emitted. They carry enough information for a
// subscriber to update derived state (caches, secondary indices) without
// rescanning the store.
type Event struct {
	StoreID    string
	EventID    uint64
	Kind       EventKind
	RowID      types.RowID
	EntityPath types.EntityPath
	TimePoint  types.TimePoint
	Components []types.ComponentName
	// Delta is +1 for additions and -1 for deletions.
	Delta int
}

// Touches reports whether the event affects the given (entity, component).
func (e Event) Touches(entity types.EntityPath, component types.ComponentName) bool {
	return e.EntityPath == entity && slices.Contains(e.Components, component)
}

// String renders a compact one-line description.
func (e Event) String() string {
	sign := "+"
	if e.Delta < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s#%d %s%s %s %v", e.StoreID, e.EventID, sign, e.RowID, e.EntityPath, e.Components)
}

func newEvent(storeID string, id uint64, kind EventKind, rowID types.RowID, entity types.EntityPath, tp types.TimePoint, components []types.ComponentName) Event {
	delta := 1
	if kind == EventDeletion {
		delta = -1
	}
	return Event{
		StoreID:    storeID,
		EventID:    id,
		Kind:       kind,
		RowID:      rowID,
		EntityPath: entity,
		TimePoint:  tp.Clone(),
		Components: slices.Clone(components),
		Delta:      delta,
	}
}
