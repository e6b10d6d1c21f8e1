package types

import (
	"errors"
	"fmt"
	"sort"
)

// DataRow is one logged row: a set of component cells for one entity,
// stamped on one or more timelines.
type DataRow struct {
	RowID        RowID
	EntityPath   EntityPath
	TimePoint    TimePoint
	NumInstances int
	Cells        map[ComponentName]Cell
}

// NewDataRow builds a row with a single component cell.
// NumInstances is taken from the cell length.
func NewDataRow(id RowID, entity EntityPath, tp TimePoint, component ComponentName, cell Cell) DataRow {
	n := 0
	if cell != nil {
		n = cell.Len()
	}
	return DataRow{
		RowID:        id,
		EntityPath:   entity,
		TimePoint:    tp,
		NumInstances: n,
		Cells:        map[ComponentName]Cell{component: cell},
	}
}

// Components returns the row's component names in sorted order.
func (r DataRow) Components() []ComponentName {
	names := make([]ComponentName, 0, len(r.Cells))
	for name := range r.Cells {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Validate checks the row is internally consistent.
// Returns *MalformedRowError describing the first problem found.
func (r DataRow) Validate() error {
	if r.RowID.IsZero() {
		return &MalformedRowError{RowID: r.RowID, Entity: r.EntityPath, Message: "row id is zero"}
	}
	if len(r.TimePoint) == 0 {
		return &MalformedRowError{RowID: r.RowID, Entity: r.EntityPath, Message: "row has no timeline"}
	}
	if r.NumInstances < 0 {
		return &MalformedRowError{
			RowID:   r.RowID,
			Entity:  r.EntityPath,
			Message: fmt.Sprintf("negative instance count %d", r.NumInstances),
		}
	}
	for _, name := range r.Components() {
		cell := r.Cells[name]
		if cell == nil {
			return &MalformedRowError{RowID: r.RowID, Entity: r.EntityPath, Component: name, Message: "nil cell"}
		}
		if cell.Len() != r.NumInstances {
			return &MalformedRowError{
				RowID:     r.RowID,
				Entity:    r.EntityPath,
				Component: name,
				Message:   fmt.Sprintf("cell has %d instances, row declares %d", cell.Len(), r.NumInstances),
			}
		}
	}
	return nil
}

// MalformedRowError reports a row rejected before any mutation.
type MalformedRowError struct {
	RowID     RowID
	Entity    EntityPath
	Component ComponentName
	Message   string
}

// ErrCodeMalformedRow is the code reported by MalformedRowError.
const ErrCodeMalformedRow = "MALFORMED_ROW"

// Code returns the error category.
func (e *MalformedRowError) Code() string { return ErrCodeMalformedRow }

// Error implements the error interface.
func (e *MalformedRowError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s: %s (row=%s, entity=%s, component=%s)",
			ErrCodeMalformedRow, e.Message, e.RowID, e.Entity, e.Component)
	}
	return fmt.Sprintf("%s: %s (row=%s, entity=%s)", ErrCodeMalformedRow, e.Message, e.RowID, e.Entity)
}

// IsMalformedRowError returns true if err wraps a *MalformedRowError.
func IsMalformedRowError(err error) bool {
	var me *MalformedRowError
	return errors.As(err, &me)
}

// DataIndex orders rows by time, then by RowID.
type DataIndex struct {
	Time  TimeInt
	RowID RowID
}

// Compare returns -1, 0 or +1.
func (d DataIndex) Compare(other DataIndex) int {
	switch {
	case d.Time < other.Time:
		return -1
	case d.Time > other.Time:
		return 1
	}
	return d.RowID.Compare(other.RowID)
}

// Less reports whether d sorts before other.
func (d DataIndex) Less(other DataIndex) bool {
	return d.Compare(other) < 0
}

// String renders the index as "time#rowid".
func (d DataIndex) String() string {
	return fmt.Sprintf("%d#%s", d.Time, d.RowID)
}
