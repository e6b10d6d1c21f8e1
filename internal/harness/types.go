package harness

import (
	"github.com/roach88/strata/internal/store"
)

// TraceEvent is one store notification, in emission order.
type TraceEvent struct {
	Step       int              `json:"step"`
	EventID    uint64           `json:"event_id"`
	Kind       string           `json:"kind"`
	RowID      string           `json:"row_id"`
	Entity     string           `json:"entity"`
	Time       map[string]int64 `json:"time"`
	Components []string         `json:"components"`
}

func newTraceEvent(step int, e store.Event) TraceEvent {
	te := TraceEvent{
		Step:       step,
		EventID:    e.EventID,
		Kind:       e.Kind.String(),
		RowID:      e.RowID.String(),
		Entity:     e.EntityPath.String(),
		Time:       make(map[string]int64, len(e.TimePoint)),
		Components: make([]string, len(e.Components)),
	}
	for tl, t := range e.TimePoint {
		te.Time[tl.Name] = int64(t)
	}
	for i, c := range e.Components {
		te.Components[i] = string(c)
	}
	return te
}

// Result is the outcome of a scenario run.
type Result struct {
	Name string `json:"name"`

	// Pass is true when every step and assertion succeeded.
	Pass bool `json:"pass"`

	// Errors holds one message per failed step or assertion.
	Errors []string `json:"errors,omitempty"`

	// Trace holds every store event in emission order.
	Trace []TraceEvent `json:"trace"`

	// Topology is the final bucket layout of every index table.
	Topology []store.TableTopology `json:"topology"`
}

// NewResult creates a passing result.
func NewResult(name string) *Result {
	return &Result{
		Name:   name,
		Pass:   true,
		Errors: []string{},
		Trace:  []TraceEvent{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}
