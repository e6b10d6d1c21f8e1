// Package query resolves latest-at and range queries against a sorted store view.
//
// Each requested component is resolved independently: a latest-at query
// may return a position logged at frame 10 and a color logged at frame 3.
// Recombining them into one logical row is the job of package join.
//
// A component that was never logged resolves to no result, not an error.
// Callers that need a component use the strict accessors (Required,
// CheckArchetype) which report *MissingComponentError.
package query
