// Package harness runs YAML scenarios against a fresh store.
//
// A scenario is a list of steps (row inserts, garbage collection) followed
// by assertions on the resulting store: latest-at values, range hits,
// bucket topology and archetype joins. Inserts go through the ingestion
// engine, one batch per step, so a scenario exercises the same write path
// as the CLI.
//
// Runs are deterministic: row ids come from a sequential generator, every
// scenario gets its own store, and the event trace records subscriber
// notifications in emission order. RunWithGolden snapshots the trace and
// topology under testdata/golden.
//
// Example:
//
//	name: overwrite_same_frame
//	description: Two rows on one frame, latest row id wins.
//	steps:
//	  - insert:
//	      entity: points
//	      timeline: frame_nr
//	      at: [3, 3]
//	      components:
//	        strata.components.Scalar: {type: float64, from_time: true}
//	assertions:
//	  - type: latest_at
//	    entity: points
//	    timeline: frame_nr
//	    at: 3
//	    expect:
//	      strata.components.Scalar: {values: [3]}
package harness
