package store

import "github.com/roach88/strata/internal/types"

// Stats summarises the size of a store.
type Stats struct {
	StoreID     string `json:"store_id" yaml:"store_id"`
	NumEntities int    `json:"num_entities" yaml:"num_entities"`
	NumTables   int    `json:"num_tables" yaml:"num_tables"`
	NumBuckets  int    `json:"num_buckets" yaml:"num_buckets"`
	NumRows     int    `json:"num_rows" yaml:"num_rows"`
	SizeBytes   int    `json:"size_bytes" yaml:"size_bytes"`
	Generation  uint64 `json:"generation" yaml:"generation"`
	Subscribers int    `json:"subscribers" yaml:"subscribers"`
}

// Stats returns the current size summary.
func (s *Store) Stats() Stats {
	st := Stats{
		StoreID:     s.id,
		NumEntities: len(s.entities),
		NumTables:   len(s.tables),
		NumRows:     len(s.rows),
		Generation:  s.generation,
		Subscribers: s.registry.Len(),
	}
	for _, t := range s.tables {
		st.NumBuckets += len(t.buckets)
		for _, b := range t.buckets {
			st.SizeBytes += b.sizeBytes()
		}
	}
	return st
}

// TableTopology describes the buckets of one index table.
type TableTopology struct {
	Entity   string           `json:"entity" yaml:"entity"`
	Timeline string           `json:"timeline" yaml:"timeline"`
	Buckets  []BucketTopology `json:"buckets" yaml:"buckets"`
}

// BucketTopology describes one bucket.
type BucketTopology struct {
	Key     string `json:"key" yaml:"key"`
	NumRows int    `json:"num_rows" yaml:"num_rows"`
	Min     string `json:"min,omitempty" yaml:"min,omitempty"`
	Max     string `json:"max,omitempty" yaml:"max,omitempty"`
}

// Topology returns the bucket layout of every table, sorted by entity then
// timeline. Times are rendered with the timeline's time type.
func (v *View) Topology() []TableTopology {
	v.check()
	s := v.store
	var out []TableTopology
	for _, k := range s.sortedTableKeys() {
		t := s.tables[k]
		tt := TableTopology{
			Entity:   t.entity.String(),
			Timeline: t.timeline.Name,
		}
		for _, b := range t.buckets {
			bt := BucketTopology{Key: k.timeline.Type.Format(b.key), NumRows: b.len()}
			if b.len() > 0 {
				r := b.timeRange()
				bt.Min = k.timeline.Type.Format(r.Min)
				bt.Max = k.timeline.Type.Format(r.Max)
			}
			tt.Buckets = append(tt.Buckets, bt)
		}
		out = append(out, tt)
	}
	return out
}

// NumBuckets returns the bucket count of one table, or 0 if it does not exist.
func (s *Store) NumBuckets(entity types.EntityPath, timeline types.Timeline) int {
	t, ok := s.tables[tableKey{entity: entity.Hash(), timeline: timeline}]
	if !ok {
		return 0
	}
	return t.NumBuckets()
}
