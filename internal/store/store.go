package store

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/strata/internal/types"
)

type tableKey struct {
	entity   types.EntityPathHash
	timeline types.Timeline
}

// rowRecord remembers where a row was indexed so it can be deduplicated
// and later dropped.
type rowRecord struct {
	entity     types.EntityPath
	timePoint  types.TimePoint
	components []types.ComponentName
}

// Store owns every index table of one recording.
//
// Thread-safety: Store is NOT safe for concurrent use. Wrap it in Shared
// for a reader-writer discipline.
type Store struct {
	id       string
	config   Config
	tables   map[tableKey]*IndexTable
	entities map[types.EntityPathHash]types.EntityPath
	rows     map[types.RowID]rowRecord
	registry *Registry

	dirty       bool
	generation  uint64
	nextEventID uint64

	logger  *slog.Logger
	metrics *Metrics
}

// New creates an empty store identified by id.
func New(id string, opts ...Option) *Store {
	s := &Store{
		id:       id,
		config:   DefaultConfig(),
		tables:   make(map[tableKey]*IndexTable),
		entities: make(map[types.EntityPathHash]types.EntityPath),
		rows:     make(map[types.RowID]rowRecord),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = NewRegistry()
		s.registry.SetLogger(s.logger)
	}
	return s
}

// ID returns the store identifier carried by its events.
func (s *Store) ID() string { return s.id }

// Config returns the active configuration.
func (s *Store) Config() Config { return s.config }

// Registry returns the registry notified by this store.
func (s *Store) Registry() *Registry { return s.registry }

// Generation increases with every mutating call that changed the store.
func (s *Store) Generation() uint64 { return s.generation }

// Dirty reports whether a resort is pending.
func (s *Store) Dirty() bool { return s.dirty }

// NumRows returns the number of distinct rows held.
func (s *Store) NumRows() int { return len(s.rows) }

// Contains reports whether a row with the given id is held.
func (s *Store) Contains(id types.RowID) bool {
	_, ok := s.rows[id]
	return ok
}

// EntityPath resolves a path hash seen by the store.
func (s *Store) EntityPath(h types.EntityPathHash) (types.EntityPath, bool) {
	p, ok := s.entities[h]
	return p, ok
}

// Insert adds one row. See InsertBatch.
func (s *Store) Insert(row types.DataRow) error {
	return s.InsertBatch([]types.DataRow{row})
}

// InsertBatch adds rows to the store.
//
// Every row is validated before anything is mutated: a malformed row
// rejects the whole batch and the store is left untouched. Rows whose
// RowID is already present are skipped without emitting events. On
// success the registry is notified once with the events of every
// inserted row.
func (s *Store) InsertBatch(rows []types.DataRow) error {
	for i, row := range rows {
		if err := row.Validate(); err != nil {
			return fmt.Errorf("insert batch: row %d: %w", i, err)
		}
	}

	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		if _, dup := s.rows[row.RowID]; dup {
			s.metrics.duplicateRow()
			s.logger.Debug("duplicate row skipped", "row_id", row.RowID.String(), "entity", row.EntityPath.String())
			continue
		}
		s.insertRow(row)
		s.nextEventID++
		events = append(events, newEvent(s.id, s.nextEventID, EventAddition,
			row.RowID, row.EntityPath, row.TimePoint, row.Components()))
	}
	if len(events) == 0 {
		return nil
	}

	s.dirty = true
	s.generation++
	s.metrics.eventsSent(len(events))
	s.registry.Notify(events)
	return nil
}

func (s *Store) insertRow(row types.DataRow) {
	h := row.EntityPath.Hash()
	if _, ok := s.entities[h]; !ok {
		s.entities[h] = row.EntityPath
		s.logger.Debug("entity registered", "entity", row.EntityPath.String(), "hash", h.String())
	}

	for _, tl := range row.TimePoint.Timelines() {
		key := tableKey{entity: h, timeline: tl}
		table, ok := s.tables[key]
		if !ok {
			table = newIndexTable(row.EntityPath, tl, s.config.IndexedBucketNumRows, s.logger, s.metrics)
			s.tables[key] = table
		}
		table.insert(row.TimePoint[tl], row)
	}

	s.rows[row.RowID] = rowRecord{
		entity:     row.EntityPath,
		timePoint:  row.TimePoint.Clone(),
		components: row.Components(),
	}
	s.metrics.rowInserted()
}

// Sorted runs the deferred resort pass if needed and returns a read-only
// view. The view is valid until the next mutating call.
func (s *Store) Sorted() *View {
	if s.dirty {
		n := 0
		for _, t := range s.tables {
			n += t.sort()
		}
		s.dirty = false
		s.metrics.bucketsResorted(n)
		if n > 0 {
			s.logger.Debug("store resorted", "store", s.id, "buckets", n)
		}
	}
	return &View{store: s, generation: s.generation}
}

func (s *Store) sortedTableKeys() []tableKey {
	keys := make([]tableKey, 0, len(s.tables))
	for k := range s.tables {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ei, ej := s.entities[keys[i].entity].String(), s.entities[keys[j].entity].String()
		if ei != ej {
			return ei < ej
		}
		return types.CompareTimelines(keys[i].timeline, keys[j].timeline) < 0
	})
	return keys
}
