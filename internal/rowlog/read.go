package rowlog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/strata/internal/types"
)

// Record is a stored row with its append sequence number.
type Record struct {
	Seq int64
	Row types.DataRow
}

const selectRows = `
	SELECT seq, row_id, entity, timepoint, num_instances, cells
	FROM rows
`

// ReadAll returns every recorded row ordered by seq ASC, row_id ASC.
// Returns an empty slice, not nil, for an empty recording.
func (l *Log) ReadAll(ctx context.Context) ([]Record, error) {
	records := []Record{}
	err := l.Each(ctx, func(r Record) error {
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Each streams every recorded row in seq order. Iteration stops at the
// first error returned by fn, which Each returns unchanged.
func (l *Log) Each(ctx context.Context, fn func(Record) error) error {
	rows, err := l.db.QueryContext(ctx, selectRows+`
		ORDER BY seq ASC, row_id COLLATE BINARY ASC
	`)
	if err != nil {
		return fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}
	return nil
}

// ReadEntity returns the rows recorded for one entity in seq order.
func (l *Log) ReadEntity(ctx context.Context, entity types.EntityPath) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx, selectRows+`
		WHERE entity = ?
		ORDER BY seq ASC, row_id COLLATE BINARY ASC
	`, entity.String())
	if err != nil {
		return nil, fmt.Errorf("query entity rows: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity rows: %w", err)
	}
	return records, nil
}

// ReadRow returns the row with the given id. The bool is false if it is
// not recorded.
func (l *Log) ReadRow(ctx context.Context, id types.RowID) (Record, bool, error) {
	row := l.db.QueryRowContext(ctx, selectRows+`WHERE row_id = ?`, id.String())
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// Count returns the number of recorded rows.
func (l *Log) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rows`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

// LastSeq returns the highest seq in the recording, or 0 if it is empty.
func (l *Log) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := l.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM rows`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// Entities returns the distinct entity paths in the recording, sorted.
func (l *Log) Entities(ctx context.Context) ([]types.EntityPath, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT DISTINCT entity FROM rows ORDER BY entity COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	entities := []types.EntityPath{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, types.ParseEntityPath(s))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return entities, nil
}

// ComponentCounts returns the number of rows carrying each component.
func (l *Log) ComponentCounts(ctx context.Context) (map[types.ComponentName]int, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT component, COUNT(*) FROM row_components
		GROUP BY component
		ORDER BY component COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query components: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.ComponentName]int)
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		counts[types.ComponentName(name)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate components: %w", err)
	}
	return counts, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var (
		seq          int64
		rowID        string
		entity       string
		tpJSON       string
		numInstances int
		cellsJSON    string
	)
	if err := s.Scan(&seq, &rowID, &entity, &tpJSON, &numInstances, &cellsJSON); err != nil {
		if err == sql.ErrNoRows {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan row: %w", err)
	}

	id, err := types.ParseRowID(rowID)
	if err != nil {
		return Record{}, fmt.Errorf("scan row %d: %w", seq, err)
	}
	tp, err := unmarshalTimePoint(tpJSON)
	if err != nil {
		return Record{}, fmt.Errorf("scan row %s: %w", rowID, err)
	}
	cells, err := unmarshalCells(cellsJSON)
	if err != nil {
		return Record{}, fmt.Errorf("scan row %s: %w", rowID, err)
	}

	return Record{
		Seq: seq,
		Row: types.DataRow{
			RowID:        id,
			EntityPath:   types.ParseEntityPath(entity),
			TimePoint:    tp,
			NumInstances: numInstances,
			Cells:        cells,
		},
	}, nil
}
