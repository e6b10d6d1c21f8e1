package rowlog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/strata/internal/types"
)

// Append records rows in one transaction, in slice order.
//
// Rows are validated first; a malformed row rejects the whole call and
// nothing is written. A row whose RowID is already recorded is skipped
// silently (ON CONFLICT DO NOTHING), which makes Append safe to retry.
//
// Append satisfies engine.Sink.
func (l *Log) Append(ctx context.Context, rows []types.DataRow) error {
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			return fmt.Errorf("append: %w", err)
		}
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append: begin: %w", err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		if err := appendRow(ctx, tx, row); err != nil {
			return fmt.Errorf("append: row %s: %w", row.RowID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append: commit: %w", err)
	}
	return nil
}

func appendRow(ctx context.Context, tx *sql.Tx, row types.DataRow) error {
	tpJSON, err := marshalTimePoint(row.TimePoint)
	if err != nil {
		return err
	}
	cellsJSON, err := marshalCells(row.Cells)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO rows (row_id, entity, timepoint, num_instances, cells)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(row_id) DO NOTHING
	`,
		row.RowID.String(),
		row.EntityPath.String(),
		tpJSON,
		row.NumInstances,
		cellsJSON,
	)
	if err != nil {
		return fmt.Errorf("insert row: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert row: %w", err)
	}
	if n == 0 {
		// Already recorded.
		return nil
	}

	for _, name := range row.Components() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO row_components (row_id, component) VALUES (?, ?)
		`, row.RowID.String(), string(name)); err != nil {
			return fmt.Errorf("insert component %s: %w", name, err)
		}
	}
	return nil
}
