// Package rowlog persists ingested rows in a SQLite recording.
//
// The in-memory store keeps no durable state of its own. A recording is an
// append-only log of rows that can be replayed into a fresh store to
// rebuild every index table.
//
// # Ordering
//
//   - Every row gets an INTEGER seq on append; wall-clock time is never stored
//   - Reads are ORDER BY seq ASC, row_id ASC COLLATE BINARY
//   - Appending a row whose row_id is already recorded is a no-op
//
// # Database Configuration
//
//   - WAL mode: concurrent readers while the engine appends
//   - synchronous=NORMAL
//   - busy_timeout=5000
//
// Cells are stored as tagged JSON (types.MarshalCell) keyed by component
// name. Time points are stored as a JSON list sorted by timeline.
package rowlog
