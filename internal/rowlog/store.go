package rowlog

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - no schema
// 1 - rows, row_components, recording_info
const currentSchemaVersion = 1

const infoRecordingID = "recording_id"

// Log is a recording backed by one SQLite file.
type Log struct {
	db          *sql.DB
	recordingID string
}

// Open creates or opens the recording at path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during appends
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// A new recording is assigned a random recording id, which stays fixed for
// the lifetime of the file. Open is idempotent.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to recording: %w", err)
	}

	// SQLite has one writer; more connections only produce SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	id, err := ensureRecordingID(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Log{db: db, recordingID: id}, nil
}

// Close closes the database connection.
func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// RecordingID returns the id assigned when the recording was created.
// The CLI uses it as the store id of the replayed store.
func (l *Log) RecordingID() string {
	return l.recordingID
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("recording schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func ensureRecordingID(db *sql.DB) (string, error) {
	var id string
	err := db.QueryRow(`SELECT value FROM recording_info WHERE key = ?`, infoRecordingID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("read recording id: %w", err)
	}

	id = uuid.NewString()
	if _, err := db.Exec(`INSERT INTO recording_info (key, value) VALUES (?, ?)`, infoRecordingID, id); err != nil {
		return "", fmt.Errorf("write recording id: %w", err)
	}
	return id, nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used by tests.
func (l *Log) verifyPragma(name, expected string) error {
	var value string
	if err := l.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
