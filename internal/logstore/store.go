package logstore

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

// schema creates the records table on first open. DuckDB keeps the whole
// history on disk so the console can backfill past the in-memory tail.
const schema = `
CREATE SEQUENCE IF NOT EXISTS records_row_seq;
CREATE TABLE IF NOT EXISTS records (
	row_id BIGINT PRIMARY KEY DEFAULT nextval('records_row_seq'),
	id VARCHAR NOT NULL,
	timestamp TIMESTAMP NOT NULL,
	type VARCHAR NOT NULL,
	message VARCHAR NOT NULL,
	ip_address VARCHAR,
	username VARCHAR
);
CREATE INDEX IF NOT EXISTS idx_records_timestamp ON records (timestamp);
CREATE INDEX IF NOT EXISTS idx_records_type ON records (type);
`

// Store manages the DuckDB database connection and provides query methods.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	dbPath       string
	QueryTimeout time.Duration
}

// NewStore opens or creates a DuckDB database.
// If dbPath is empty, an in-memory database is used.
// An optional queryTimeout can be passed; it defaults to 30s.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	dsn := ""
	if dbPath != "" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		dsn = dbPath
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	qt := 30 * time.Second
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}

	return &Store{
		db:           db,
		dbPath:       dbPath,
		QueryTimeout: qt,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct query access.
func (s *Store) DB() *sql.DB {
	return s.db
}
