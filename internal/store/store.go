package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema versions applied through PRAGMA user_version:
//
//	0 - fresh database, schema.sql only
//	1 - covering index on samples(run_id, query_index, iteration)
const currentSchemaVersion = 1

// Store holds recorded inference runs in a single SQLite database.
// WAL mode keeps readers live while a run commits.
type Store struct {
	db *sql.DB
}

// Open opens the database at path, creating it if needed, and brings it
// up to the current schema version. Opening an up-to-date database
// changes nothing, so callers may Open the same path repeatedly.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows one writer; a second pooled connection would only
	// trade SQLITE_BUSY errors back and forth.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := configure(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// configure applies the required pragmas and the embedded schema, then
// runs any pending migrations.
func configure(db *sql.DB) error {
	settings := [][2]string{
		{"journal_mode", "WAL"},
		{"synchronous", "NORMAL"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "ON"},
	}
	for _, s := range settings {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", s[0], s[1])); err != nil {
			return fmt.Errorf("failed to set pragma %s: %w", s[0], err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return migrate(db)
}

// migrate walks the database from its recorded user_version up to
// currentSchemaVersion.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		// Databases created from schema.sql already carry the index;
		// IF NOT EXISTS makes the upgrade a no-op for them.
		if _, err := db.Exec(`
			CREATE INDEX IF NOT EXISTS idx_samples_run_query
			ON samples(run_id, query_index, iteration)
		`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle for callers that need raw SQL,
// such as tests that corrupt a stored run on purpose.
func (s *Store) DB() *sql.DB {
	return s.db
}

// verifyPragma reports an error when the named pragma does not hold the
// expected value. Test helper.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
