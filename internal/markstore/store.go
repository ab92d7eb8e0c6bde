// Package markstore persists marks in SQLite with optional FTS5 search over
// note text.
package markstore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS marks (
	id         TEXT PRIMARY KEY,
	color      TEXT,
	note       TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	CHECK ((color IS NULL) <> (note IS NULL))
);

CREATE TABLE IF NOT EXISTS marked_verses (
	id           TEXT PRIMARY KEY,
	mark_id      TEXT NOT NULL REFERENCES marks(id) ON DELETE CASCADE,
	version_id   TEXT NOT NULL,
	book_id      TEXT NOT NULL,
	chapter_id   TEXT NOT NULL,
	verse_number INTEGER NOT NULL,
	position     INTEGER NOT NULL,
	visible      INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_marked_verses_mark ON marked_verses(mark_id);
CREATE INDEX IF NOT EXISTS idx_marked_verses_chapter
	ON marked_verses(version_id, book_id, chapter_id, verse_number);
CREATE INDEX IF NOT EXISTS idx_marks_created ON marks(created_at);
`

// DB wraps a sql.DB with mark operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("markstore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("markstore: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("markstore: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("markstore: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Ping reports whether the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
