//go:build sqlite_fts5

package markstore

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
			mark_id UNINDEXED,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, tx *sql.Tx, markID, body string) error {
	_, _ = tx.ExecContext(ctx, `DELETE FROM notes_fts WHERE mark_id = ?`, markID)
	if _, err := tx.ExecContext(ctx, `INSERT INTO notes_fts (mark_id, body) VALUES (?, ?)`, markID, body); err != nil {
		return fmt.Errorf("markstore: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(ctx context.Context, tx *sql.Tx, markID string) {
	_, _ = tx.ExecContext(ctx, `DELETE FROM notes_fts WHERE mark_id = ?`, markID)
}

// SearchNotes runs an FTS5 query over note text, best match first.
func (db *DB) SearchNotes(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT mark_id, snippet(notes_fts, 1, '<b>', '</b>', '...', 32)
		FROM notes_fts
		WHERE notes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("markstore: search: %w", err)
	}
	return db.searchResults(ctx, rows)
}
