//go:build !sqlite_fts5

package markstore

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on marks.note.
	return nil
}

func ftsUpsert(_ context.Context, _ *sql.Tx, _, _ string) error {
	return nil
}

func ftsDelete(_ context.Context, _ *sql.Tx, _ string) {}

// SearchNotes runs a LIKE search over note text, newest first (fallback when
// FTS5 is not compiled in).
func (db *DB) SearchNotes(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, substr(note, 1, 200)
		FROM marks
		WHERE note LIKE ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("markstore: search: %w", err)
	}
	return db.searchResults(ctx, rows)
}
