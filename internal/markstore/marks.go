package markstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/versemark/internal/apperr"
	"github.com/starford/versemark/internal/models"
	"github.com/starford/versemark/internal/verse"
)

// Page size limits for ListMarks.
const (
	DefaultPageSize = 30
	MaxPageSize     = 100
)

// SearchResult is one note matching a search.
type SearchResult struct {
	Mark    models.Mark
	Snippet string
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Create persists a draft. A new highlight hides every visible highlight
// already covering one of its verses; the ids of the marked verses it hid
// are returned alongside the mark.
func (db *DB) Create(ctx context.Context, d models.Draft) (models.Mark, []string, error) {
	if err := d.Validate(); err != nil {
		return nil, nil, err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("markstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var hidden []string
	if d.Kind == models.KindHighlight {
		if hidden, err = hideHighlightsAt(ctx, tx, d.Verses); err != nil {
			return nil, nil, err
		}
	}

	var color, note sql.NullString
	switch d.Kind {
	case models.KindHighlight:
		color = sql.NullString{String: d.Color, Valid: true}
	case models.KindNote:
		note = sql.NullString{String: d.Text, Valid: true}
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO marks (id, color, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, color, note, now, now); err != nil {
		return nil, nil, fmt.Errorf("markstore: insert mark: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO marked_verses (id, mark_id, version_id, book_id, chapter_id, verse_number, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("markstore: prepare marked verse insert: %w", err)
	}
	defer stmt.Close()

	mvs := models.NewMarkedVerses()
	for _, r := range d.Verses {
		if mvs.Has(r.VersionedID()) {
			continue
		}
		mv := models.MarkedVerse{ID: uuid.NewString(), Verse: r}
		if _, err := stmt.ExecContext(ctx, mv.ID, id, r.VersionID, r.BookID, r.ChapterID, r.VerseNumber, mvs.Len()); err != nil {
			return nil, nil, fmt.Errorf("markstore: insert marked verse: %w", err)
		}
		mvs.Set(mv)
	}

	if note.Valid {
		if err := ftsUpsert(ctx, tx, id, note.String); err != nil {
			return nil, nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("markstore: commit: %w", err)
	}
	return newMark(id, color, note, now, mvs), hidden, nil
}

func hideHighlightsAt(ctx context.Context, tx *sql.Tx, refs []verse.Ref) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	for _, r := range refs {
		if seen[r.VersionedID()] {
			continue
		}
		seen[r.VersionedID()] = true
		rows, err := tx.QueryContext(ctx, `
			SELECT mv.id FROM marked_verses mv
			JOIN marks m ON m.id = mv.mark_id
			WHERE mv.visible = 1 AND m.color IS NOT NULL
			  AND mv.version_id = ? AND mv.book_id = ? AND mv.chapter_id = ? AND mv.verse_number = ?
			ORDER BY mv.id
		`, r.VersionID, r.BookID, r.ChapterID, r.VerseNumber)
		if err != nil {
			return nil, fmt.Errorf("markstore: find highlights at %s: %w", r, err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("markstore: scan marked verse: %w", err)
			}
			ids = append(ids, id)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("markstore: find highlights at %s: %w", r, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `UPDATE marked_verses SET visible = 0 WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("markstore: prepare highlight hide: %w", err)
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return nil, fmt.Errorf("markstore: hide marked verse %s: %w", id, err)
		}
	}
	return ids, nil
}

// Get returns a mark with its visible verses.
func (db *DB) Get(ctx context.Context, id string) (models.Mark, error) {
	marks, err := loadMarks(ctx, db.conn, `m.id = ? AND v.visible = 1`, id)
	if err != nil {
		return nil, err
	}
	if len(marks) == 0 {
		return nil, fmt.Errorf("mark %q: %w", id, apperr.ErrNotFound)
	}
	return marks[0], nil
}

// ChapterMarks returns the marks visible in a chapter, oldest first. Each
// mark carries only its visible verses of that chapter.
func (db *DB) ChapterMarks(ctx context.Context, loc models.Location) ([]models.Mark, error) {
	return loadMarks(ctx, db.conn, `
		v.visible = 1 AND v.version_id = ? AND v.book_id = ? AND v.chapter_id = ?
	`, loc.VersionID, loc.BookID, loc.ChapterID)
}

// Delete removes a mark and every marked verse, hidden or not, and returns
// what was removed.
func (db *DB) Delete(ctx context.Context, id string) (models.Mark, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("markstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	marks, err := loadMarks(ctx, tx, `m.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(marks) == 0 {
		return nil, fmt.Errorf("mark %q: %w", id, apperr.ErrNotFound)
	}

	ftsDelete(ctx, tx, id)
	if _, err := tx.ExecContext(ctx, `DELETE FROM marked_verses WHERE mark_id = ?`, id); err != nil {
		return nil, fmt.Errorf("markstore: delete marked verses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM marks WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("markstore: delete mark: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("markstore: commit: %w", err)
	}
	return marks[0], nil
}

// HideMarkedVerses hides visible highlighted verses by marked verse id. The
// batch is all-or-nothing: an unknown or already hidden id fails the whole
// call with apperr.ErrNotFound.
func (db *DB) HideMarkedVerses(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("hide marked verses: no ids: %w", apperr.ErrInvalidInput)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("markstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE marked_verses SET visible = 0
		WHERE id = ? AND visible = 1
		  AND mark_id IN (SELECT id FROM marks WHERE color IS NOT NULL)
	`)
	if err != nil {
		return fmt.Errorf("markstore: prepare hide: %w", err)
	}
	defer stmt.Close()

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		res, err := stmt.ExecContext(ctx, id)
		if err != nil {
			return fmt.Errorf("markstore: hide marked verse %q: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("highlighted verse %q: %w", id, apperr.ErrNotFound)
		}
	}
	return tx.Commit()
}

// PatchNote replaces the text of a note and returns the updated mark.
func (db *DB) PatchNote(ctx context.Context, id, text string) (models.Mark, error) {
	if err := models.ValidateNoteText(text); err != nil {
		return nil, err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("markstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		UPDATE marks SET note = ?, updated_at = ?
		WHERE id = ? AND note IS NOT NULL
	`, text, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("markstore: patch note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM marks WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("note %q: %w", id, apperr.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("markstore: patch note: %w", err)
		}
		return nil, fmt.Errorf("mark %q is not a note: %w", id, apperr.ErrInvalidInput)
	}
	if err := ftsUpsert(ctx, tx, id, text); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("markstore: commit: %w", err)
	}
	return db.Get(ctx, id)
}

// ListMarks returns marks with at least one visible verse, newest first,
// and the total count. An empty kind lists both kinds.
func (db *DB) ListMarks(ctx context.Context, kind models.Kind, limit, offset int) ([]models.Mark, int, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	where := `EXISTS (SELECT 1 FROM marked_verses v WHERE v.mark_id = m.id AND v.visible = 1)`
	switch kind {
	case models.KindHighlight:
		where += ` AND m.color IS NOT NULL`
	case models.KindNote:
		where += ` AND m.note IS NOT NULL`
	case "":
	default:
		return nil, 0, fmt.Errorf("list marks: unknown kind %q: %w", kind, apperr.ErrInvalidInput)
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM marks m WHERE `+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("markstore: count marks: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT m.id FROM marks m
		WHERE `+where+`
		ORDER BY m.created_at DESC, m.rowid DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("markstore: list marks: %w", err)
	}
	ids, err := scanStrings(rows)
	if err != nil {
		return nil, 0, err
	}

	marks, err := db.marksByID(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	return marks, total, nil
}

// marksByID loads marks with their visible verses in the order of ids.
// Ids without visible verses are skipped.
func (db *DB) marksByID(ctx context.Context, ids []string) ([]models.Mark, error) {
	if len(ids) == 0 {
		return []models.Mark{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	loaded, err := loadMarks(ctx, db.conn,
		`v.visible = 1 AND m.id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Mark, len(loaded))
	for _, m := range loaded {
		byID[m.Common().ID] = m
	}
	out := make([]models.Mark, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// loadMarks runs one join over marks and marked verses and groups the rows
// into marks, oldest first.
func loadMarks(ctx context.Context, q querier, where string, args ...any) ([]models.Mark, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT m.id, m.color, m.note, m.created_at,
		       v.id, v.version_id, v.book_id, v.chapter_id, v.verse_number
		FROM marks m
		JOIN marked_verses v ON v.mark_id = m.id
		WHERE `+where+`
		ORDER BY m.created_at, m.rowid, v.position
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("markstore: load marks: %w", err)
	}
	defer rows.Close()

	type partial struct {
		color, note sql.NullString
		createdAt   time.Time
		verses      *models.MarkedVerses
	}
	grouped := orderedmap.New[string, *partial]()
	for rows.Next() {
		var (
			id          string
			color, note sql.NullString
			createdAt   time.Time
			mv          models.MarkedVerse
		)
		if err := rows.Scan(&id, &color, &note, &createdAt,
			&mv.ID, &mv.Verse.VersionID, &mv.Verse.BookID, &mv.Verse.ChapterID, &mv.Verse.VerseNumber); err != nil {
			return nil, err
		}
		p, ok := grouped.Get(id)
		if !ok {
			p = &partial{color: color, note: note, createdAt: createdAt, verses: models.NewMarkedVerses()}
			grouped.Set(id, p)
		}
		p.verses.Set(mv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.Mark, 0, grouped.Len())
	for pair := grouped.Oldest(); pair != nil; pair = pair.Next() {
		p := pair.Value
		out = append(out, newMark(pair.Key, p.color, p.note, p.createdAt, p.verses))
	}
	return out, nil
}

func newMark(id string, color, note sql.NullString, createdAt time.Time, mvs *models.MarkedVerses) models.Mark {
	base := models.Base{
		ID:        id,
		Reference: verse.FormatReference(mvs.Refs()),
		Verses:    mvs,
		CreatedAt: createdAt,
	}
	if color.Valid {
		return &models.Highlight{Base: base, Color: color.String}
	}
	return &models.Note{Base: base, Text: note.String}
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// searchResults pairs (mark id, snippet) rows with their marks. Notes whose
// verses are all hidden are dropped.
func (db *DB) searchResults(ctx context.Context, rows *sql.Rows) ([]SearchResult, error) {
	var ids, snippets []string
	defer rows.Close()
	for rows.Next() {
		var id, snippet string
		if err := rows.Scan(&id, &snippet); err != nil {
			return nil, err
		}
		ids = append(ids, id)
		snippets = append(snippets, snippet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("markstore: search: %w", err)
	}
	rows.Close()

	marks, err := db.marksByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Mark, len(marks))
	for _, m := range marks {
		byID[m.Common().ID] = m
	}
	out := make([]SearchResult, 0, len(marks))
	for i, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, SearchResult{Mark: m, Snippet: snippets[i]})
		}
	}
	return out, nil
}
