// Package markindex keeps the marks of one chapter view, their per-verse
// aggregation, and the reader's verse selection.
//
// Marks are stored by id. A secondary index groups them by versioned verse
// id: highlights by color, notes in insertion order. The secondary index is
// maintained only through the methods of Index, and every read returns
// copies.
package markindex

import (
	"fmt"
	"log/slog"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/versemark/internal/apperr"
	"github.com/starford/versemark/internal/models"
)

type colorSet = orderedmap.OrderedMap[string, *models.Highlight]

// bucket aggregates the marks touching one verse.
type bucket struct {
	highlights *orderedmap.OrderedMap[string, *colorSet]
	notes      *orderedmap.OrderedMap[string, *models.Note]
}

func newBucket() *bucket {
	return &bucket{
		highlights: orderedmap.New[string, *colorSet](),
		notes:      orderedmap.New[string, *models.Note](),
	}
}

func (b *bucket) empty() bool {
	return b.highlights.Len() == 0 && b.notes.Len() == 0
}

// Index is not safe for concurrent use; the owning session serialises access.
type Index struct {
	logger    *slog.Logger
	marks     map[string]models.Mark
	byVerse   *orderedmap.OrderedMap[string, *bucket]
	selection *orderedmap.OrderedMap[string, struct{}]
}

// New returns an empty index. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		logger:    logger,
		marks:     make(map[string]models.Mark),
		byVerse:   orderedmap.New[string, *bucket](),
		selection: orderedmap.New[string, struct{}](),
	}
}

// ReplaceAll swaps the whole content of the index for marks. If any mark is
// invalid nothing changes. The selection is kept. A repeated id replaces the
// earlier mark, as Add does.
func (x *Index) ReplaceAll(marks []models.Mark) error {
	for i, m := range marks {
		if err := validate(m); err != nil {
			return fmt.Errorf("replace marks: mark %d: %w", i, err)
		}
	}
	x.marks = make(map[string]models.Mark, len(marks))
	x.byVerse = orderedmap.New[string, *bucket]()
	for _, m := range marks {
		if old, ok := x.marks[m.Common().ID]; ok {
			x.remove(old)
		}
		x.insert(models.Clone(m))
	}
	return nil
}

// Add inserts mark into the index. A mark whose id is already present
// replaces the previous one.
func (x *Index) Add(mark models.Mark) error {
	if err := validate(mark); err != nil {
		return fmt.Errorf("add mark: %w", err)
	}
	if old, ok := x.marks[mark.Common().ID]; ok {
		x.remove(old)
	}
	x.insert(models.Clone(mark))
	return nil
}

// Remove deletes a mark of either kind.
func (x *Index) Remove(id string) error {
	m, ok := x.marks[id]
	if !ok {
		x.logger.Warn("mark not in index", slog.String("mark_id", id))
		return fmt.Errorf("remove mark %q: %w", id, apperr.ErrNotFound)
	}
	x.remove(m)
	return nil
}

// RemoveNote deletes a note from every verse it touches. An unknown id is a
// logged no-op reported as apperr.ErrNotFound.
func (x *Index) RemoveNote(noteID string) error {
	m, ok := x.marks[noteID]
	if !ok {
		x.logger.Warn("note not in index", slog.String("note_id", noteID))
		return fmt.Errorf("remove note %q: %w", noteID, apperr.ErrNotFound)
	}
	if _, isNote := m.(*models.Note); !isNote {
		return fmt.Errorf("remove note %q: mark is a %s: %w", noteID, m.Kind(), apperr.ErrInvalidInput)
	}
	x.remove(m)
	return nil
}

// RemoveHighlightedVerse detaches one marked verse from a highlight. When it
// is the last verse of the mark, the whole mark is deleted. Otherwise the
// mark leaves only the color bucket of that verse and stays on the others.
func (x *Index) RemoveHighlightedVerse(markID, markedVerseID string) error {
	m, ok := x.marks[markID]
	if !ok {
		x.logger.Warn("highlight not in index", slog.String("mark_id", markID))
		return fmt.Errorf("remove highlighted verse: mark %q: %w", markID, apperr.ErrNotFound)
	}
	h, isHighlight := m.(*models.Highlight)
	if !isHighlight {
		return fmt.Errorf("remove highlighted verse: mark %q is a %s: %w", markID, m.Kind(), apperr.ErrInvalidInput)
	}
	mv, ok := h.Verses.FindByID(markedVerseID)
	if !ok {
		x.logger.Warn("marked verse not in highlight",
			slog.String("mark_id", markID), slog.String("marked_verse_id", markedVerseID))
		return fmt.Errorf("remove highlighted verse %q of %q: %w", markedVerseID, markID, apperr.ErrNotFound)
	}

	if h.Verses.Len() == 1 {
		x.remove(h)
		return nil
	}
	x.detach(mv.Key(), h)
	h.Verses.Delete(mv.Key())
	return nil
}

// UpdateNoteText replaces the text of a note.
func (x *Index) UpdateNoteText(noteID, text string) error {
	m, ok := x.marks[noteID]
	if !ok {
		return fmt.Errorf("update note %q: %w", noteID, apperr.ErrNotFound)
	}
	n, isNote := m.(*models.Note)
	if !isNote {
		return fmt.Errorf("update note %q: mark is a %s: %w", noteID, m.Kind(), apperr.ErrInvalidInput)
	}
	n.Text = text
	return nil
}

// Get returns a copy of the mark with the given id.
func (x *Index) Get(id string) (models.Mark, bool) {
	m, ok := x.marks[id]
	if !ok {
		return nil, false
	}
	return models.Clone(m), true
}

// Len returns the number of marks.
func (x *Index) Len() int {
	return len(x.marks)
}

// Marks returns copies of every mark in the order their first verse bucket
// was created.
func (x *Index) Marks() []models.Mark {
	out := make([]models.Mark, 0, len(x.marks))
	seen := make(map[string]struct{}, len(x.marks))
	for p := x.byVerse.Oldest(); p != nil; p = p.Next() {
		b := p.Value
		for c := b.highlights.Oldest(); c != nil; c = c.Next() {
			for h := c.Value.Oldest(); h != nil; h = h.Next() {
				out = appendOnce(out, seen, h.Value)
			}
		}
		for n := b.notes.Oldest(); n != nil; n = n.Next() {
			out = appendOnce(out, seen, n.Value)
		}
	}
	return out
}

func appendOnce(out []models.Mark, seen map[string]struct{}, m models.Mark) []models.Mark {
	id := m.Common().ID
	if _, ok := seen[id]; ok {
		return out
	}
	seen[id] = struct{}{}
	return append(out, models.Clone(m))
}

func validate(m models.Mark) error {
	if models.IsNil(m) {
		return fmt.Errorf("nil mark: %w", apperr.ErrInvalidInput)
	}
	b := m.Common()
	if b.ID == "" {
		return fmt.Errorf("mark without id: %w", apperr.ErrInvalidInput)
	}
	if b.Verses.Len() == 0 {
		return fmt.Errorf("mark %q has no verses: %w", b.ID, apperr.ErrInvalidInput)
	}
	for _, mv := range b.Verses.All() {
		if err := mv.Verse.Validate(); err != nil {
			return fmt.Errorf("mark %q: %w: %w", b.ID, apperr.ErrInvalidInput, err)
		}
	}
	if h, ok := m.(*models.Highlight); ok && h.Color == "" {
		return fmt.Errorf("highlight %q has no color: %w", b.ID, apperr.ErrInvalidInput)
	}
	return nil
}

func (x *Index) insert(m models.Mark) {
	id := m.Common().ID
	x.marks[id] = m
	for _, key := range m.Common().Verses.Keys() {
		b, ok := x.byVerse.Get(key)
		if !ok {
			b = newBucket()
			x.byVerse.Set(key, b)
		}
		switch v := m.(type) {
		case *models.Highlight:
			set, ok := b.highlights.Get(v.Color)
			if !ok {
				set = orderedmap.New[string, *models.Highlight]()
				b.highlights.Set(v.Color, set)
			}
			set.Set(id, v)
		case *models.Note:
			b.notes.Set(id, v)
		}
	}
}

func (x *Index) remove(m models.Mark) {
	for _, key := range m.Common().Verses.Keys() {
		x.detach(key, m)
	}
	delete(x.marks, m.Common().ID)
}

// detach drops m from the bucket of one verse and prunes what becomes empty.
func (x *Index) detach(key string, m models.Mark) {
	b, ok := x.byVerse.Get(key)
	if !ok {
		return
	}
	id := m.Common().ID
	switch v := m.(type) {
	case *models.Highlight:
		if set, ok := b.highlights.Get(v.Color); ok {
			set.Delete(id)
			if set.Len() == 0 {
				b.highlights.Delete(v.Color)
			}
		}
	case *models.Note:
		b.notes.Delete(id)
	}
	if b.empty() {
		x.byVerse.Delete(key)
	}
}
