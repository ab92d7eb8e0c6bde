package reader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/versemark/internal/apperr"
	"github.com/starford/versemark/internal/markindex"
	"github.com/starford/versemark/internal/models"
	"github.com/starford/versemark/internal/verse"
)

// Action is what Highlight did.
type Action string

// Highlight actions.
const (
	ActionAdded    Action = "added"
	ActionRemoved  Action = "removed"
	ActionReplaced Action = "replaced"
)

// ToggleVerse flips the selection of a verse ("book.chapter.verse") of the
// current chapter and reports whether it is now selected.
func (s *Session) ToggleVerse(verseID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, _, err := s.view()
	if err != nil {
		return false, err
	}
	key := s.versioned(verseID)
	if _, err := verse.Parse(key); err != nil {
		s.logger.Warn("ignoring verse", slog.String("verse", verseID), slog.String("error", err.Error()))
		return false, err
	}
	return idx.ToggleSelect(key), nil
}

// SelectVerses adds verses of the current chapter to the selection by
// number.
func (s *Session) SelectVerses(numbers ...int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, _, err := s.view()
	if err != nil {
		return err
	}
	for _, n := range numbers {
		if n < 1 {
			return fmt.Errorf("verse number %d: %w", n, apperr.ErrInvalidInput)
		}
	}
	for _, n := range numbers {
		idx.Select(s.chapter.Verse(n).VersionedID())
	}
	return nil
}

// ClearSelection empties the selection.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		s.index.ClearSelection()
	}
}

// Selection returns the selected versioned verse ids in selection order.
func (s *Session) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil
	}
	return s.index.Selection()
}

// SelectedMarks returns the marks touching the selection.
func (s *Session) SelectedMarks() markindex.Selected {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return markindex.Selected{}
	}
	return s.index.SelectedMarks()
}

// Controls returns the highlight colors present in the selection. It is
// nil when nothing is selected.
func (s *Session) Controls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil || len(s.index.Selection()) == 0 {
		return nil
	}
	return s.index.SelectedMarks().Colors()
}

// pending is the state an action captured before going upstream.
type pending struct {
	gen       uint64
	loc       models.Location
	selection []string
	selected  markindex.Selected
}

// capture snapshots the selection. An empty selection is invalid input.
func (s *Session) capture() (pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, gen, err := s.view()
	if err != nil {
		return pending{}, err
	}
	sel := idx.Selection()
	if len(sel) == 0 {
		return pending{}, fmt.Errorf("no verse selected: %w", apperr.ErrInvalidInput)
	}
	return pending{gen: gen, loc: s.chapter.Location, selection: sel, selected: idx.MarksInVerses(sel)}, nil
}

// commit runs apply on the index if the view has not changed since gen.
func (s *Session) commit(gen uint64, apply func(*markindex.Index)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.index == nil {
		return fmt.Errorf("commit: %w", apperr.ErrStaleView)
	}
	apply(s.index)
	return nil
}

// Highlight applies color to the selection:
//   - no highlight in the selection: a new highlight is created;
//   - a highlight of color is present: the selected verses of every
//     highlight of that color are removed;
//   - only other colors are present: their selected verses are removed and
//     a new highlight is created.
//
// The selection is cleared once the action is committed.
func (s *Session) Highlight(ctx context.Context, color string) (Action, error) {
	if err := models.ValidateColor(color); err != nil {
		return "", err
	}
	p, err := s.capture()
	if err != nil {
		return "", err
	}

	if len(p.selected.Highlights) == 0 {
		return ActionAdded, s.create(ctx, p, models.NewHighlightDraft(color, refs(p.selection)...))
	}

	removeColor := ""
	if p.selected.HasColor(color) {
		removeColor = color
	}
	hv := p.selected.SelectedHighlightedVerses(p.selection, removeColor)
	if removeColor != "" && len(hv) == 0 {
		return "", fmt.Errorf("%w: %s highlight on the selection is not stored yet", apperr.ErrInvalidInput, color)
	}
	if err := s.hide(ctx, p, hv); err != nil {
		return "", err
	}
	if removeColor != "" {
		return ActionRemoved, s.commit(p.gen, func(idx *markindex.Index) { idx.ClearSelection() })
	}
	return ActionReplaced, s.create(ctx, p, models.NewHighlightDraft(color, refs(p.selection)...))
}

// AddNote attaches a note to the selected verses.
func (s *Session) AddNote(ctx context.Context, text string) error {
	if err := models.ValidateNoteText(text); err != nil {
		return err
	}
	p, err := s.capture()
	if err != nil {
		return err
	}
	return s.create(ctx, p, models.NewNoteDraft(text, refs(p.selection)...))
}

// EditNote replaces the text of a note of the current view.
func (s *Session) EditNote(ctx context.Context, noteID, text string) error {
	if err := models.ValidateNoteText(text); err != nil {
		return err
	}
	gen, err := s.noteGen(noteID)
	if err != nil {
		return err
	}
	if err := s.sink.PatchNote(ctx, noteID, text); err != nil {
		return s.upstream(gen, "edit note", err)
	}
	return s.commit(gen, func(idx *markindex.Index) {
		_ = idx.UpdateNoteText(noteID, text)
	})
}

// DeleteNote deletes a note of the current view. Deleting a note the view
// does not hold is a logged no-op.
func (s *Session) DeleteNote(ctx context.Context, noteID string) error {
	gen, err := s.noteGen(noteID)
	if err != nil {
		return err
	}
	m, err := s.sink.DeleteMark(ctx, noteID)
	if err != nil {
		return s.upstream(gen, "delete note", err)
	}
	return s.commit(gen, func(idx *markindex.Index) {
		_ = idx.RemoveNote(m.Common().ID)
	})
}

// noteGen checks that noteID is a note of the current view.
func (s *Session) noteGen(noteID string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, gen, err := s.view()
	if err != nil {
		return 0, err
	}
	m, ok := idx.Get(noteID)
	if !ok {
		s.logger.Warn("unknown note", slog.String("id", noteID))
		return 0, fmt.Errorf("note %q: %w", noteID, apperr.ErrNotFound)
	}
	if m.Kind() != models.KindNote {
		return 0, fmt.Errorf("mark %q is not a note: %w", noteID, apperr.ErrInvalidInput)
	}
	return gen, nil
}

// create sends a draft and adds the confirmed mark.
func (s *Session) create(ctx context.Context, p pending, d models.Draft) error {
	m, err := s.sink.CreateMark(ctx, p.loc, d)
	if err != nil {
		return s.upstream(p.gen, "create mark", err)
	}
	var addErr error
	err = s.commit(p.gen, func(idx *markindex.Index) {
		if addErr = idx.Add(m); addErr == nil {
			idx.ClearSelection()
		}
	})
	if err != nil {
		return err
	}
	if addErr != nil {
		return s.upstream(p.gen, "create mark", addErr)
	}
	return nil
}

// hide sends one batch and detaches the confirmed verses.
func (s *Session) hide(ctx context.Context, p pending, hv []markindex.HighlightedVerse) error {
	if len(hv) == 0 {
		return nil
	}
	ids := make([]string, len(hv))
	for i, v := range hv {
		ids[i] = v.MarkedVerseID
	}
	if err := s.sink.HideMarkedVerses(ctx, ids); err != nil {
		return s.upstream(p.gen, "remove highlights", err)
	}
	return s.commit(p.gen, func(idx *markindex.Index) {
		for _, v := range hv {
			_ = idx.RemoveHighlightedVerse(v.MarkID, v.MarkedVerseID)
		}
	})
}

// refs parses selected verse keys. Keys come from the index and are well
// formed; a bad one is skipped.
func refs(keys []string) []verse.Ref {
	out := make([]verse.Ref, 0, len(keys))
	for _, k := range keys {
		if r, err := verse.Parse(k); err == nil {
			out = append(out, r)
		}
	}
	return out
}
