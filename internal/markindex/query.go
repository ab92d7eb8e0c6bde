package markindex

import (
	"github.com/starford/versemark/internal/models"
)

// Selected is the set of marks touching a group of verses. Every mark
// appears once however many of the verses it covers.
type Selected struct {
	Highlights []ColorMarks
	Notes      []*models.Note
}

// Empty reports whether no mark touches the verses.
func (s Selected) Empty() bool {
	return len(s.Highlights) == 0 && len(s.Notes) == 0
}

// Colors returns the highlight colors present, in first-seen order.
func (s Selected) Colors() []string {
	out := make([]string, len(s.Highlights))
	for i, cm := range s.Highlights {
		out[i] = cm.Color
	}
	return out
}

// HasColor reports whether a highlight of color is present.
func (s Selected) HasColor(color string) bool {
	for _, cm := range s.Highlights {
		if cm.Color == color {
			return true
		}
	}
	return false
}

// HighlightsOf returns the highlights of one color.
func (s Selected) HighlightsOf(color string) []*models.Highlight {
	for _, cm := range s.Highlights {
		if cm.Color == color {
			return cm.Marks
		}
	}
	return nil
}

// HighlightedVerse names one marked verse of one highlight.
type HighlightedVerse struct {
	MarkID        string
	MarkedVerseID string
}

// SelectedHighlightedVerses lists, for the given verses, the marked verses of
// every highlight present, in highlight order. An empty color means every
// color.
func (s Selected) SelectedHighlightedVerses(versionedVerseIDs []string, color string) []HighlightedVerse {
	var out []HighlightedVerse
	for _, cm := range s.Highlights {
		if color != "" && cm.Color != color {
			continue
		}
		for _, h := range cm.Marks {
			for _, key := range versionedVerseIDs {
				if mv, ok := h.Verses.Get(key); ok && mv.ID != "" {
					out = append(out, HighlightedVerse{MarkID: h.ID, MarkedVerseID: mv.ID})
				}
			}
		}
	}
	return out
}

// SelectedMarks returns the marks touching the current selection.
func (x *Index) SelectedMarks() Selected {
	return x.MarksInVerses(x.Selection())
}

// MarksInVerses returns the marks touching any of the given verses. Colors
// and marks are ordered as first met walking the verses in the given order.
func (x *Index) MarksInVerses(versionedVerseIDs []string) Selected {
	var sel Selected
	colorPos := make(map[string]int)
	seen := make(map[string]struct{})

	for _, key := range versionedVerseIDs {
		b, ok := x.byVerse.Get(key)
		if !ok {
			continue
		}
		for c := b.highlights.Oldest(); c != nil; c = c.Next() {
			for h := c.Value.Oldest(); h != nil; h = h.Next() {
				if _, dup := seen[h.Key]; dup {
					continue
				}
				seen[h.Key] = struct{}{}
				pos, ok := colorPos[c.Key]
				if !ok {
					pos = len(sel.Highlights)
					colorPos[c.Key] = pos
					sel.Highlights = append(sel.Highlights, ColorMarks{Color: c.Key})
				}
				sel.Highlights[pos].Marks = append(sel.Highlights[pos].Marks, models.Clone(h.Value).(*models.Highlight))
			}
		}
		for n := b.notes.Oldest(); n != nil; n = n.Next() {
			if _, dup := seen[n.Key]; dup {
				continue
			}
			seen[n.Key] = struct{}{}
			sel.Notes = append(sel.Notes, models.Clone(n.Value).(*models.Note))
		}
	}
	return sel
}
