package models

import (
	"fmt"
	"time"

	"github.com/starford/versemark/internal/apperr"
)

// WireMark is the JSON shape of a mark exchanged with the data source.
// Exactly one of Color and Note is set.
type WireMark struct {
	ID           string        `json:"id,omitempty"`
	Color        *string       `json:"color"`
	Note         *string       `json:"note"`
	Reference    string        `json:"reference"`
	MarkedVerses []MarkedVerse `json:"markedVerses"`
	CreatedAt    *time.Time    `json:"createdAt"`
}

// FromWire converts a wire mark into a Mark. Marks with both or neither of
// color and note, with no verses, or with malformed verses are rejected with
// apperr.ErrInvalidInput.
func FromWire(w WireMark) (Mark, error) {
	if (w.Color == nil) == (w.Note == nil) {
		return nil, fmt.Errorf("%w: mark %q must have exactly one of color and note", apperr.ErrInvalidInput, w.ID)
	}
	if len(w.MarkedVerses) == 0 {
		return nil, fmt.Errorf("%w: mark %q has no verses", apperr.ErrInvalidInput, w.ID)
	}
	for i, mv := range w.MarkedVerses {
		if err := mv.Verse.Validate(); err != nil {
			return nil, fmt.Errorf("%w: mark %q verse %d: %w", apperr.ErrInvalidInput, w.ID, i, err)
		}
	}

	base := Base{
		ID:        w.ID,
		Reference: w.Reference,
		Verses:    NewMarkedVerses(w.MarkedVerses...),
	}
	if w.CreatedAt != nil {
		base.CreatedAt = *w.CreatedAt
	}
	if w.Color != nil {
		return &Highlight{Base: base, Color: *w.Color}, nil
	}
	return &Note{Base: base, Text: *w.Note}, nil
}

// ToWire converts m into its wire shape.
func ToWire(m Mark) WireMark {
	b := m.Common()
	w := WireMark{
		ID:           b.ID,
		Reference:    b.Reference,
		MarkedVerses: b.Verses.All(),
	}
	if w.MarkedVerses == nil {
		w.MarkedVerses = []MarkedVerse{}
	}
	if !b.CreatedAt.IsZero() {
		t := b.CreatedAt
		w.CreatedAt = &t
	}
	switch v := m.(type) {
	case *Highlight:
		c := v.Color
		w.Color = &c
	case *Note:
		t := v.Text
		w.Note = &t
	}
	return w
}

// ToWireList converts marks in order.
func ToWireList(marks []Mark) []WireMark {
	out := make([]WireMark, len(marks))
	for i, m := range marks {
		out[i] = ToWire(m)
	}
	return out
}

// DraftFromWire converts a create request body into a Draft.
func DraftFromWire(w WireMark) (Draft, error) {
	if (w.Color == nil) == (w.Note == nil) {
		return Draft{}, fmt.Errorf("%w: mark must have exactly one of color and note", apperr.ErrInvalidInput)
	}
	d := Draft{Kind: KindNote}
	if w.Color != nil {
		d = Draft{Kind: KindHighlight, Color: *w.Color}
	} else {
		d.Text = *w.Note
	}
	for _, mv := range w.MarkedVerses {
		d.Verses = append(d.Verses, mv.Verse)
	}
	return d, d.Validate()
}

// WireDraft converts d into a create request body.
func WireDraft(d Draft) WireMark {
	w := WireMark{MarkedVerses: make([]MarkedVerse, len(d.Verses))}
	for i, r := range d.Verses {
		w.MarkedVerses[i] = MarkedVerse{Verse: r}
	}
	switch d.Kind {
	case KindHighlight:
		c := d.Color
		w.Color = &c
	case KindNote:
		t := d.Text
		w.Note = &t
	}
	return w
}
