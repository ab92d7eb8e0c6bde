package placement

import (
	"fmt"

	"github.com/starford/versemark/internal/apperr"
	"github.com/starford/versemark/internal/markindex"
)

// Size is the measured size of a rendered note.
type Size struct {
	HeaderHeight float64 `json:"headerHeight"`
	BodyHeight   float64 `json:"bodyHeight"`
}

// Geometry holds what the presentation layer measured: the anchor rect of
// every verse that carries a note, and the size of every note.
type Geometry struct {
	Anchors map[string]Rect `json:"anchors"`
	Notes   map[string]Size `json:"notes"`
}

// FromAnchors joins note anchors with measured geometry. An anchor verse
// without a rect is a caller error; a note without a size counts as zero
// height.
func FromAnchors(anchors []markindex.NoteAnchor, g Geometry) ([]Note, error) {
	out := make([]Note, 0, len(anchors))
	for _, a := range anchors {
		rect, ok := g.Anchors[a.VersionedVerseID]
		if !ok {
			return nil, fmt.Errorf("note %q: no anchor geometry for %s: %w",
				a.NoteID, a.VersionedVerseID, apperr.ErrInvalidInput)
		}
		size := g.Notes[a.NoteID]
		out = append(out, Note{
			ID:           a.NoteID,
			VerseNumber:  a.VerseNumber,
			Anchor:       rect,
			HeaderHeight: size.HeaderHeight,
			BodyHeight:   size.BodyHeight,
		})
	}
	return out, nil
}
