package markindex

import (
	"github.com/starford/versemark/internal/models"
)

// ColorMarks lists the highlights of one color.
type ColorMarks struct {
	Color string
	Marks []*models.Highlight
}

// VerseMarks is the read-only aggregation for one verse.
type VerseMarks struct {
	VersionedVerseID string
	Highlights       []ColorMarks
	Notes            []*models.Note
}

// Color returns the highlight color rendered on the verse, if any.
func (v VerseMarks) Color() (string, bool) {
	if len(v.Highlights) == 0 {
		return "", false
	}
	return v.Highlights[0].Color, true
}

// NoteAnchor places one note at the first verse that carries it.
type NoteAnchor struct {
	NoteID           string
	VersionedVerseID string
	VerseNumber      int
}

// Snapshot returns a copy of the per-verse aggregation in the order verse
// buckets were created. A mark spanning several verses is the same copy in
// each of them.
func (x *Index) Snapshot() []VerseMarks {
	copies := make(map[string]models.Mark, len(x.marks))
	cp := func(m models.Mark) models.Mark {
		id := m.Common().ID
		c, ok := copies[id]
		if !ok {
			c = models.Clone(m)
			copies[id] = c
		}
		return c
	}

	out := make([]VerseMarks, 0, x.byVerse.Len())
	for p := x.byVerse.Oldest(); p != nil; p = p.Next() {
		vm := VerseMarks{VersionedVerseID: p.Key}
		for c := p.Value.highlights.Oldest(); c != nil; c = c.Next() {
			cm := ColorMarks{Color: c.Key}
			for h := c.Value.Oldest(); h != nil; h = h.Next() {
				cm.Marks = append(cm.Marks, cp(h.Value).(*models.Highlight))
			}
			vm.Highlights = append(vm.Highlights, cm)
		}
		for n := p.Value.notes.Oldest(); n != nil; n = n.Next() {
			vm.Notes = append(vm.Notes, cp(n.Value).(*models.Note))
		}
		out = append(out, vm)
	}
	return out
}

// HighlightColor returns the color rendered on a verse: the color first
// applied to it among those still present.
func (x *Index) HighlightColor(versionedVerseID string) (string, bool) {
	b, ok := x.byVerse.Get(versionedVerseID)
	if !ok || b.highlights.Len() == 0 {
		return "", false
	}
	return b.highlights.Oldest().Key, true
}

// NoteAnchors returns every note once, anchored at the first verse bucket
// that holds it. Notes come out in bucket order and, within a bucket, in
// insertion order.
func (x *Index) NoteAnchors() []NoteAnchor {
	var out []NoteAnchor
	seen := make(map[string]struct{})
	for p := x.byVerse.Oldest(); p != nil; p = p.Next() {
		for n := p.Value.notes.Oldest(); n != nil; n = n.Next() {
			if _, ok := seen[n.Key]; ok {
				continue
			}
			seen[n.Key] = struct{}{}
			mv, _ := n.Value.Verses.Get(p.Key)
			out = append(out, NoteAnchor{
				NoteID:           n.Key,
				VersionedVerseID: p.Key,
				VerseNumber:      mv.Verse.VerseNumber,
			})
		}
	}
	return out
}
