// Package placement lays out note annotations next to the verses they
// belong to.
//
// Wide viewports get two side columns; a note goes to the column on the same
// side as its anchor and never starts above the anchor's bottom or overlaps
// the previous note of its column. Narrow viewports stack every note in one
// panel in verse order. The engine works on synthetic geometry and performs
// no measuring of its own.
package placement

import (
	"sort"
)

// Defaults used when a Params field is zero.
const (
	Breakpoint    = 992
	Gap           = 30
	MaxBodyHeight = 150
)

// Mode is the layout mode chosen for a viewport width.
type Mode string

// Layout modes.
const (
	ModeNarrow Mode = "narrow"
	ModeWide   Mode = "wide"
)

// Column is where a note is rendered.
type Column string

// Columns.
const (
	ColumnLeft    Column = "left"
	ColumnRight   Column = "right"
	ColumnStacked Column = "stacked"
)

// Rect is the geometry of a note's anchor element.
type Rect struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
	Left   float64 `json:"left"`
}

// Bottom returns Top+Height.
func (r Rect) Bottom() float64 {
	return r.Top + r.Height
}

// Note is one note to place.
type Note struct {
	ID           string  `json:"id"`
	VerseNumber  int     `json:"verseNumber"`
	Anchor       Rect    `json:"anchor"`
	HeaderHeight float64 `json:"headerHeight"`
	BodyHeight   float64 `json:"bodyHeight"`
}

// Params describes the viewport.
type Params struct {
	Width         float64 `json:"width"`
	Mid           float64 `json:"mid"`
	Gap           float64 `json:"gap,omitempty"`
	MaxBodyHeight float64 `json:"maxBodyHeight,omitempty"`
	Breakpoint    float64 `json:"breakpoint,omitempty"`
}

func (p Params) withDefaults() Params {
	if p.Gap == 0 {
		p.Gap = Gap
	}
	if p.MaxBodyHeight == 0 {
		p.MaxBodyHeight = MaxBodyHeight
	}
	if p.Breakpoint == 0 {
		p.Breakpoint = Breakpoint
	}
	return p
}

// Placement is the position assigned to one note. Offset is only set in
// wide mode.
type Placement struct {
	NoteID        string  `json:"noteId"`
	Column        Column  `json:"column"`
	Offset        float64 `json:"offset,omitempty"`
	Height        float64 `json:"height"`
	BodyMaxHeight float64 `json:"bodyMaxHeight"`
}

// Layout is the result of Place. Column heights are zero in narrow mode.
type Layout struct {
	Mode        Mode        `json:"mode"`
	Placements  []Placement `json:"placements"`
	LeftHeight  float64     `json:"leftHeight"`
	RightHeight float64     `json:"rightHeight"`
}

// Get returns the placement of a note.
func (l Layout) Get(noteID string) (Placement, bool) {
	for _, p := range l.Placements {
		if p.NoteID == noteID {
			return p, true
		}
	}
	return Placement{}, false
}

// Classify returns the mode for a viewport width using the default breakpoint.
func Classify(width float64) Mode {
	return Params{Width: width}.withDefaults().mode()
}

func (p Params) mode() Mode {
	if p.Width < p.Breakpoint {
		return ModeNarrow
	}
	return ModeWide
}

// Place assigns a column and offset to every note. notes must be in
// insertion order; equal verse numbers keep that order. notes is not
// modified.
func Place(notes []Note, params Params) Layout {
	params = params.withDefaults()

	sorted := make([]Note, len(notes))
	copy(sorted, notes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].VerseNumber < sorted[j].VerseNumber
	})

	layout := Layout{
		Mode:       params.mode(),
		Placements: make([]Placement, 0, len(sorted)),
	}

	if layout.Mode == ModeNarrow {
		for _, n := range sorted {
			body := min(n.BodyHeight, params.MaxBodyHeight)
			layout.Placements = append(layout.Placements, Placement{
				NoteID:        n.ID,
				Column:        ColumnStacked,
				Height:        n.HeaderHeight + body,
				BodyMaxHeight: body,
			})
		}
		return layout
	}

	var left, right column
	for _, n := range sorted {
		col, c := ColumnLeft, &left
		if n.Anchor.Left > params.Mid {
			col, c = ColumnRight, &right
		}

		body := min(n.BodyHeight, params.MaxBodyHeight)
		h := n.HeaderHeight + body
		offset := n.Anchor.Bottom() + params.Gap
		if c.used {
			offset = max(offset, c.bottom+params.Gap)
		}
		c.used, c.bottom = true, offset+h

		layout.Placements = append(layout.Placements, Placement{
			NoteID:        n.ID,
			Column:        col,
			Offset:        offset,
			Height:        h,
			BodyMaxHeight: body,
		})
	}
	if left.used {
		layout.LeftHeight = left.bottom + params.Gap
	}
	if right.used {
		layout.RightHeight = right.bottom + params.Gap
	}
	return layout
}

// column tracks the bottom edge of the last note placed in it.
type column struct {
	used   bool
	bottom float64
}
