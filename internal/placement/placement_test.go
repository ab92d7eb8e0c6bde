package placement

import (
	"errors"
	"reflect"
	"testing"

	"github.com/starford/versemark/internal/apperr"
	"github.com/starford/versemark/internal/markindex"
)

func ids(l Layout) []string {
	out := make([]string, len(l.Placements))
	for i, p := range l.Placements {
		out[i] = p.NoteID
	}
	return out
}

func TestWideNoOverlap(t *testing.T) {
	notes := []Note{
		{ID: "a", VerseNumber: 1, Anchor: Rect{Top: 80, Height: 20, Left: 10}, HeaderHeight: 5, BodyHeight: 15},
		{ID: "b", VerseNumber: 2, Anchor: Rect{Top: 120, Height: 20, Left: 10}, HeaderHeight: 5, BodyHeight: 15},
	}
	l := Place(notes, Params{Width: 1200, Mid: 500})

	if l.Mode != ModeWide {
		t.Fatalf("Mode = %s", l.Mode)
	}
	a, _ := l.Get("a")
	b, _ := l.Get("b")
	if a.Offset != 130 || a.Column != ColumnLeft {
		t.Errorf("a = %+v, want offset 130 left", a)
	}
	if b.Offset != 180 {
		t.Errorf("b offset = %v, want 180", b.Offset)
	}
	if l.LeftHeight != 230 || l.RightHeight != 0 {
		t.Errorf("heights = %v/%v, want 230/0", l.LeftHeight, l.RightHeight)
	}
}

func TestWideAnchorBelowPrevious(t *testing.T) {
	notes := []Note{
		{ID: "a", VerseNumber: 1, Anchor: Rect{Top: 0, Height: 10}, HeaderHeight: 10, BodyHeight: 10},
		{ID: "b", VerseNumber: 9, Anchor: Rect{Top: 500, Height: 10}, HeaderHeight: 10, BodyHeight: 10},
	}
	l := Place(notes, Params{Width: 1200, Mid: 500})
	if b, _ := l.Get("b"); b.Offset != 540 {
		t.Errorf("b offset = %v, want 540", b.Offset)
	}
}

func TestWideColumns(t *testing.T) {
	notes := []Note{
		{ID: "r1", VerseNumber: 1, Anchor: Rect{Top: 100, Height: 20, Left: 700}, HeaderHeight: 20},
		{ID: "l1", VerseNumber: 2, Anchor: Rect{Top: 100, Height: 20, Left: 500}, HeaderHeight: 20},
		{ID: "r2", VerseNumber: 3, Anchor: Rect{Top: 110, Height: 20, Left: 700}, HeaderHeight: 20},
	}
	l := Place(notes, Params{Width: 1200, Mid: 500})

	want := map[string]struct {
		col    Column
		offset float64
	}{
		"r1": {ColumnRight, 150},
		"l1": {ColumnLeft, 150},
		"r2": {ColumnRight, 200},
	}
	for id, w := range want {
		p, ok := l.Get(id)
		if !ok {
			t.Fatalf("%s not placed", id)
		}
		if p.Column != w.col || p.Offset != w.offset {
			t.Errorf("%s = %s@%v, want %s@%v", id, p.Column, p.Offset, w.col, w.offset)
		}
	}
	if l.LeftHeight != 200 || l.RightHeight != 250 {
		t.Errorf("heights = %v/%v", l.LeftHeight, l.RightHeight)
	}
}

func TestBodyCapped(t *testing.T) {
	notes := []Note{{ID: "a", VerseNumber: 1, HeaderHeight: 24, BodyHeight: 400}}
	for _, width := range []float64{500, 1200} {
		p, _ := Place(notes, Params{Width: width}).Get("a")
		if p.BodyMaxHeight != MaxBodyHeight || p.Height != 24+MaxBodyHeight {
			t.Errorf("width %v: %+v", width, p)
		}
	}
	p, _ := Place(notes, Params{Width: 1200, MaxBodyHeight: 50}).Get("a")
	if p.BodyMaxHeight != 50 {
		t.Errorf("custom cap = %v", p.BodyMaxHeight)
	}
}

func TestNarrowStableOrder(t *testing.T) {
	notes := []Note{
		{ID: "v5", VerseNumber: 5, Anchor: Rect{Top: 500}},
		{ID: "v2-old", VerseNumber: 2, Anchor: Rect{Top: 200}},
		{ID: "v1", VerseNumber: 1},
		{ID: "v2-new", VerseNumber: 2},
	}
	l := Place(notes, Params{Width: 991, Mid: 400})

	if l.Mode != ModeNarrow {
		t.Fatalf("Mode = %s", l.Mode)
	}
	if got, want := ids(l), []string{"v1", "v2-old", "v2-new", "v5"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	for _, p := range l.Placements {
		if p.Column != ColumnStacked || p.Offset != 0 {
			t.Errorf("%s = %+v", p.NoteID, p)
		}
	}
	if l.LeftHeight != 0 || l.RightHeight != 0 {
		t.Error("narrow layout reported column heights")
	}
	if notes[0].ID != "v5" {
		t.Error("input reordered")
	}
}

func TestClassify(t *testing.T) {
	cases := map[float64]Mode{0: ModeNarrow, 991: ModeNarrow, 992: ModeWide, 1600: ModeWide}
	for w, want := range cases {
		if got := Classify(w); got != want {
			t.Errorf("Classify(%v) = %s, want %s", w, got, want)
		}
	}
}

func TestPlaceEmpty(t *testing.T) {
	l := Place(nil, Params{Width: 1200})
	if len(l.Placements) != 0 || l.LeftHeight != 0 {
		t.Errorf("empty layout = %+v", l)
	}
}

func TestFromAnchors(t *testing.T) {
	anchors := []markindex.NoteAnchor{
		{NoteID: "n1", VersionedVerseID: "kjv.GEN.1.3", VerseNumber: 3},
		{NoteID: "n2", VersionedVerseID: "kjv.GEN.1.1", VerseNumber: 1},
	}
	g := Geometry{
		Anchors: map[string]Rect{
			"kjv.GEN.1.3": {Top: 300, Height: 20},
			"kjv.GEN.1.1": {Top: 100, Height: 20, Left: 800},
		},
		Notes: map[string]Size{"n1": {HeaderHeight: 20, BodyHeight: 40}},
	}
	notes, err := FromAnchors(anchors, g)
	if err != nil {
		t.Fatal(err)
	}
	want := []Note{
		{ID: "n1", VerseNumber: 3, Anchor: Rect{Top: 300, Height: 20}, HeaderHeight: 20, BodyHeight: 40},
		{ID: "n2", VerseNumber: 1, Anchor: Rect{Top: 100, Height: 20, Left: 800}},
	}
	if !reflect.DeepEqual(notes, want) {
		t.Errorf("got %+v", notes)
	}

	delete(g.Anchors, "kjv.GEN.1.1")
	if _, err := FromAnchors(anchors, g); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("missing anchor err = %v", err)
	}
}
