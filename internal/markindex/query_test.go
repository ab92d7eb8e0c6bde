package markindex

import (
	"reflect"
	"testing"
)

func TestSelectedMarksDeduplicates(t *testing.T) {
	x := New(nil)
	mustAdd(t, x, highlight("m", "#ffff00", verses("a", 1, "b", 2)))
	x.Select(key(1))
	x.Select(key(2))

	sel := x.SelectedMarks()
	if got := markIDs(sel.HighlightsOf("#ffff00")); !reflect.DeepEqual(got, []string{"m"}) {
		t.Errorf("yellow = %v, want [m]", got)
	}
	if len(sel.Notes) != 0 {
		t.Errorf("notes = %v", markIDs(sel.Notes))
	}
}

func TestSelectedMarksOrder(t *testing.T) {
	x := New(nil)
	mustAdd(t, x, highlight("g", "#00ff00", verses("a", 2)))
	mustAdd(t, x, highlight("y", "#ffff00", verses("b", 1, "c", 2)))
	mustAdd(t, x, note("n1", "one", verses("d", 1, "e", 2)))
	mustAdd(t, x, note("n2", "two", verses("f", 2)))

	x.Select(key(1))
	x.Select(key(2))
	sel := x.SelectedMarks()

	if got := sel.Colors(); !reflect.DeepEqual(got, []string{"#ffff00", "#00ff00"}) {
		t.Errorf("Colors = %v", got)
	}
	if got := markIDs(sel.Notes); !reflect.DeepEqual(got, []string{"n1", "n2"}) {
		t.Errorf("Notes = %v", got)
	}
	if !sel.HasColor("#00ff00") || sel.HasColor("#0000ff") {
		t.Error("HasColor mismatch")
	}
}

func TestSelectedMarksEmpty(t *testing.T) {
	x := New(nil)
	mustAdd(t, x, highlight("y", "#ffff00", verses("a", 1)))
	if !x.SelectedMarks().Empty() {
		t.Error("no selection should give no marks")
	}
	x.Select(key(5))
	if !x.SelectedMarks().Empty() {
		t.Error("unmarked verse should give no marks")
	}
}

func TestSelectedHighlightedVerses(t *testing.T) {
	x := New(nil)
	mustAdd(t, x, highlight("y", "#ffff00", verses("y1", 1, "y2", 2, "y3", 3)))
	mustAdd(t, x, highlight("g", "#00ff00", verses("g2", 2)))
	selection := []string{key(1), key(2)}
	sel := x.MarksInVerses(selection)

	want := []HighlightedVerse{
		{MarkID: "y", MarkedVerseID: "y1"},
		{MarkID: "y", MarkedVerseID: "y2"},
		{MarkID: "g", MarkedVerseID: "g2"},
	}
	if got := sel.SelectedHighlightedVerses(selection, ""); !reflect.DeepEqual(got, want) {
		t.Errorf("all colors = %+v, want %+v", got, want)
	}
	if got := sel.SelectedHighlightedVerses(selection, "#00ff00"); !reflect.DeepEqual(got, want[2:]) {
		t.Errorf("green = %+v", got)
	}
}
