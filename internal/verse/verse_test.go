package verse

import (
	"errors"
	"reflect"
	"testing"

	"github.com/starford/versemark/internal/apperr"
)

func TestParseRoundTrip(t *testing.T) {
	refs := []Ref{
		{VersionID: "kjv", BookID: "GEN", ChapterID: "1", VerseNumber: 1},
		{VersionID: "de4e12af7f28f599-02", BookID: "JHN", ChapterID: "3", VerseNumber: 16},
		{VersionID: "a", BookID: "b", ChapterID: "intro", VerseNumber: 176},
	}
	for _, r := range refs {
		got, err := Parse(r.VersionedID())
		if err != nil {
			t.Fatalf("Parse(%q): %v", r.VersionedID(), err)
		}
		if got != r {
			t.Errorf("round trip = %+v, want %+v", got, r)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	cases := []string{
		"",
		"kjv.GEN.1",
		"kjv.GEN.1.2.3",
		"kjv..1.2",
		".GEN.1.2",
		"kjv.GEN.1.",
		"kjv.GEN.1.x",
		"kjv.GEN.1.-2",
		"kjv.GEN.1.0",
		"kjv.GEN.1.1a",
	}
	for _, c := range cases {
		if _, err := Parse(c); !errors.Is(err, apperr.ErrMalformedIdentifier) {
			t.Errorf("Parse(%q) err = %v, want ErrMalformedIdentifier", c, err)
		}
	}
}

func TestIdentifiers(t *testing.T) {
	r := Ref{VersionID: "kjv", BookID: "PSA", ChapterID: "23", VerseNumber: 4}
	if got := r.VerseID(); got != "PSA.23.4" {
		t.Errorf("VerseID = %q", got)
	}
	if got := r.VersionedID(); got != "kjv.PSA.23.4" {
		t.Errorf("VersionedID = %q", got)
	}
	if got := Versioned("web", r.VerseID()); got != "web.PSA.23.4" {
		t.Errorf("Versioned = %q", got)
	}
}

func TestValidate(t *testing.T) {
	good := Ref{VersionID: "kjv", BookID: "GEN", ChapterID: "1", VerseNumber: 1}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	bad := []Ref{
		{BookID: "GEN", ChapterID: "1", VerseNumber: 1},
		{VersionID: "kjv", BookID: "G.EN", ChapterID: "1", VerseNumber: 1},
		{VersionID: "kjv", BookID: "GEN", ChapterID: "1", VerseNumber: 0},
	}
	for _, r := range bad {
		if err := r.Validate(); !errors.Is(err, apperr.ErrMalformedIdentifier) {
			t.Errorf("Validate(%+v) = %v", r, err)
		}
	}
}

func TestFormatReference(t *testing.T) {
	v := func(book, chapter string, n int) Ref {
		return Ref{VersionID: "kjv", BookID: book, ChapterID: chapter, VerseNumber: n}
	}
	cases := []struct {
		name string
		refs []Ref
		want string
	}{
		{"single", []Ref{v("GEN", "1", 1)}, "GEN 1:1"},
		{"run", []Ref{v("GEN", "1", 3), v("GEN", "1", 1), v("GEN", "1", 2)}, "GEN 1:1-3"},
		{"runs", []Ref{v("GEN", "1", 1), v("GEN", "1", 2), v("GEN", "1", 3), v("GEN", "1", 5)}, "GEN 1:1-3,5"},
		{"chapters", []Ref{v("GEN", "2", 4), v("GEN", "1", 1), v("GEN", "10", 1)}, "GEN 1:1; 2:4; 10:1"},
		{"books", []Ref{v("GEN", "1", 1), v("EXO", "1", 1)}, "GEN 1:1; EXO 1:1"},
		{"versions", []Ref{v("GEN", "1", 1), {VersionID: "web", BookID: "GEN", ChapterID: "1", VerseNumber: 1}}, "GEN 1:1 (kjv); GEN 1:1 (web)"},
		{"empty", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatReference(tc.refs); got != tc.want {
				t.Errorf("FormatReference = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseVerseList(t *testing.T) {
	got, err := ParseVerseList("3, 1-2,2,5-6")
	if err != nil {
		t.Fatalf("ParseVerseList: %v", err)
	}
	if want := []int{3, 1, 2, 5, 6}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, err := ParseVerseList("1-200"); err != nil || len(got) != MaxRangeSpan {
		t.Errorf("ParseVerseList(1-200) = %d verses, %v", len(got), err)
	}
	for _, bad := range []string{"", "a", "0", "5-3", "1-x", "1-201", "1-999999999"} {
		if _, err := ParseVerseList(bad); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("ParseVerseList(%q) err = %v", bad, err)
		}
	}
}
