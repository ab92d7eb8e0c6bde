package models

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/versemark/internal/apperr"
	"github.com/starford/versemark/internal/verse"
)

// Location identifies one chapter of one version.
type Location struct {
	VersionID string `json:"versionId"`
	BookID    string `json:"bookId"`
	ChapterID string `json:"chapterId"`
}

// LocationOf returns the chapter that r belongs to.
func LocationOf(r verse.Ref) Location {
	return Location{VersionID: r.VersionID, BookID: r.BookID, ChapterID: r.ChapterID}
}

// Validate checks that every segment is present and free of the verse separator.
func (l Location) Validate() error {
	noSep := validation.NewStringRule(func(s string) bool {
		return !strings.Contains(s, verse.Separator)
	}, "must not contain "+verse.Separator)
	if err := validation.ValidateStruct(&l,
		validation.Field(&l.VersionID, validation.Required, noSep),
		validation.Field(&l.BookID, validation.Required, noSep),
		validation.Field(&l.ChapterID, validation.Required, noSep),
	); err != nil {
		return fmt.Errorf("%w: location: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

// Verse returns the ref of verse n in this chapter.
func (l Location) Verse(n int) verse.Ref {
	return verse.Ref{VersionID: l.VersionID, BookID: l.BookID, ChapterID: l.ChapterID, VerseNumber: n}
}

// Contains reports whether r lies in this chapter.
func (l Location) Contains(r verse.Ref) bool {
	return LocationOf(r) == l
}

// Path returns "version/book/chapter".
func (l Location) Path() string {
	return l.VersionID + "/" + l.BookID + "/" + l.ChapterID
}

func (l Location) String() string {
	return l.Path()
}

// Chapter is the renderable content of one chapter view.
type Chapter struct {
	Location
	Reference string    `json:"reference"`
	Content   string    `json:"content"`
	VerseIDs  []string  `json:"verseIds,omitempty"`
	Checksum  string    `json:"checksum"`
	Prev      *Location `json:"prev,omitempty"`
	Next      *Location `json:"next,omitempty"`
}
