// Package verse provides canonical identifiers for scripture verses.
//
// A VerseID is "book.chapter.verse" and does not depend on the translation;
// a VersionedVerseID prefixes it with the version: "version.book.chapter.verse".
package verse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/versemark/internal/apperr"
)

// Separator joins the segments of verse identifiers.
const Separator = "."

var verseNumberRe = regexp.MustCompile(`^\d+$`)

// Ref identifies one verse in one version.
type Ref struct {
	VersionID   string `json:"versionId"`
	BookID      string `json:"bookId"`
	ChapterID   string `json:"chapterId"`
	VerseNumber int    `json:"verseNumber"`
}

// Parse splits a versioned verse identifier into its four segments.
// Any violation is reported as apperr.ErrMalformedIdentifier.
func Parse(versionedVerseID string) (Ref, error) {
	parts := strings.Split(versionedVerseID, Separator)
	if len(parts) != 4 {
		return Ref{}, fmt.Errorf("%w: %q: want 4 segments, got %d",
			apperr.ErrMalformedIdentifier, versionedVerseID, len(parts))
	}
	for _, p := range parts {
		if p == "" {
			return Ref{}, fmt.Errorf("%w: %q: empty segment", apperr.ErrMalformedIdentifier, versionedVerseID)
		}
	}
	if !verseNumberRe.MatchString(parts[3]) {
		return Ref{}, fmt.Errorf("%w: %q: verse number must be numeric", apperr.ErrMalformedIdentifier, versionedVerseID)
	}
	n, err := strconv.Atoi(parts[3])
	if err != nil || n < 1 {
		return Ref{}, fmt.Errorf("%w: %q: verse number must be a positive integer", apperr.ErrMalformedIdentifier, versionedVerseID)
	}
	return Ref{
		VersionID:   parts[0],
		BookID:      parts[1],
		ChapterID:   parts[2],
		VerseNumber: n,
	}, nil
}

// VerseID returns "book.chapter.verse".
func (r Ref) VerseID() string {
	return strings.Join([]string{r.BookID, r.ChapterID, strconv.Itoa(r.VerseNumber)}, Separator)
}

// VersionedID returns "version.book.chapter.verse".
func (r Ref) VersionedID() string {
	return Versioned(r.VersionID, r.VerseID())
}

// Validate reports whether r can round-trip through Parse.
func (r Ref) Validate() error {
	segments := []struct{ name, value string }{
		{"versionId", r.VersionID},
		{"bookId", r.BookID},
		{"chapterId", r.ChapterID},
	}
	for _, s := range segments {
		name, seg := s.name, s.value
		if seg == "" {
			return fmt.Errorf("%w: %s is empty", apperr.ErrMalformedIdentifier, name)
		}
		if strings.Contains(seg, Separator) {
			return fmt.Errorf("%w: %s %q contains %q", apperr.ErrMalformedIdentifier, name, seg, Separator)
		}
	}
	if r.VerseNumber < 1 {
		return fmt.Errorf("%w: verse number %d is not positive", apperr.ErrMalformedIdentifier, r.VerseNumber)
	}
	return nil
}

// SameChapter reports whether both refs belong to the same version, book and chapter.
func (r Ref) SameChapter(o Ref) bool {
	return r.VersionID == o.VersionID && r.BookID == o.BookID && r.ChapterID == o.ChapterID
}

func (r Ref) String() string {
	return r.VersionedID()
}

// Versioned prefixes a verse id with a version id. The verse id is not checked.
func Versioned(versionID, verseID string) string {
	return versionID + Separator + verseID
}
