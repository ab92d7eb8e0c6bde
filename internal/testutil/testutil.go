// Package testutil provides shared test helpers for setting up content
// directories and mark databases.
package testutil

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/starford/versemark/internal/markstore"
	"github.com/starford/versemark/internal/models"
	"github.com/starford/versemark/internal/storage"
)

// Gen1 is the chapter seeded by SeedChapter in most tests.
var Gen1 = models.Location{VersionID: "kjv", BookID: "GEN", ChapterID: "1"}

// TestDB creates a temporary mark database that is automatically cleaned up.
func TestDB(t *testing.T) *markstore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "versemark-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := markstore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestContent creates a temporary content directory with a storage.Provider.
func TestContent(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// ChapterHTML renders a chapter file with the given number of verses.
func ChapterHTML(loc models.Location, verses int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "---\nreference: %s %s\n---\n<p>", loc.BookID, loc.ChapterID)
	for n := 1; n <= verses; n++ {
		fmt.Fprintf(&b, `<span data-verse-id="%s">verse %d</span> `, loc.Verse(n).VerseID(), n)
	}
	b.WriteString("</p>\n")
	return b.String()
}

// SeedChapter writes a chapter file with the given number of verses.
func SeedChapter(t *testing.T, store storage.Provider, loc models.Location, verses int) {
	t.Helper()
	p, err := storage.ChapterPath(loc)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Write(p, []byte(ChapterHTML(loc, verses))); err != nil {
		t.Fatal(err)
	}
}
