package mcpserver

// VerseIDContract describes how verses, chapters and marks are identified
// and what a valid highlight or note looks like.
const VerseIDContract = `# Versemark Verse Identifier Contract

## Identifiers

- **Location** – one chapter of one version: ` + "`versionId`, `bookId`, `chapterId`" + `.
  Segments are non-empty and never contain a dot.
- **Verse ID** – ` + "`book.chapter.verse`" + `, e.g. ` + "`GEN.1.3`" + `. Independent of the version.
- **Versioned verse ID** – ` + "`version.book.chapter.verse`" + `, e.g. ` + "`kjv.GEN.1.3`" + `.
  Exactly four segments; the verse number is a positive integer.
- **Mark ID** – opaque string assigned by the server.
- **Marked verse ID** – opaque string naming one verse of one mark. Removing
  verses from a highlight uses these ids, not verse ids.

## Verse lists

Tools that take ` + "`verses`" + ` accept verse numbers of the given chapter as a
comma separated list with optional ranges: ` + "`1,3-5`" + `. Duplicates are ignored.

## Highlights

- ` + "`color`" + ` is a six digit hex color with or without a leading ` + "`#`" + `, e.g. ` + "`#ffee00`" + `.
- A verse shows the color of the oldest highlight covering it.
- Highlighting verses that already carry the same color removes that color
  from them; another color is replaced.

## Notes

- ` + "`text`" + ` is 1 to 1024 characters.
- A note is attached to the verses it was created on and is shown next to
  its first visible verse.

## Reference strings

Marks carry a display reference such as ` + "`GEN 1:1-3,5; 2:4`" + `, built from
their verses. Consecutive verses collapse into ranges and chapters are joined
with ` + "`; `" + `.
`
