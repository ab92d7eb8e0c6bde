package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/starford/versemark/internal/apperr"
	"github.com/starford/versemark/internal/checksum"
	"github.com/starford/versemark/internal/models"
	"github.com/starford/versemark/internal/parser"
)

// ChapterPath returns the file path of a chapter relative to the root.
func ChapterPath(loc models.Location) (string, error) {
	if err := loc.Validate(); err != nil {
		return "", err
	}
	for _, seg := range []string{loc.VersionID, loc.BookID, loc.ChapterID} {
		if strings.ContainsAny(seg, `/\`) {
			return "", fmt.Errorf("%w: location segment %q", apperr.ErrInvalidInput, seg)
		}
	}
	return loc.Path() + ChapterExt, nil
}

// LocationFromPath is the inverse of ChapterPath.
func LocationFromPath(p string) (models.Location, bool) {
	if !IsChapterFile(p) {
		return models.Location{}, false
	}
	parts := strings.Split(strings.TrimSuffix(path.Clean(p), ChapterExt), "/")
	if len(parts) != 3 {
		return models.Location{}, false
	}
	loc := models.Location{VersionID: parts[0], BookID: parts[1], ChapterID: parts[2]}
	if loc.Validate() != nil {
		return models.Location{}, false
	}
	return loc, true
}

// Library serves parsed chapters and caches them until invalidated.
type Library struct {
	store Provider

	mu    sync.RWMutex
	cache map[models.Location]*models.Chapter
}

// NewLibrary returns a Library reading from store.
func NewLibrary(store Provider) *Library {
	return &Library{store: store, cache: make(map[models.Location]*models.Chapter)}
}

// Chapter returns the chapter at loc. A missing file is apperr.ErrNotFound.
func (l *Library) Chapter(_ context.Context, loc models.Location) (*models.Chapter, error) {
	l.mu.RLock()
	c, ok := l.cache[loc]
	l.mu.RUnlock()
	if ok {
		return copyChapter(c), nil
	}

	p, err := ChapterPath(loc)
	if err != nil {
		return nil, err
	}
	data, err := l.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("chapter %s: %w", loc, apperr.ErrNotFound)
		}
		return nil, err
	}
	c, err = buildChapter(loc, data)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[loc] = c
	l.mu.Unlock()
	return copyChapter(c), nil
}

// Invalidate drops the cached copy of one chapter.
func (l *Library) Invalidate(loc models.Location) {
	l.mu.Lock()
	delete(l.cache, loc)
	l.mu.Unlock()
}

// Reset drops every cached chapter.
func (l *Library) Reset() {
	l.mu.Lock()
	l.cache = make(map[models.Location]*models.Chapter)
	l.mu.Unlock()
}

// Cached returns the number of cached chapters.
func (l *Library) Cached() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}

// Warm walks the content tree and loads every chapter into the cache.
// Files that fail to load are logged and skipped.
func (l *Library) Warm(ctx context.Context, logger *slog.Logger) (int, error) {
	files, err := l.store.List("")
	if err != nil {
		return 0, err
	}
	loaded := 0
	for _, f := range files {
		loc, ok := LocationFromPath(f.Path)
		if !ok {
			logger.Warn("warm: not a chapter path", slog.String("path", f.Path))
			continue
		}
		if _, err := l.Chapter(ctx, loc); err != nil {
			logger.Warn("warm: load failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		loaded++
	}
	return loaded, nil
}

func buildChapter(loc models.Location, data []byte) (*models.Chapter, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	ref := res.Frontmatter.Reference
	if ref == "" {
		ref = loc.BookID + " " + loc.ChapterID
	}
	return &models.Chapter{
		Location:  loc,
		Reference: ref,
		Content:   res.Body,
		VerseIDs:  res.VerseIDs,
		Checksum:  checksum.Sum(data),
		Prev:      parseLink(res.Frontmatter.Prev),
		Next:      parseLink(res.Frontmatter.Next),
	}, nil
}

// parseLink reads a "version/book/chapter" link. Anything else is no link.
func parseLink(s string) *models.Location {
	if s == "" {
		return nil
	}
	loc, ok := LocationFromPath(strings.Trim(s, "/") + ChapterExt)
	if !ok {
		return nil
	}
	return &loc
}

func copyChapter(c *models.Chapter) *models.Chapter {
	cp := *c
	cp.VerseIDs = slices.Clone(c.VerseIDs)
	if c.Prev != nil {
		prev := *c.Prev
		cp.Prev = &prev
	}
	if c.Next != nil {
		next := *c.Next
		cp.Next = &next
	}
	return &cp
}
