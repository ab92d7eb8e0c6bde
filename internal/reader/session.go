// Package reader holds the controlling logic of one reader: the chapter
// being viewed, its mark index, the verse selection, and the highlight and
// note actions that go through the mutation sink.
//
// The index is only mutated after the sink confirms an operation. Chapter
// navigation is tagged with a generation number; a fetch or mutation that
// completes after the reader moved on is dropped with apperr.ErrStaleView.
package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/starford/versemark/internal/apperr"
	"github.com/starford/versemark/internal/markindex"
	"github.com/starford/versemark/internal/models"
	"github.com/starford/versemark/internal/placement"
	"github.com/starford/versemark/internal/verse"
)

// Source provides chapter content and marks.
type Source interface {
	Chapter(ctx context.Context, loc models.Location) (*models.Chapter, error)
	ChapterMarks(ctx context.Context, loc models.Location) ([]models.Mark, error)
}

// Sink accepts mark mutations. Every call is all-or-nothing.
type Sink interface {
	CreateMark(ctx context.Context, loc models.Location, d models.Draft) (models.Mark, error)
	DeleteMark(ctx context.Context, id string) (models.Mark, error)
	HideMarkedVerses(ctx context.Context, ids []string) error
	PatchNote(ctx context.Context, id, text string) error
}

// Notifier shows upstream failures to the reader.
type Notifier interface {
	NotifyError(err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(err error)

// NotifyError calls f(err).
func (f NotifierFunc) NotifyError(err error) { f(err) }

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithNotifier sets where upstream failures are reported.
func WithNotifier(n Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// WithPlacementParams sets the gap, body cap and breakpoint used by Layout.
func WithPlacementParams(p placement.Params) Option {
	return func(s *Session) { s.params = p }
}

// Session is one reader's view. It is safe for concurrent use.
type Session struct {
	source   Source
	sink     Sink
	logger   *slog.Logger
	notifier Notifier
	params   placement.Params

	mu      sync.Mutex
	gen     uint64
	chapter *models.Chapter
	index   *markindex.Index
}

// New creates a session with no chapter loaded.
func New(source Source, sink Sink, opts ...Option) *Session {
	s := &Session{source: source, sink: sink, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GoTo loads a chapter and its marks and makes it the current view. If
// another GoTo started meanwhile, the result is dropped and ErrStaleView is
// returned.
func (s *Session) GoTo(ctx context.Context, loc models.Location) error {
	if err := loc.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	ch, err := s.source.Chapter(ctx, loc)
	if err != nil {
		return s.upstream(gen, "load chapter", err)
	}
	marks, err := s.source.ChapterMarks(ctx, loc)
	if err != nil {
		return s.upstream(gen, "load marks", err)
	}

	idx := markindex.New(s.logger)
	if err := idx.ReplaceAll(marks); err != nil {
		return s.upstream(gen, "load marks", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.logger.Debug("dropping stale chapter", slog.String("chapter", loc.Path()))
		return fmt.Errorf("chapter %s: %w", loc, apperr.ErrStaleView)
	}
	s.chapter = ch
	s.index = idx
	s.logger.Info("chapter loaded", slog.String("chapter", loc.Path()), slog.Int("marks", idx.Len()))
	return nil
}

// Location returns the current chapter location.
func (s *Session) Location() (models.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chapter == nil {
		return models.Location{}, false
	}
	return s.chapter.Location, true
}

// Chapter returns a copy of the current chapter.
func (s *Session) Chapter() (*models.Chapter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chapter == nil {
		return nil, false
	}
	c := *s.chapter
	c.VerseIDs = slices.Clone(c.VerseIDs)
	return &c, true
}

// Marks returns the per-verse marks of the current view.
func (s *Session) Marks() []markindex.VerseMarks {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil
	}
	return s.index.Snapshot()
}

// HighlightColor returns the color rendered on a verse of the current view.
func (s *Session) HighlightColor(verseID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return "", false
	}
	return s.index.HighlightColor(s.versioned(verseID))
}

// Layout places the notes of the current view for a viewport.
func (s *Session) Layout(g placement.Geometry, width, mid float64) (placement.Layout, error) {
	s.mu.Lock()
	if s.index == nil {
		s.mu.Unlock()
		return placement.Layout{}, errNoView
	}
	anchors := s.index.NoteAnchors()
	s.mu.Unlock()

	notes, err := placement.FromAnchors(anchors, g)
	if err != nil {
		return placement.Layout{}, err
	}
	p := s.params
	p.Width, p.Mid = width, mid
	return placement.Place(notes, p), nil
}

var errNoView = fmt.Errorf("no chapter loaded: %w", apperr.ErrInvalidInput)

// view returns the index and generation of the current view. The caller
// holds s.mu.
func (s *Session) view() (*markindex.Index, uint64, error) {
	if s.index == nil {
		return nil, 0, errNoView
	}
	return s.index, s.gen, nil
}

// versioned qualifies a verse id with the current version. The caller
// holds s.mu.
func (s *Session) versioned(verseID string) string {
	return verse.Versioned(s.chapter.VersionID, verseID)
}

// upstream wraps and reports a failed collaborator call. A failure of a
// superseded view is reported as stale instead.
func (s *Session) upstream(gen uint64, op string, err error) error {
	s.mu.Lock()
	stale := gen != s.gen
	s.mu.Unlock()
	if stale {
		return fmt.Errorf("%s: %w", op, apperr.ErrStaleView)
	}

	if !errors.Is(err, apperr.ErrUpstream) {
		err = fmt.Errorf("%w: %w", apperr.ErrUpstream, err)
	}
	err = fmt.Errorf("%s: %w", op, err)
	s.logger.Error(op+" failed", slog.String("error", err.Error()))
	if s.notifier != nil {
		s.notifier.NotifyError(err)
	}
	return err
}
