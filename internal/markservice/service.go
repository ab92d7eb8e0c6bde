// Package markservice coordinates the mark store, the chapter library and
// the event broker. It is the in-process data source and mutation sink of a
// reader session and the backend of the REST and MCP surfaces.
package markservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/versemark/internal/apperr"
	"github.com/starford/versemark/internal/markindex"
	"github.com/starford/versemark/internal/markstore"
	"github.com/starford/versemark/internal/models"
	"github.com/starford/versemark/internal/placement"
	"github.com/starford/versemark/internal/sse"
	"github.com/starford/versemark/internal/storage"
)

// Publisher receives committed mark changes.
type Publisher interface {
	PublishMark(eventType string, m models.Mark)
	PublishHidden(markedVerseIDs []string)
}

// Service coordinates storage, persistence and notification.
type Service struct {
	repo   markstore.Repository
	lib    *storage.Library
	events Publisher
	logger *slog.Logger
	layout placement.Params
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sends committed changes to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithLayoutDefaults sets the placement parameters used when a layout
// request leaves them zero.
func WithLayoutDefaults(p placement.Params) Option {
	return func(s *Service) { s.layout = p }
}

// NewService creates a new mark service.
func NewService(repo markstore.Repository, lib *storage.Library, opts ...Option) *Service {
	s := &Service{repo: repo, lib: lib, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ready reports whether the store is reachable.
func (s *Service) Ready(_ context.Context) error {
	return s.repo.Ping()
}

// Chapter returns the content of a chapter.
func (s *Service) Chapter(ctx context.Context, loc models.Location) (*models.Chapter, error) {
	return s.lib.Chapter(ctx, loc)
}

// ChapterMarks returns the visible marks of a chapter.
func (s *Service) ChapterMarks(ctx context.Context, loc models.Location) ([]models.Mark, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ChapterMarks(ctx, loc)
}

// CreateMark persists a draft made while viewing loc. The returned mark only
// carries the verses that belong to loc; at least one must.
func (s *Service) CreateMark(ctx context.Context, loc models.Location, d models.Draft) (models.Mark, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	inView := false
	for _, r := range d.Verses {
		if loc.Contains(r) {
			inView = true
			break
		}
	}
	if !inView {
		return nil, fmt.Errorf("no verse of the mark is in %s: %w", loc, apperr.ErrInvalidInput)
	}

	m, hidden, err := s.repo.Create(ctx, d)
	if err != nil {
		return nil, err
	}
	if len(hidden) > 0 {
		s.logger.Info("highlighted verses hidden by new highlight", slog.Int("count", len(hidden)))
		if s.events != nil {
			s.events.PublishHidden(hidden)
		}
	}
	s.logger.Info("mark created",
		slog.String("id", m.Common().ID),
		slog.String("kind", string(m.Kind())),
		slog.String("reference", m.Common().Reference))
	s.publish(sse.TypeMarkCreated, m)
	return restrictTo(m, loc), nil
}

// DeleteMark removes a mark and returns it.
func (s *Service) DeleteMark(ctx context.Context, id string) (models.Mark, error) {
	m, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("mark deleted", slog.String("id", id))
	s.publish(sse.TypeMarkDeleted, m)
	return m, nil
}

// HideMarkedVerses hides highlighted verses. The batch is all-or-nothing.
func (s *Service) HideMarkedVerses(ctx context.Context, ids []string) error {
	if err := s.repo.HideMarkedVerses(ctx, ids); err != nil {
		return err
	}
	s.logger.Info("highlighted verses hidden", slog.Int("count", len(ids)))
	if s.events != nil {
		s.events.PublishHidden(ids)
	}
	return nil
}

// UpdateNote replaces the text of a note and returns the updated note.
func (s *Service) UpdateNote(ctx context.Context, id, text string) (models.Mark, error) {
	m, err := s.repo.PatchNote(ctx, id, text)
	if err != nil {
		return nil, err
	}
	s.publish(sse.TypeMarkUpdated, m)
	return m, nil
}

// PatchNote is UpdateNote without the result.
func (s *Service) PatchNote(ctx context.Context, id, text string) error {
	_, err := s.UpdateNote(ctx, id, text)
	return err
}

// GetMark returns one mark by id.
func (s *Service) GetMark(ctx context.Context, id string) (models.Mark, error) {
	return s.repo.Get(ctx, id)
}

// ListMarks returns a page of marks, newest first, and the total count.
func (s *Service) ListMarks(ctx context.Context, kind models.Kind, limit, offset int) ([]models.Mark, int, error) {
	return s.repo.ListMarks(ctx, kind, limit, offset)
}

// SearchNotes runs a full-text search over note text.
func (s *Service) SearchNotes(ctx context.Context, query string, limit int) ([]markstore.SearchResult, error) {
	return s.repo.SearchNotes(ctx, query, limit)
}

// Layout places the notes of a chapter using measured geometry. Zero
// params fall back to the service defaults.
func (s *Service) Layout(ctx context.Context, loc models.Location, g placement.Geometry, p placement.Params) (placement.Layout, error) {
	marks, err := s.ChapterMarks(ctx, loc)
	if err != nil {
		return placement.Layout{}, err
	}
	idx := markindex.New(s.logger)
	if err := idx.ReplaceAll(marks); err != nil {
		return placement.Layout{}, err
	}
	notes, err := placement.FromAnchors(idx.NoteAnchors(), g)
	if err != nil {
		return placement.Layout{}, err
	}
	return placement.Place(notes, s.layoutParams(p)), nil
}

func (s *Service) layoutParams(p placement.Params) placement.Params {
	if p.Gap == 0 {
		p.Gap = s.layout.Gap
	}
	if p.MaxBodyHeight == 0 {
		p.MaxBodyHeight = s.layout.MaxBodyHeight
	}
	if p.Breakpoint == 0 {
		p.Breakpoint = s.layout.Breakpoint
	}
	return p
}

func (s *Service) publish(eventType string, m models.Mark) {
	if s.events != nil {
		s.events.PublishMark(eventType, m)
	}
}

// restrictTo returns a copy of m carrying only the verses inside loc.
func restrictTo(m models.Mark, loc models.Location) models.Mark {
	out := models.Clone(m)
	c := out.Common()
	for _, mv := range c.Verses.All() {
		if !loc.Contains(mv.Verse) {
			c.Verses.Delete(mv.Key())
		}
	}
	return out
}
