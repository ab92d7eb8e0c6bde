package markstore

import (
	"context"

	"github.com/starford/versemark/internal/models"
)

// Repository defines the mark persistence operations.
// Consumers should depend on this interface rather than on *DB.
type Repository interface {
	Create(ctx context.Context, d models.Draft) (models.Mark, []string, error)
	Get(ctx context.Context, id string) (models.Mark, error)
	ChapterMarks(ctx context.Context, loc models.Location) ([]models.Mark, error)
	Delete(ctx context.Context, id string) (models.Mark, error)
	HideMarkedVerses(ctx context.Context, ids []string) error
	PatchNote(ctx context.Context, id, text string) (models.Mark, error)
	ListMarks(ctx context.Context, kind models.Kind, limit, offset int) ([]models.Mark, int, error)
	SearchNotes(ctx context.Context, query string, limit int) ([]SearchResult, error)
	Ping() error
	Close() error
}

// Verify *DB satisfies Repository at compile time.
var _ Repository = (*DB)(nil)
