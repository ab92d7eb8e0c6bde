package api

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/versemark/internal/apperr"
	"github.com/starford/versemark/internal/markstore"
	"github.com/starford/versemark/internal/models"
	"github.com/starford/versemark/internal/placement"
)

// WireMark is the mark representation shared with clients.
type WireMark = models.WireMark

// ChapterBody is the chapter part of a ChapterResponse.
type ChapterBody struct {
	VersionID string   `json:"versionId" example:"kjv" validate:"required"`
	BookID    string   `json:"bookId" example:"GEN" validate:"required"`
	ChapterID string   `json:"chapterId" example:"1" validate:"required"`
	Reference string   `json:"reference" example:"Genesis 1" validate:"required"`
	Content   string   `json:"content" validate:"required"`
	VerseIDs  []string `json:"verseIds" example:"GEN.1.1,GEN.1.2"`
	Checksum  string   `json:"checksum" example:"9f86d081..."`
}

// Link points at another chapter.
type Link struct {
	VersionID string `json:"versionId" example:"kjv" validate:"required"`
	BookID    string `json:"bookId" example:"GEN" validate:"required"`
	ChapterID string `json:"chapterId" example:"2" validate:"required"`
	Href      string `json:"href" example:"/kjv/GEN/2" validate:"required"`
}

// ChapterResponse is returned by the chapter endpoint.
type ChapterResponse struct {
	Chapter ChapterBody     `json:"chapter" validate:"required"`
	Links   map[string]Link `json:"_links" validate:"required"`
}

// NewChapterResponse renders a chapter with self/prev/next links.
func NewChapterResponse(c *models.Chapter) ChapterResponse {
	links := map[string]Link{"self": linkTo(c.Location)}
	if c.Prev != nil {
		links["prev"] = linkTo(*c.Prev)
	}
	if c.Next != nil {
		links["next"] = linkTo(*c.Next)
	}
	verseIDs := c.VerseIDs
	if verseIDs == nil {
		verseIDs = []string{}
	}
	return ChapterResponse{
		Chapter: ChapterBody{
			VersionID: c.VersionID,
			BookID:    c.BookID,
			ChapterID: c.ChapterID,
			Reference: c.Reference,
			Content:   c.Content,
			VerseIDs:  verseIDs,
			Checksum:  c.Checksum,
		},
		Links: links,
	}
}

// ToChapter converts the response back into the domain chapter.
func (r ChapterResponse) ToChapter() *models.Chapter {
	c := &models.Chapter{
		Location: models.Location{
			VersionID: r.Chapter.VersionID,
			BookID:    r.Chapter.BookID,
			ChapterID: r.Chapter.ChapterID,
		},
		Reference: r.Chapter.Reference,
		Content:   r.Chapter.Content,
		VerseIDs:  r.Chapter.VerseIDs,
		Checksum:  r.Chapter.Checksum,
	}
	if l, ok := r.Links["prev"]; ok {
		c.Prev = &models.Location{VersionID: l.VersionID, BookID: l.BookID, ChapterID: l.ChapterID}
	}
	if l, ok := r.Links["next"]; ok {
		c.Next = &models.Location{VersionID: l.VersionID, BookID: l.BookID, ChapterID: l.ChapterID}
	}
	return c
}

func linkTo(loc models.Location) Link {
	return Link{
		VersionID: loc.VersionID,
		BookID:    loc.BookID,
		ChapterID: loc.ChapterID,
		Href:      "/" + loc.Path(),
	}
}

// MarksResponse wraps the marks of a chapter.
type MarksResponse struct {
	Marks []WireMark `json:"marks" validate:"required"`
}

// CreateMarkRequest is the request body for creating a mark. Location is
// the chapter being viewed; the response only carries its verses.
type CreateMarkRequest struct {
	Mark     WireMark        `json:"mark" validate:"required"`
	Location models.Location `json:"location" validate:"required"`
}

// Draft validates the request and returns the mark draft.
func (r CreateMarkRequest) Draft() (models.Draft, error) {
	if err := r.Location.Validate(); err != nil {
		return models.Draft{}, err
	}
	return models.DraftFromWire(r.Mark)
}

// PatchNoteRequest is the request body for editing a note.
type PatchNoteRequest struct {
	Note string `json:"note" example:"In the beginning was the Word" validate:"required"`
}

// Validate checks the note text.
func (r PatchNoteRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Note, validation.Required, validation.RuneLength(1, models.MaxNoteLength)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

// MarkListResponse wraps paginated mark listings.
type MarkListResponse struct {
	Marks []WireMark `json:"marks" validate:"required"`
	Total int        `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Mark    WireMark `json:"mark" validate:"required"`
	Snippet string   `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

func newSearchResponse(results []markstore.SearchResult) SearchResponse {
	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{Mark: models.ToWire(r.Mark), Snippet: r.Snippet}
	}
	return SearchResponse{Results: out}
}

// LayoutRequest carries the measured geometry of a rendered chapter.
type LayoutRequest struct {
	Location models.Location   `json:"location" validate:"required"`
	Params   placement.Params   `json:"params" validate:"required"`
	Geometry placement.Geometry `json:"geometry" validate:"required"`
}

// Validate checks the viewport and the location.
func (r LayoutRequest) Validate() error {
	if err := r.Location.Validate(); err != nil {
		return err
	}
	p := r.Params
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Width, validation.Required, validation.Min(0.0)),
		validation.Field(&p.Mid, validation.Min(0.0)),
		validation.Field(&p.Gap, validation.Min(0.0)),
		validation.Field(&p.MaxBodyHeight, validation.Min(0.0)),
		validation.Field(&p.Breakpoint, validation.Min(0.0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}
