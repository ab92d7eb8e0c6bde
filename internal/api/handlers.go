package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/versemark/internal/checksum"
	"github.com/starford/versemark/internal/markservice"
	"github.com/starford/versemark/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *markservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *markservice.Service) *Handler {
	return &Handler{svc: svc}
}

// location reads the chapter location from the URL.
func location(r *http.Request) models.Location {
	return models.Location{
		VersionID: chi.URLParam(r, "version"),
		BookID:    chi.URLParam(r, "book"),
		ChapterID: chi.URLParam(r, "chapter"),
	}
}

// GetChapter handles GET /api/versions/{version}/books/{book}/chapters/{chapter}.
//
//	@Summary		Get chapter content with navigation links
//	@Tags			chapters
//	@Produce		json
//	@Param			version			path		string	true	"Version id"
//	@Param			book			path		string	true	"Book id"
//	@Param			chapter			path		string	true	"Chapter id"
//	@Param			If-None-Match	header		string	false	"ETag from a previous response"
//	@Success		200				{object}	ChapterResponse
//	@Success		304				"Not modified"
//	@Failure		400				{object}	errResponse
//	@Failure		404				{object}	errResponse
//	@Router			/versions/{version}/books/{book}/chapters/{chapter} [get]
func (h *Handler) GetChapter(w http.ResponseWriter, r *http.Request) {
	loc := location(r)
	c, err := h.svc.Chapter(r.Context(), loc)
	if err != nil {
		writeError(w, err, "get chapter", slog.String("chapter", loc.Path()))
		return
	}
	w.Header().Set("ETag", checksum.ETag(c.Checksum))
	if checksum.Matches(r.Header.Get("If-None-Match"), c.Checksum) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, NewChapterResponse(c))
}

// ChapterMarks handles GET /api/marks/versions/{version}/books/{book}/chapters/{chapter}.
//
//	@Summary		List the visible marks of a chapter
//	@Tags			marks
//	@Produce		json
//	@Param			version	path		string	true	"Version id"
//	@Param			book	path		string	true	"Book id"
//	@Param			chapter	path		string	true	"Chapter id"
//	@Success		200		{object}	MarksResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/marks/versions/{version}/books/{book}/chapters/{chapter} [get]
func (h *Handler) ChapterMarks(w http.ResponseWriter, r *http.Request) {
	loc := location(r)
	marks, err := h.svc.ChapterMarks(r.Context(), loc)
	if err != nil {
		writeError(w, err, "chapter marks", slog.String("chapter", loc.Path()))
		return
	}
	writeJSON(w, http.StatusOK, MarksResponse{Marks: models.ToWireList(marks)})
}

// CreateMark handles POST /api/marks.
//
//	@Summary		Create a highlight or a note
//	@Tags			marks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateMarkRequest	true	"Mark and the chapter being viewed"
//	@Success		201		{object}	WireMark
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/marks [post]
func (h *Handler) CreateMark(w http.ResponseWriter, r *http.Request) {
	var req CreateMarkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := req.Draft()
	if err != nil {
		writeError(w, err, "create mark")
		return
	}
	m, err := h.svc.CreateMark(r.Context(), req.Location, d)
	if err != nil {
		writeError(w, err, "create mark", slog.String("chapter", req.Location.Path()))
		return
	}
	writeJSON(w, http.StatusCreated, models.ToWire(m))
}

// GetMark handles GET /api/marks/{id}.
//
//	@Summary		Get a mark by id
//	@Tags			marks
//	@Produce		json
//	@Param			id	path		string	true	"Mark id"
//	@Success		200	{object}	WireMark
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/marks/{id} [get]
func (h *Handler) GetMark(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := h.svc.GetMark(r.Context(), id)
	if err != nil {
		writeError(w, err, "get mark", slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, models.ToWire(m))
}

// PatchNote handles PATCH /api/marks/{id}.
//
//	@Summary		Edit the text of a note
//	@Tags			marks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Mark id"
//	@Param			body	body		PatchNoteRequest	true	"New note text"
//	@Success		200		{object}	WireMark
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/marks/{id} [patch]
func (h *Handler) PatchNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req PatchNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err, "patch note")
		return
	}
	m, err := h.svc.UpdateNote(r.Context(), id, req.Note)
	if err != nil {
		writeError(w, err, "patch note", slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, models.ToWire(m))
}

// DeleteMark handles DELETE /api/marks/{id}.
//
//	@Summary		Delete a mark
//	@Tags			marks
//	@Produce		json
//	@Param			id	path		string	true	"Mark id"
//	@Success		200	{object}	WireMark
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/marks/{id} [delete]
func (h *Handler) DeleteMark(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := h.svc.DeleteMark(r.Context(), id)
	if err != nil {
		writeError(w, err, "delete mark", slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, models.ToWire(m))
}

// HideHighlights handles DELETE /api/marks/highlights.
//
//	@Summary		Hide highlighted verses
//	@Description	The batch is all-or-nothing: one unknown or already hidden id fails the request.
//	@Tags			marks
//	@Param			markedVerses	query	string	true	"Comma-separated marked verse ids"
//	@Success		204				"Hidden"
//	@Failure		400				{object}	errResponse
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/marks/highlights [delete]
func (h *Handler) HideHighlights(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("markedVerses")
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("no marked verse ids provided"))
		return
	}
	if err := h.svc.HideMarkedVerses(r.Context(), ids); err != nil {
		writeError(w, err, "hide highlights", slog.Int("count", len(ids)))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMarks handles GET /api/marks.
//
//	@Summary		List marks, newest first
//	@Tags			marks
//	@Produce		json
//	@Param			kind	query		string	false	"Mark kind"	Enums(highlight, note)
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	MarkListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/marks [get]
func (h *Handler) ListMarks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	kind := models.Kind(q.Get("kind"))
	if kind != "" && kind != models.KindHighlight && kind != models.KindNote {
		writeJSON(w, http.StatusBadRequest, errorBody("kind must be highlight or note"))
		return
	}

	marks, total, err := h.svc.ListMarks(r.Context(), kind, limit, offset)
	if err != nil {
		writeError(w, err, "list marks")
		return
	}
	writeJSON(w, http.StatusOK, MarkListResponse{Marks: models.ToWireList(marks), Total: total})
}

// SearchNotes handles GET /api/marks/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/marks/search [get]
func (h *Handler) SearchNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.SearchNotes(r.Context(), q, limit)
	if err != nil {
		writeError(w, err, "search notes", slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, newSearchResponse(results))
}

// Layout handles POST /api/layout.
//
//	@Summary		Place the notes of a chapter next to their verses
//	@Tags			layout
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LayoutRequest	true	"Viewport and measured geometry"
//	@Success		200		{object}	placement.Layout
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/layout [post]
func (h *Handler) Layout(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err, "layout")
		return
	}
	l, err := h.svc.Layout(r.Context(), req.Location, req.Geometry, req.Params)
	if err != nil {
		writeError(w, err, "layout", slog.String("chapter", req.Location.Path()))
		return
	}
	writeJSON(w, http.StatusOK, l)
}
