package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/starford/versemark/internal/markservice"
)

// RouterConfig controls the cross-cutting behavior of the API router.
type RouterConfig struct {
	// AuthEnabled controls whether Bearer token auth is enforced on mark
	// routes. Chapter content is always public.
	AuthEnabled bool
	Token       string
	// AllowedOrigins enables CORS for the listed origins when non-empty.
	AllowedOrigins []string
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *markservice.Service, cfg RouterConfig) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match"},
			ExposedHeaders:   []string{"ETag"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/versions/{version}/books/{book}/chapters/{chapter}", h.GetChapter)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

		// Marks.
		r.Get("/marks", h.ListMarks)
		r.Post("/marks", h.CreateMark)
		r.Get("/marks/search", h.SearchNotes)
		r.Delete("/marks/highlights", h.HideHighlights)
		r.Get("/marks/versions/{version}/books/{book}/chapters/{chapter}", h.ChapterMarks)
		r.Get("/marks/{id}", h.GetMark)
		r.Patch("/marks/{id}", h.PatchNote)
		r.Delete("/marks/{id}", h.DeleteMark)

		// Layout.
		r.Post("/layout", h.Layout)

		// SSE endpoint (protected by same auth middleware).
		if cfg.Events != nil {
			r.Get("/events", cfg.Events.ServeHTTP)
		}
	})

	return r
}
