package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/versemark/internal/markservice"
	"github.com/starford/versemark/internal/models"
	"github.com/starford/versemark/internal/placement"
	"github.com/starford/versemark/internal/storage"
	"github.com/starford/versemark/internal/testutil"
)

var gen1 = testutil.Gen1

// testEnv sets up a temp content dir with GEN 1, a SQLite DB, the service,
// and the router. An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	return testEnvFull(t, RouterConfig{AuthEnabled: authToken != "", Token: authToken})
}

func testEnvFull(t *testing.T, cfg RouterConfig) http.Handler {
	t.Helper()
	_, store := testutil.TestContent(t)
	testutil.SeedChapter(t, store, gen1, 10)
	svc := markservice.NewService(testutil.TestDB(t), storage.NewLibrary(store))
	return NewRouter(svc, cfg)
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createMark(t *testing.T, router http.Handler, d models.Draft) WireMark {
	t.Helper()
	w := do(t, router, http.MethodPost, "/marks", CreateMarkRequest{Mark: models.WireDraft(d), Location: gen1})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var m WireMark
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func chapterMarks(t *testing.T, router http.Handler) []WireMark {
	t.Helper()
	w := do(t, router, http.MethodGet, "/marks/versions/kjv/books/GEN/chapters/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("chapter marks status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp MarksResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return resp.Marks
}

func TestGetChapter(t *testing.T) {
	router := testEnv(t, "secret")

	// Chapter content is public even when auth is enabled.
	w := do(t, router, http.MethodGet, "/versions/kjv/books/GEN/chapters/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ChapterResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Chapter.BookID != "GEN" || len(resp.Chapter.VerseIDs) != 10 {
		t.Errorf("chapter = %+v", resp.Chapter)
	}
	if resp.Links["self"].Href != "/kjv/GEN/1" {
		t.Errorf("self link = %+v", resp.Links["self"])
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/versions/kjv/books/GEN/chapters/1", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Errorf("conditional get = %d, want 304", w.Code)
	}
}

func TestGetChapter_NotFound(t *testing.T) {
	router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/versions/kjv/books/GEN/chapters/2", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCreateAndListChapterMarks(t *testing.T) {
	router := testEnv(t, "")

	h := createMark(t, router, models.NewHighlightDraft("#ffee00", gen1.Verse(1), gen1.Verse(2)))
	if h.ID == "" || h.Color == nil || *h.Color != "#ffee00" || len(h.MarkedVerses) != 2 {
		t.Errorf("created = %+v", h)
	}
	if h.Reference != "GEN 1:1-2" {
		t.Errorf("reference = %q", h.Reference)
	}
	createMark(t, router, models.NewNoteDraft("light", gen1.Verse(3)))

	marks := chapterMarks(t, router)
	if len(marks) != 2 {
		t.Fatalf("got %d marks, want 2", len(marks))
	}
	for _, m := range marks {
		if _, err := models.FromWire(m); err != nil {
			t.Errorf("mark %s does not round trip: %v", m.ID, err)
		}
	}
}

func TestCreateMark_FiltersToLocation(t *testing.T) {
	router := testEnv(t, "")
	gen2 := models.Location{VersionID: "kjv", BookID: "GEN", ChapterID: "2"}
	m := createMark(t, router, models.NewHighlightDraft("#00ff00", gen1.Verse(31), gen2.Verse(1)))
	if len(m.MarkedVerses) != 1 || m.MarkedVerses[0].Verse.ChapterID != "1" {
		t.Errorf("marked verses = %+v", m.MarkedVerses)
	}
}

func TestCreateMark_BadRequests(t *testing.T) {
	router := testEnv(t, "")
	color, note := "#ffee00", "both"
	v1 := models.MarkedVerse{Verse: gen1.Verse(1)}

	tests := []struct {
		name string
		body any
	}{
		{"both color and note", CreateMarkRequest{Mark: WireMark{Color: &color, Note: &note, MarkedVerses: []models.MarkedVerse{v1}}, Location: gen1}},
		{"neither", CreateMarkRequest{Mark: WireMark{MarkedVerses: []models.MarkedVerse{v1}}, Location: gen1}},
		{"no verses", CreateMarkRequest{Mark: WireMark{Color: &color}, Location: gen1}},
		{"no location", CreateMarkRequest{Mark: WireMark{Color: &color, MarkedVerses: []models.MarkedVerse{v1}}}},
		{"bad color", CreateMarkRequest{Mark: models.WireDraft(models.NewHighlightDraft("red", gen1.Verse(1))), Location: gen1}},
		{"not json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w *httptest.ResponseRecorder
			if s, ok := tt.body.(string); ok {
				req := httptest.NewRequest(http.MethodPost, "/marks", strings.NewReader(s))
				w = httptest.NewRecorder()
				router.ServeHTTP(w, req)
			} else {
				w = do(t, router, http.MethodPost, "/marks", tt.body)
			}
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body = %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestPatchAndDeleteMark(t *testing.T) {
	router := testEnv(t, "")
	n := createMark(t, router, models.NewNoteDraft("first", gen1.Verse(1)))

	w := do(t, router, http.MethodPatch, "/marks/"+n.ID, PatchNoteRequest{Note: "second"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch = %d, body = %s", w.Code, w.Body.String())
	}
	var patched WireMark
	_ = json.Unmarshal(w.Body.Bytes(), &patched)
	if patched.Note == nil || *patched.Note != "second" {
		t.Errorf("patched = %+v", patched)
	}

	if w := do(t, router, http.MethodPatch, "/marks/"+n.ID, PatchNoteRequest{Note: ""}); w.Code != http.StatusBadRequest {
		t.Errorf("empty patch = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPatch, "/marks/missing", PatchNoteRequest{Note: "x"}); w.Code != http.StatusNotFound {
		t.Errorf("patch missing = %d, want 404", w.Code)
	}

	w = do(t, router, http.MethodDelete, "/marks/"+n.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	var deleted WireMark
	_ = json.Unmarshal(w.Body.Bytes(), &deleted)
	if deleted.ID != n.ID {
		t.Errorf("deleted id = %q", deleted.ID)
	}

	if w := do(t, router, http.MethodGet, "/marks/"+n.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/marks/"+n.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestHideHighlights(t *testing.T) {
	router := testEnv(t, "")
	h := createMark(t, router, models.NewHighlightDraft("#ffee00", gen1.Verse(1), gen1.Verse(2)))
	first := h.MarkedVerses[0].ID

	if w := do(t, router, http.MethodDelete, "/marks/highlights?markedVerses="+first+",unknown", nil); w.Code != http.StatusNotFound {
		t.Errorf("partial batch = %d, want 404", w.Code)
	}
	if marks := chapterMarks(t, router); len(marks[0].MarkedVerses) != 2 {
		t.Fatalf("failed batch hid verses: %+v", marks[0].MarkedVerses)
	}

	if w := do(t, router, http.MethodDelete, "/marks/highlights?markedVerses="+first, nil); w.Code != http.StatusNoContent {
		t.Fatalf("hide = %d", w.Code)
	}
	if marks := chapterMarks(t, router); len(marks) != 1 || len(marks[0].MarkedVerses) != 1 {
		t.Errorf("after hide = %+v", marks)
	}

	if w := do(t, router, http.MethodDelete, "/marks/highlights", nil); w.Code != http.StatusBadRequest {
		t.Errorf("no ids = %d, want 400", w.Code)
	}
}

func TestListMarks(t *testing.T) {
	router := testEnv(t, "")
	createMark(t, router, models.NewHighlightDraft("#ffee00", gen1.Verse(1)))
	createMark(t, router, models.NewNoteDraft("a", gen1.Verse(2)))
	createMark(t, router, models.NewNoteDraft("b", gen1.Verse(3)))

	w := do(t, router, http.MethodGet, "/marks?kind=note&limit=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp MarkListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Marks) != 1 {
		t.Errorf("total = %d, marks = %d", resp.Total, len(resp.Marks))
	}
	if w := do(t, router, http.MethodGet, "/marks?kind=bookmark", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad kind = %d, want 400", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router := testEnv(t, "")
	createMark(t, router, models.NewNoteDraft("the light was good", gen1.Verse(4)))
	createMark(t, router, models.NewNoteDraft("waters above", gen1.Verse(7)))

	w := do(t, router, http.MethodGet, "/marks/search?q=light", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 {
		t.Errorf("results = %d, want 1", len(resp.Results))
	}

	if w := do(t, router, http.MethodGet, "/marks/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestLayoutEndpoint(t *testing.T) {
	router := testEnv(t, "")
	n := createMark(t, router, models.NewNoteDraft("x", gen1.Verse(2)))

	req := LayoutRequest{
		Location: gen1,
		Params:   placement.Params{Width: 1200, Mid: 600},
		Geometry: placement.Geometry{
			Anchors: map[string]placement.Rect{gen1.Verse(2).VersionedID(): {Top: 100, Height: 30, Left: 700}},
			Notes:   map[string]placement.Size{n.ID: {HeaderHeight: 20, BodyHeight: 50}},
		},
	}
	w := do(t, router, http.MethodPost, "/layout", req)
	if w.Code != http.StatusOK {
		t.Fatalf("layout = %d, body = %s", w.Code, w.Body.String())
	}
	var l placement.Layout
	_ = json.Unmarshal(w.Body.Bytes(), &l)
	if l.Mode != placement.ModeWide || len(l.Placements) != 1 {
		t.Fatalf("layout = %+v", l)
	}
	if p := l.Placements[0]; p.Column != placement.ColumnRight || p.Offset != 160 {
		t.Errorf("placement = %+v", p)
	}

	req.Params.Width = 0
	if w := do(t, router, http.MethodPost, "/layout", req); w.Code != http.StatusBadRequest {
		t.Errorf("zero width = %d, want 400", w.Code)
	}
	req.Params.Width = 1200
	req.Geometry.Anchors = nil
	if w := do(t, router, http.MethodPost, "/layout", req); w.Code != http.StatusBadRequest {
		t.Errorf("missing anchor = %d, want 400", w.Code)
	}
}

func TestCORS(t *testing.T) {
	router := testEnvFull(t, RouterConfig{AllowedOrigins: []string{"http://localhost:5173"}})
	req := httptest.NewRequest(http.MethodOptions, "/marks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}
}

// Auth middleware tests.

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, "my-secret")
	req := httptest.NewRequest(http.MethodGet, "/marks", nil)
	req.Header.Set("Authorization", "Bearer my-secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, "my-secret")
	w := do(t, router, http.MethodGet, "/marks", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, "my-secret")
	req := httptest.NewRequest(http.MethodGet, "/marks", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingEvents writes headers and blocks until the request is done.
var blockingEvents = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvFull(t, RouterConfig{AuthEnabled: true, Token: "secret", Events: blockingEvents})
	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvFull(t, RouterConfig{AuthEnabled: true, Token: "tok", Events: blockingEvents})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	router := testEnv(t, "my-secret")

	w := do(t, router, http.MethodGet, "/marks?access_token=my-secret", nil)
	if w.Code != http.StatusOK {
		t.Errorf("GET with access_token = %d, want 200", w.Code)
	}

	w = do(t, router, http.MethodDelete, "/marks/x?access_token=my-secret", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("DELETE with access_token = %d, want 401", w.Code)
	}
	if got := w.Header().Get("WWW-Authenticate"); !strings.HasPrefix(got, "Bearer") {
		t.Errorf("WWW-Authenticate = %q", got)
	}
}

func TestBodyTooLarge(t *testing.T) {
	router := testEnv(t, "")
	body := `{"mark":{"note":"` + strings.Repeat("a", maxBodyBytes+1) + `"}}`
	req := httptest.NewRequest(http.MethodPost, "/marks", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized body = %d, want 413", w.Code)
	}
}
