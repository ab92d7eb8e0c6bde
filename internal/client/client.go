// Package client talks to the versemark REST API. It is the remote data
// source and mutation sink of a reader session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/starford/versemark/internal/api"
	"github.com/starford/versemark/internal/apperr"
	"github.com/starford/versemark/internal/models"
	"github.com/starford/versemark/internal/placement"
)

// HTTPError is a non-2xx API response. It unwraps to apperr.ErrUpstream and,
// for 400 and 404, to apperr.ErrInvalidInput or apperr.ErrNotFound.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets errors.Is match the mapped sentinels.
func (e *HTTPError) Unwrap() []error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return []error{apperr.ErrUpstream, apperr.ErrNotFound}
	case http.StatusBadRequest:
		return []error{apperr.ErrUpstream, apperr.ErrInvalidInput}
	default:
		return []error{apperr.ErrUpstream}
	}
}

// Client is an HTTP client for the versemark API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends a Bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for dropped marks.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the API mounted at baseURL (e.g.
// "http://localhost:8080/api").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func chapterPath(prefix string, loc models.Location) string {
	return fmt.Sprintf("%s/versions/%s/books/%s/chapters/%s", prefix,
		url.PathEscape(loc.VersionID), url.PathEscape(loc.BookID), url.PathEscape(loc.ChapterID))
}

// Chapter fetches chapter content.
func (c *Client) Chapter(ctx context.Context, loc models.Location) (*models.Chapter, error) {
	var resp api.ChapterResponse
	if err := c.do(ctx, http.MethodGet, chapterPath("", loc), nil, &resp); err != nil {
		return nil, err
	}
	return resp.ToChapter(), nil
}

// ChapterMarks fetches the visible marks of a chapter. Malformed marks are
// logged and dropped.
func (c *Client) ChapterMarks(ctx context.Context, loc models.Location) ([]models.Mark, error) {
	var resp api.MarksResponse
	if err := c.do(ctx, http.MethodGet, chapterPath("/marks", loc), nil, &resp); err != nil {
		return nil, err
	}
	return c.fromWireList(resp.Marks), nil
}

// CreateMark creates a mark while viewing loc.
func (c *Client) CreateMark(ctx context.Context, loc models.Location, d models.Draft) (models.Mark, error) {
	body := api.CreateMarkRequest{Mark: models.WireDraft(d), Location: loc}
	var w models.WireMark
	if err := c.do(ctx, http.MethodPost, "/marks", body, &w); err != nil {
		return nil, err
	}
	return upstreamMark(w)
}

// DeleteMark deletes a mark and returns it.
func (c *Client) DeleteMark(ctx context.Context, id string) (models.Mark, error) {
	var w models.WireMark
	if err := c.do(ctx, http.MethodDelete, "/marks/"+url.PathEscape(id), nil, &w); err != nil {
		return nil, err
	}
	return upstreamMark(w)
}

// HideMarkedVerses hides highlighted verses in one batch.
func (c *Client) HideMarkedVerses(ctx context.Context, ids []string) error {
	q := url.Values{"markedVerses": {strings.Join(ids, ",")}}
	return c.do(ctx, http.MethodDelete, "/marks/highlights?"+q.Encode(), nil, nil)
}

// PatchNote replaces the text of a note.
func (c *Client) PatchNote(ctx context.Context, id, text string) error {
	return c.do(ctx, http.MethodPatch, "/marks/"+url.PathEscape(id), api.PatchNoteRequest{Note: text}, nil)
}

// ListMarks fetches a page of marks and the total count.
func (c *Client) ListMarks(ctx context.Context, kind models.Kind, limit, offset int) ([]models.Mark, int, error) {
	q := url.Values{}
	if kind != "" {
		q.Set("kind", string(kind))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	var resp api.MarkListResponse
	if err := c.do(ctx, http.MethodGet, "/marks?"+q.Encode(), nil, &resp); err != nil {
		return nil, 0, err
	}
	return c.fromWireList(resp.Marks), resp.Total, nil
}

// SearchNotes runs a note search.
func (c *Client) SearchNotes(ctx context.Context, query string, limit int) ([]api.SearchResult, error) {
	q := url.Values{"q": {query}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp api.SearchResponse
	if err := c.do(ctx, http.MethodGet, "/marks/search?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Layout asks the server to place the notes of a chapter.
func (c *Client) Layout(ctx context.Context, req api.LayoutRequest) (placement.Layout, error) {
	var l placement.Layout
	err := c.do(ctx, http.MethodPost, "/layout", req, &l)
	return l, err
}

func (c *Client) fromWireList(ws []models.WireMark) []models.Mark {
	out := make([]models.Mark, 0, len(ws))
	for _, w := range ws {
		m, err := models.FromWire(w)
		if err != nil {
			c.logger.Warn("dropping malformed mark", slog.String("id", w.ID), slog.String("error", err.Error()))
			continue
		}
		out = append(out, m)
	}
	return out
}

// upstreamMark converts a single mark from a response. A malformed mark in
// a mutation response is an upstream failure.
func upstreamMark(w models.WireMark) (models.Mark, error) {
	m, err := models.FromWire(w)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrUpstream, err)
	}
	return m, nil
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
// Transport and decoding failures wrap apperr.ErrUpstream.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: creating request: %w", apperr.ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", apperr.ErrUpstream, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)
		return &HTTPError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode %s %s: %w", apperr.ErrUpstream, method, path, err)
	}
	return nil
}
