// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes versemark highlights and notes over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/versemark/internal/markservice"
	"github.com/starford/versemark/internal/models"
	"github.com/starford/versemark/internal/verse"
)

// Server wraps the MCP server with versemark tools.
type Server struct {
	mcp *server.MCPServer
	svc *markservice.Service
}

// New creates a new MCP server with all versemark tools registered.
func New(svc *markservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"versemark",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_chapter_marks", withLocation(
		mcp.WithDescription("List the highlights and notes visible in one chapter."),
	)...), s.getChapterMarks)

	s.mcp.AddTool(mcp.NewTool("highlight_verses", withLocation(
		mcp.WithDescription("Create a highlight on verses of one chapter. "+
			"Read the identifier contract first via get_verse_id_contract or the versemark://verse-ids resource."),
		mcp.WithString("verses", mcp.Required(), mcp.Description("Verse numbers, e.g. 1,3-5")),
		mcp.WithString("color", mcp.Required(), mcp.Description("Hex color, e.g. #ffee00")),
	)...), s.highlightVerses)

	s.mcp.AddTool(mcp.NewTool("add_note", withLocation(
		mcp.WithDescription("Attach a note to verses of one chapter."),
		mcp.WithString("verses", mcp.Required(), mcp.Description("Verse numbers, e.g. 1,3-5")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Note text, 1 to 1024 characters")),
	)...), s.addNote)

	s.mcp.AddTool(mcp.NewTool("edit_note",
		mcp.WithDescription("Replace the text of a note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Mark ID of the note")),
		mcp.WithString("text", mcp.Required(), mcp.Description("New note text")),
	), s.editNote)

	s.mcp.AddTool(mcp.NewTool("delete_mark",
		mcp.WithDescription("Delete a highlight or note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Mark ID")),
	), s.deleteMark)

	s.mcp.AddTool(mcp.NewTool("hide_marked_verses",
		mcp.WithDescription("Remove verses from highlights. All ids are removed or none is."),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Comma separated marked verse IDs")),
	), s.hideMarkedVerses)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("list_marks",
		mcp.WithDescription("List marks, newest first."),
		mcp.WithString("kind", mcp.Description("highlight or note (empty for both)")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Marks to skip")),
	), s.listMarks)

	s.mcp.AddTool(mcp.NewTool("get_verse_id_contract",
		mcp.WithDescription("Returns how verses, chapters and marks are identified. "+
			"Call this before creating highlights or notes."),
	), s.getVerseIDContract)

	s.mcp.AddResource(
		mcp.NewResource("versemark://verse-ids", "Verse Identifier Contract",
			mcp.WithResourceDescription("Verse, chapter and mark identifier formats."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readVerseIDResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// withLocation prepends the chapter arguments to opts.
func withLocation(opts ...mcp.ToolOption) []mcp.ToolOption {
	return append([]mcp.ToolOption{
		mcp.WithString("version", mcp.Required(), mcp.Description("Version ID, e.g. kjv")),
		mcp.WithString("book", mcp.Required(), mcp.Description("Book ID, e.g. GEN")),
		mcp.WithString("chapter", mcp.Required(), mcp.Description("Chapter ID, e.g. 1")),
	}, opts...)
}

func requireLocation(req mcp.CallToolRequest) (models.Location, error) {
	var loc models.Location
	var err error
	if loc.VersionID, err = req.RequireString("version"); err != nil {
		return loc, err
	}
	if loc.BookID, err = req.RequireString("book"); err != nil {
		return loc, err
	}
	if loc.ChapterID, err = req.RequireString("chapter"); err != nil {
		return loc, err
	}
	return loc, loc.Validate()
}

// requireVerses reads the location and verse list of a create tool.
func requireVerses(req mcp.CallToolRequest) (models.Location, []verse.Ref, error) {
	loc, err := requireLocation(req)
	if err != nil {
		return loc, nil, err
	}
	list, err := req.RequireString("verses")
	if err != nil {
		return loc, nil, err
	}
	numbers, err := verse.ParseVerseList(list)
	if err != nil {
		return loc, nil, err
	}
	refs := make([]verse.Ref, len(numbers))
	for i, n := range numbers {
		refs[i] = loc.Verse(n)
	}
	return loc, refs, nil
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) getChapterMarks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	loc, err := requireLocation(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	marks, err := s.svc.ChapterMarks(ctx, loc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(models.ToWireList(marks)), nil
}

func (s *Server) highlightVerses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	loc, refs, err := requireVerses(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	color, err := req.RequireString("color")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.svc.CreateMark(ctx, loc, models.NewHighlightDraft(color, refs...))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(models.ToWire(m)), nil
}

func (s *Server) addNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	loc, refs, err := requireVerses(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.svc.CreateMark(ctx, loc, models.NewNoteDraft(text, refs...))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(models.ToWire(m)), nil
}

func (s *Server) editNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.UpdateNote(ctx, id, text); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", id)), nil
}

func (s *Server) deleteMark(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.DeleteMark(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) hideMarkedVerses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return mcp.NewToolResultError("no marked verse ids given"), nil
	}
	if err := s.svc.HideMarkedVerses(ctx, ids); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("hidden: %d", len(ids))), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.SearchNotes(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	type hit struct {
		Mark    models.WireMark `json:"mark"`
		Snippet string          `json:"snippet"`
	}
	hits := make([]hit, len(results))
	for i, r := range results {
		hits[i] = hit{Mark: models.ToWire(r.Mark), Snippet: r.Snippet}
	}
	return jsonResult(hits), nil
}

func (s *Server) listMarks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := models.Kind(req.GetString("kind", ""))
	if kind != "" && kind != models.KindHighlight && kind != models.KindNote {
		return mcp.NewToolResultError(fmt.Sprintf("unknown kind %q", kind)), nil
	}
	marks, total, err := s.svc.ListMarks(ctx, kind, req.GetInt("limit", 50), req.GetInt("offset", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"marks": models.ToWireList(marks), "total": total}), nil
}

func (s *Server) getVerseIDContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(VerseIDContract), nil
}

func (s *Server) readVerseIDResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "versemark://verse-ids",
			MIMEType: "text/markdown",
			Text:     VerseIDContract,
		},
	}, nil
}
