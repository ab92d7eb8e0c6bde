package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/versemark/internal/markservice"
	"github.com/starford/versemark/internal/models"
	"github.com/starford/versemark/internal/storage"
	"github.com/starford/versemark/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	_, store := testutil.TestContent(t)
	testutil.SeedChapter(t, store, testutil.Gen1, 10)
	svc := markservice.NewService(testutil.TestDB(t), storage.NewLibrary(store))
	return New(svc, "test")
}

func gen1Args(extra map[string]interface{}) map[string]interface{} {
	args := map[string]interface{}{"version": "kjv", "book": "GEN", "chapter": "1"}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_chapter_marks":
		result, err = srv.getChapterMarks(ctx, req)
	case "highlight_verses":
		result, err = srv.highlightVerses(ctx, req)
	case "add_note":
		result, err = srv.addNote(ctx, req)
	case "edit_note":
		result, err = srv.editNote(ctx, req)
	case "delete_mark":
		result, err = srv.deleteMark(ctx, req)
	case "hide_marked_verses":
		result, err = srv.hideMarkedVerses(ctx, req)
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "list_marks":
		result, err = srv.listMarks(ctx, req)
	case "get_verse_id_contract":
		result, err = srv.getVerseIDContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decodeMark(t *testing.T, r *mcp.CallToolResult) models.WireMark {
	t.Helper()
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	var w models.WireMark
	if err := json.Unmarshal([]byte(resultText(r)), &w); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	return w
}

func TestHighlightAndChapterMarks(t *testing.T) {
	srv := testServer(t)

	w := decodeMark(t, callTool(t, srv, "highlight_verses", gen1Args(map[string]interface{}{
		"verses": "1,3-4",
		"color":  "#ffee00",
	})))
	if len(w.MarkedVerses) != 3 || w.Reference != "GEN 1:1,3-4" {
		t.Errorf("highlight = %+v", w)
	}

	r := callTool(t, srv, "get_chapter_marks", gen1Args(nil))
	var marks []models.WireMark
	if err := json.Unmarshal([]byte(resultText(r)), &marks); err != nil {
		t.Fatal(err)
	}
	if len(marks) != 1 || marks[0].ID != w.ID {
		t.Errorf("chapter marks = %+v", marks)
	}
}

func TestNoteLifecycle(t *testing.T) {
	srv := testServer(t)

	w := decodeMark(t, callTool(t, srv, "add_note", gen1Args(map[string]interface{}{
		"verses": "2",
		"text":   "in the beginning",
	})))

	r := callTool(t, srv, "edit_note", map[string]interface{}{"id": w.ID, "text": "void and without form"})
	if text := resultText(r); text != "updated: "+w.ID {
		t.Errorf("edit result = %q", text)
	}

	r = callTool(t, srv, "search_notes", map[string]interface{}{"query": "void"})
	if !strings.Contains(resultText(r), w.ID) {
		t.Errorf("search = %q, want %s", resultText(r), w.ID)
	}

	r = callTool(t, srv, "delete_mark", map[string]interface{}{"id": w.ID})
	if text := resultText(r); text != "deleted: "+w.ID {
		t.Errorf("delete result = %q", text)
	}

	r = callTool(t, srv, "delete_mark", map[string]interface{}{"id": w.ID})
	if !r.IsError {
		t.Error("expected error deleting twice")
	}
}

func TestHideMarkedVerses(t *testing.T) {
	srv := testServer(t)
	w := decodeMark(t, callTool(t, srv, "highlight_verses", gen1Args(map[string]interface{}{
		"verses": "1-2",
		"color":  "00ff00",
	})))

	r := callTool(t, srv, "hide_marked_verses", map[string]interface{}{"ids": w.MarkedVerses[0].ID + ", nope"})
	if !r.IsError {
		t.Error("expected error for unknown marked verse")
	}
	r = callTool(t, srv, "hide_marked_verses", map[string]interface{}{"ids": w.MarkedVerses[0].ID})
	if r.IsError {
		t.Fatalf("hide: %s", resultText(r))
	}

	r = callTool(t, srv, "get_chapter_marks", gen1Args(nil))
	var marks []models.WireMark
	if err := json.Unmarshal([]byte(resultText(r)), &marks); err != nil {
		t.Fatal(err)
	}
	if len(marks) != 1 || len(marks[0].MarkedVerses) != 1 {
		t.Errorf("marks after hide = %+v", marks)
	}
}

func TestInvalidArguments(t *testing.T) {
	srv := testServer(t)
	cases := []struct {
		tool string
		args map[string]interface{}
	}{
		{"highlight_verses", gen1Args(map[string]interface{}{"verses": "1", "color": "red"})},
		{"highlight_verses", gen1Args(map[string]interface{}{"verses": "0", "color": "#ffee00"})},
		{"highlight_verses", map[string]interface{}{"version": "kjv", "verses": "1", "color": "#ffee00"}},
		{"add_note", gen1Args(map[string]interface{}{"verses": "1", "text": ""})},
		{"add_note", gen1Args(map[string]interface{}{"verses": "", "text": "no verses"})},
		{"get_chapter_marks", map[string]interface{}{"version": "k.jv", "book": "GEN", "chapter": "1"}},
		{"list_marks", map[string]interface{}{"kind": "bookmark"}},
		{"hide_marked_verses", map[string]interface{}{"ids": " , "}},
	}
	for _, tc := range cases {
		if r := callTool(t, srv, tc.tool, tc.args); !r.IsError {
			t.Errorf("%s %v: expected error, got %q", tc.tool, tc.args, resultText(r))
		}
	}
}

func TestListMarks(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "highlight_verses", gen1Args(map[string]interface{}{"verses": "1", "color": "#ffee00"}))
	callTool(t, srv, "add_note", gen1Args(map[string]interface{}{"verses": "2", "text": "a"}))

	r := callTool(t, srv, "list_marks", map[string]interface{}{"kind": "note"})
	var page struct {
		Marks []models.WireMark `json:"marks"`
		Total int               `json:"total"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || len(page.Marks) != 1 || page.Marks[0].Note == nil {
		t.Errorf("page = %+v", page)
	}
}

func TestVerseIDContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_verse_id_contract", nil)
	if resultText(r) != VerseIDContract {
		t.Error("contract text mismatch")
	}

	contents, err := srv.readVerseIDResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
}
