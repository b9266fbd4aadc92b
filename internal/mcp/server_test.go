package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/valter-silva-au/mail-triage/internal/core"
	"github.com/valter-silva-au/mail-triage/internal/storage"
	"github.com/valter-silva-au/mail-triage/pkg/models"
)

// --- Fake implementations ---

type fakeSender struct {
	sent []models.Draft
}

func (f *fakeSender) SendReply(_ context.Context, draft models.Draft) error {
	f.sent = append(f.sent, draft)
	return nil
}

type fakeNotifier struct{}

func (f *fakeNotifier) Send(string) error { return nil }

type fakeEngine struct{}

func (f *fakeEngine) CompleteJSON(context.Context, string, any, map[string]any) (json.RawMessage, error) {
	return json.RawMessage(`{"drafts": []}`), nil
}

// --- Test helpers ---

type testDeps struct {
	srv    *Server
	store  storage.WorkflowStore
	sender *fakeSender
}

// newTestServer builds a server over a throwaway workspace, with a batch of
// drafts already awaiting review.
func newTestServer(t *testing.T) *testDeps {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewWorkflowStore(dir)
	if err != nil {
		t.Fatalf("workflow store: %v", err)
	}
	references := storage.NewReferenceStore(filepath.Join(dir, "data", "reference-responses.json"), nil)
	sender := &fakeSender{}

	orch := core.NewOrchestrator(store, references, core.NewClassifier(&fakeEngine{}, nil), nil, sender, &fakeNotifier{}, nil)
	srv := NewServer(orch, store, references, "test")

	if err := store.RecordPending([]models.Email{
		{UID: 11, From: "anna@example.com", Subject: "Card declined", Text: "My card was declined."},
		{UID: 12, From: "noreply@notifications.example", Subject: "Weekly report", Text: "Stats."},
	}); err != nil {
		t.Fatalf("seeding pending: %v", err)
	}
	if err := store.RecordDrafts([]models.Draft{
		{UID: 11, From: "anna@example.com", Subject: "Card declined", Category: "payment", Confidence: 0.9, Action: models.ActionReply, ReplyBody: "Please check your card."},
		{UID: 12, From: "noreply@notifications.example", Subject: "Weekly report", Category: "unknown", Confidence: 0.99, Action: models.ActionIgnore},
	}); err != nil {
		t.Fatalf("seeding drafts: %v", err)
	}
	if err := store.ClearPending(); err != nil {
		t.Fatalf("clearing pending: %v", err)
	}
	if err := store.MarkPosted(); err != nil {
		t.Fatalf("marking posted: %v", err)
	}

	return &testDeps{srv: srv, store: store, sender: sender}
}

// callTool connects an in-memory client to the server and calls one tool.
func callTool(t *testing.T, srv *Server, toolName string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()

	ctx := context.Background()
	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	t1, t2 := gomcp.NewInMemoryTransports()

	go func() {
		_ = srv.MCPServer().Run(ctx, t1)
	}()

	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &gomcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call tool %s: %v", toolName, err)
	}
	return result
}

func decodeResult(t *testing.T, result *gomcp.CallToolResult, out any) {
	t.Helper()
	if result.StructuredContent == nil {
		t.Fatalf("result has no structured content: %+v", result)
	}
	data, err := json.Marshal(result.StructuredContent)
	if err != nil {
		t.Fatalf("marshaling structured content: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decoding structured content: %v", err)
	}
}

// --- Tests ---

func TestGetStatus(t *testing.T) {
	deps := newTestServer(t)

	result := callTool(t, deps.srv, "get_status", map[string]any{})
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result)
	}

	var out statusOutput
	decodeResult(t, result, &out)
	if out.Status != "awaiting" {
		t.Errorf("expected awaiting, got %s", out.Status)
	}
	if out.DraftCount != 2 || out.ReplyCount != 1 {
		t.Errorf("unexpected counts: %+v", out)
	}
}

func TestListDrafts(t *testing.T) {
	deps := newTestServer(t)

	result := callTool(t, deps.srv, "list_drafts", map[string]any{})
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result)
	}

	var out listDraftsOutput
	decodeResult(t, result, &out)
	if out.Count != 2 {
		t.Fatalf("expected 2 drafts, got %d", out.Count)
	}
	if out.Drafts[0].UID != 11 || out.Drafts[0].Action != "reply" {
		t.Errorf("unexpected first draft: %+v", out.Drafts[0])
	}
	if out.Drafts[0].ReplyBody != "Please check your card." {
		t.Errorf("reply body missing: %+v", out.Drafts[0])
	}
}

func TestApproveDraft(t *testing.T) {
	deps := newTestServer(t)

	result := callTool(t, deps.srv, "approve_draft", map[string]any{"uid": 11})
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result)
	}

	var out decisionOutput
	decodeResult(t, result, &out)
	if out.Status != "awaiting" {
		t.Errorf("expected awaiting with one draft left, got %s", out.Status)
	}
	if len(deps.sender.sent) != 1 || deps.sender.sent[0].UID != 11 {
		t.Errorf("reply not sent: %+v", deps.sender.sent)
	}
	if remaining := deps.store.LoadDrafts(); len(remaining) != 1 {
		t.Errorf("expected 1 remaining draft, got %d", len(remaining))
	}
}

func TestApproveAllDrafts(t *testing.T) {
	deps := newTestServer(t)

	result := callTool(t, deps.srv, "approve_draft", map[string]any{})
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result)
	}

	var out decisionOutput
	decodeResult(t, result, &out)
	if out.Status != "idle" {
		t.Errorf("expected idle after approving everything, got %s", out.Status)
	}
}

func TestApproveUnknownUID(t *testing.T) {
	deps := newTestServer(t)

	result := callTool(t, deps.srv, "approve_draft", map[string]any{"uid": 999})
	if !result.IsError {
		t.Fatal("expected error result for unknown uid")
	}
	// The batch is untouched.
	if drafts := deps.store.LoadDrafts(); len(drafts) != 2 {
		t.Errorf("expected 2 drafts retained, got %d", len(drafts))
	}
}

func TestRejectDraft(t *testing.T) {
	deps := newTestServer(t)

	result := callTool(t, deps.srv, "reject_draft", map[string]any{"uid": 12})
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result)
	}

	var out decisionOutput
	decodeResult(t, result, &out)
	if out.Status != "awaiting" {
		t.Errorf("expected awaiting, got %s", out.Status)
	}
	if len(deps.sender.sent) != 0 {
		t.Errorf("reject must not send: %+v", deps.sender.sent)
	}
}

func TestListReferences(t *testing.T) {
	deps := newTestServer(t)

	result := callTool(t, deps.srv, "list_references", map[string]any{})
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result)
	}

	var out listReferencesOutput
	decodeResult(t, result, &out)
	if out.Count != 0 {
		t.Errorf("expected empty reference set, got %d", out.Count)
	}
}
