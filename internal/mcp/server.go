// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the triage review surface as MCP tools, so an AI reviewer can inspect the
// workflow and drive the same approval operations as the CLI.
package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/valter-silva-au/mail-triage/internal/core"
	"github.com/valter-silva-au/mail-triage/internal/storage"
)

// Server wraps the triage services and exposes them as MCP tools.
type Server struct {
	server       *gomcp.Server
	orchestrator *core.Orchestrator
	store        storage.WorkflowStore
	references   storage.ReferenceStore
}

// NewServer creates a new MCP server with the given triage dependencies.
func NewServer(orchestrator *core.Orchestrator, store storage.WorkflowStore, references storage.ReferenceStore, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		orchestrator: orchestrator,
		store:        store,
		references:   references,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "triage", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type getStatusInput struct{}

type statusOutput struct {
	Status       string `json:"status"`
	PendingCount int    `json:"pending_count"`
	DraftCount   int    `json:"draft_count"`
	ReplyCount   int    `json:"reply_count"`
}

type listDraftsInput struct{}

type draftOutput struct {
	UID        uint32  `json:"uid"`
	From       string  `json:"from"`
	Subject    string  `json:"subject"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language,omitempty"`
	Action     string  `json:"action"`
	Summary    string  `json:"summary"`
	ReplyBody  string  `json:"reply_body,omitempty"`
}

type listDraftsOutput struct {
	Drafts []draftOutput `json:"drafts"`
	Count  int           `json:"count"`
}

type approveDraftInput struct {
	UID     uint32 `json:"uid,omitempty" jsonschema:"the UID of the draft to approve; omit or 0 to approve every remaining draft"`
	Promote bool   `json:"promote,omitempty" jsonschema:"also promote the approved draft into the reference knowledge base"`
}

type decisionOutput struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type rejectDraftInput struct {
	UID uint32 `json:"uid,omitempty" jsonschema:"the UID of the draft to reject; omit or 0 to reject every remaining draft"`
}

type listReferencesInput struct{}

type referenceOutput struct {
	ID              string   `json:"id"`
	Category        string   `json:"category"`
	QuestionSummary string   `json:"question_summary"`
	Languages       []string `json:"languages,omitempty"`
	ResponseLangs   []string `json:"response_languages,omitempty"`
}

type listReferencesOutput struct {
	References []referenceOutput `json:"references"`
	Count      int               `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_status",
		Description: "Get the current triage workflow status (idle, pending, drafted, awaiting) and batch counts.",
	}, s.handleGetStatus)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_drafts",
		Description: "List the drafts in the current batch, including classification, confidence, and the drafted reply.",
	}, s.handleListDrafts)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "approve_draft",
		Description: "Approve a draft (or all drafts): sends the drafted reply and removes the draft from the batch. Optionally promotes it into the reference knowledge base.",
	}, s.handleApproveDraft)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "reject_draft",
		Description: "Reject a draft (or all drafts) without sending anything.",
	}, s.handleRejectDraft)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_references",
		Description: "List the reference knowledge-base entries used to ground drafted replies.",
	}, s.handleListReferences)
}

// --- Tool handlers ---

func (s *Server) handleGetStatus(_ context.Context, _ *gomcp.CallToolRequest, _ getStatusInput) (*gomcp.CallToolResult, statusOutput, error) {
	drafts := s.store.LoadDrafts()
	out := statusOutput{
		Status:       string(s.store.Status()),
		PendingCount: len(s.store.LoadPending()),
		DraftCount:   len(drafts),
		ReplyCount:   core.CountReplies(drafts),
	}
	return nil, out, nil
}

func (s *Server) handleListDrafts(_ context.Context, _ *gomcp.CallToolRequest, _ listDraftsInput) (*gomcp.CallToolResult, listDraftsOutput, error) {
	drafts := s.store.LoadDrafts()
	out := listDraftsOutput{
		Drafts: make([]draftOutput, len(drafts)),
		Count:  len(drafts),
	}
	for i, d := range drafts {
		out.Drafts[i] = draftOutput{
			UID:        d.UID,
			From:       d.From,
			Subject:    d.Subject,
			Category:   d.Category,
			Confidence: d.Confidence,
			Language:   d.Language,
			Action:     string(d.Action),
			Summary:    d.Summary,
			ReplyBody:  d.ReplyBody,
		}
	}
	return nil, out, nil
}

func (s *Server) handleApproveDraft(ctx context.Context, _ *gomcp.CallToolRequest, input approveDraftInput) (*gomcp.CallToolResult, decisionOutput, error) {
	sent, err := s.orchestrator.Approve(ctx, input.UID, input.Promote)
	if err != nil {
		return errorResult(fmt.Sprintf("approving draft: %s", err)), decisionOutput{}, nil
	}
	out := decisionOutput{
		Message: fmt.Sprintf("approved; %d reply(ies) sent", sent),
		Status:  string(s.store.Status()),
	}
	return nil, out, nil
}

func (s *Server) handleRejectDraft(_ context.Context, _ *gomcp.CallToolRequest, input rejectDraftInput) (*gomcp.CallToolResult, decisionOutput, error) {
	removed, err := s.orchestrator.Reject(input.UID)
	if err != nil {
		return errorResult(fmt.Sprintf("rejecting draft: %s", err)), decisionOutput{}, nil
	}
	out := decisionOutput{
		Message: fmt.Sprintf("rejected %d draft(s)", removed),
		Status:  string(s.store.Status()),
	}
	return nil, out, nil
}

func (s *Server) handleListReferences(_ context.Context, _ *gomcp.CallToolRequest, _ listReferencesInput) (*gomcp.CallToolResult, listReferencesOutput, error) {
	entries := s.references.Load()
	out := listReferencesOutput{
		References: make([]referenceOutput, len(entries)),
		Count:      len(entries),
	}
	for i, e := range entries {
		out.References[i] = referenceOutput{
			ID:              e.ID,
			Category:        e.Category,
			QuestionSummary: e.QuestionSummary,
			Languages:       e.Languages,
			ResponseLangs:   e.ResponseLanguages(),
		}
	}
	return nil, out, nil
}

// errorResult builds a CallToolResult carrying an error message.
func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
