// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Fieldwork tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/fieldwork/internal/importer"
	"github.com/starford/fieldwork/internal/models"
	"github.com/starford/fieldwork/internal/schedule"
	"github.com/starford/fieldwork/internal/store"
)

// Server wraps the MCP server with Fieldwork tools.
type Server struct {
	mcp           *server.MCPServer
	contacts      *store.ContactStore
	conversations *store.ConversationStore
}

// New creates a new MCP server with all Fieldwork tools registered.
func New(contacts *store.ContactStore, conversations *store.ConversationStore) *Server {
	s := &Server{contacts: contacts, conversations: conversations}

	s.mcp = server.NewMCPServer(
		"Fieldwork",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_contacts",
		mcp.WithDescription("List tracked contacts. The view argument selects active (default), dismissed, or deleted contacts."),
		mcp.WithString("view", mcp.Description("One of: active, dismissed, deleted")),
	), s.listContacts)

	s.mcp.AddTool(mcp.NewTool("get_contact",
		mcp.WithDescription("Read one contact together with its logged conversations."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Contact id")),
	), s.getContact)

	s.mcp.AddTool(mcp.NewTool("log_conversation",
		mcp.WithDescription("Log a conversation with a contact."),
		mcp.WithString("contact_id", mcp.Required(), mcp.Description("Id of the contact spoken with")),
		mcp.WithString("note", mcp.Description("Free-text note")),
		mcp.WithBoolean("is_bible_study", mcp.Description("Whether the conversation was a study")),
		mcp.WithBoolean("not_at_home", mcp.Description("Whether nobody was home")),
	), s.logConversation)

	s.mcp.AddTool(mcp.NewTool("studies_for_month",
		mcp.WithDescription("Count the distinct contacts studied with in a calendar month."),
		mcp.WithString("month", mcp.Description("Month as YYYY-MM (defaults to the current month)")),
	), s.studiesForMonth)

	s.mcp.AddTool(mcp.NewTool("upcoming_follow_ups",
		mcp.WithDescription("List conversations with a follow-up due in the upcoming window."),
		mcp.WithNumber("within_days", mcp.Description("Evening-view horizon in days (default 1)")),
	), s.upcomingFollowUps)

	s.mcp.AddTool(mcp.NewTool("export_contact",
		mcp.WithDescription("Produce the JSON transfer document for one contact and its conversations."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Contact id")),
	), s.exportContact)

	s.mcp.AddTool(mcp.NewTool("import_contact",
		mcp.WithDescription("Import a contact transfer document. On an id conflict, pass resolution=keep|replace|copy."),
		mcp.WithString("payload", mcp.Required(), mcp.Description("The transfer document JSON")),
		mcp.WithString("resolution", mcp.Description("Conflict resolution: keep, replace, or copy")),
	), s.importContact)

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

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listContacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	now := time.Now()
	var contacts []models.Contact
	switch req.GetString("view", "active") {
	case "active":
		contacts = store.FilterActiveContacts(s.contacts.Active(), now)
	case "dismissed":
		contacts = store.DismissedContacts(s.contacts.Active(), now)
	case "deleted":
		contacts = s.contacts.Deleted()
	default:
		return mcp.NewToolResultError("unknown view"), nil
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	return jsonResult(contacts), nil
}

func (s *Server) getContact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, ok := s.contacts.Get(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(map[string]any{
		"contact":       c,
		"conversations": s.conversations.ForContact(id),
	}), nil
}

func (s *Server) logConversation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contactID, err := req.RequireString("contact_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, ok := s.contacts.Get(contactID); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", contactID)), nil
	}
	conv := models.Conversation{
		ID:           uuid.NewString(),
		Contact:      models.ContactRef{ID: contactID},
		Date:         time.Now(),
		IsBibleStudy: req.GetBool("is_bible_study", false),
		NotAtHome:    req.GetBool("not_at_home", false),
		Note:         req.GetString("note", ""),
	}
	s.conversations.Add(conv)
	return jsonResult(conv), nil
}

func (s *Server) studiesForMonth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	month := time.Now()
	if raw := req.GetString("month", ""); raw != "" {
		t, err := time.Parse("2006-01", raw)
		if err != nil {
			return mcp.NewToolResultError("month must be YYYY-MM"), nil
		}
		month = t
	}
	count := schedule.StudiesForGivenMonth(s.contacts.Active(), s.conversations.All(), month)
	return jsonResult(map[string]any{
		"month": month.Format("2006-01"),
		"count": count,
	}), nil
}

func (s *Server) upcomingFollowUps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	withinDays := int(req.GetFloat("within_days", 1))
	if withinDays < 0 {
		return mcp.NewToolResultError("within_days must not be negative"), nil
	}
	items := schedule.UpcomingFollowUpConversations(time.Now(), s.conversations.All(), withinDays)
	if items == nil {
		items = []models.Conversation{}
	}
	return jsonResult(items), nil
}

func (s *Server) exportContact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, ok := s.contacts.Get(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	payload := importer.BuildExport(c, s.conversations.ForContact(id), time.Now())
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) importContact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("payload")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resolution := req.GetString("resolution", "")

	caps := importer.Capabilities{
		Prompt: func(_ context.Context, conflict importer.Conflict, _, _ models.Contact) (importer.Decision, error) {
			switch resolution {
			case "keep":
				return importer.DecisionKeep, nil
			case "replace":
				return importer.DecisionReplace, nil
			case "copy":
				if conflict == importer.ConflictActive {
					return importer.DecisionCopy, nil
				}
				return importer.DecisionKeep, nil
			}
			return importer.DecisionCancel, fmt.Errorf("conflict (%s): pass resolution=keep|replace|copy", conflict)
		},
	}
	engine := importer.NewEngine(s.contacts, s.conversations, caps)
	contactID, err := engine.Import(ctx, []byte(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if contactID == "" {
		return mcp.NewToolResultText("import discarded"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("imported: %s", contactID)), nil
}
