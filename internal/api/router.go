package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/fieldwork/internal/notify"
	"github.com/starford/fieldwork/internal/store"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(contacts *store.ContactStore, conversations *store.ConversationStore, reports *store.ReportStore, scheduler notify.Scheduler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(contacts, conversations, reports, scheduler)
	ih := NewImportHandler(contacts, conversations)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Contacts.
	r.Get("/contacts", h.ListContacts)
	r.Post("/contacts", h.CreateContact)
	r.Delete("/contacts/custom-fields/{key}", h.DeleteCustomField)
	r.Get("/contacts/{id}", h.GetContact)
	r.Patch("/contacts/{id}", h.UpdateContact)
	r.Delete("/contacts/{id}", h.DeleteContact)
	r.Post("/contacts/{id}/recover", h.RecoverContact)
	r.Delete("/contacts/{id}/purge", h.PurgeContact)
	r.Post("/contacts/{id}/dismiss", h.DismissContact)
	r.Post("/contacts/{id}/undismiss", h.UndismissContact)
	r.Get("/contacts/{id}/export", h.ExportContact)

	// Conversations.
	r.Get("/conversations", h.ListConversations)
	r.Post("/conversations", h.CreateConversation)
	r.Put("/conversations/{id}", h.UpdateConversation)
	r.Delete("/conversations/{id}", h.DeleteConversation)

	// Derived schedule views.
	r.Get("/schedule/studies", h.Studies)
	r.Get("/schedule/followups", h.FollowUps)

	// Service reports.
	r.Get("/reports", h.ListReports)
	r.Post("/reports", h.CreateReport)
	r.Delete("/reports/{id}", h.DeleteReport)
	r.Get("/reports/summary", h.ReportSummary)

	// Cross-device transfer.
	r.Post("/import", ih.Import)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
