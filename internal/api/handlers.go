package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/starford/fieldwork/internal/importer"
	"github.com/starford/fieldwork/internal/models"
	"github.com/starford/fieldwork/internal/notify"
	"github.com/starford/fieldwork/internal/schedule"
	"github.com/starford/fieldwork/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	contacts      *store.ContactStore
	conversations *store.ConversationStore
	reports       *store.ReportStore
	scheduler     notify.Scheduler
	now           func() time.Time
}

// NewHandler creates a new Handler. scheduler may be nil.
func NewHandler(contacts *store.ContactStore, conversations *store.ConversationStore, reports *store.ReportStore, scheduler notify.Scheduler) *Handler {
	return &Handler{
		contacts:      contacts,
		conversations: conversations,
		reports:       reports,
		scheduler:     scheduler,
		now:           time.Now,
	}
}

// parseMonth reads a "YYYY-MM" query value, defaulting to the current month.
func (h *Handler) parseMonth(r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return h.now(), true
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ListContacts handles GET /contacts. The view parameter selects the
// partition: active (default, dismissed filtered out), dismissed, deleted,
// or all (every active contact, dismissed included).
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	var contacts []models.Contact
	switch r.URL.Query().Get("view") {
	case "", "active":
		contacts = store.FilterActiveContacts(h.contacts.Active(), now)
	case "dismissed":
		contacts = store.DismissedContacts(h.contacts.Active(), now)
	case "deleted":
		contacts = h.contacts.Deleted()
	case "all":
		contacts = h.contacts.Active()
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("unknown view"))
		return
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	writeJSON(w, http.StatusOK, ContactListResponse{Contacts: contacts, Total: len(contacts)})
}

// CreateContact handles POST /contacts. A missing id is assigned server-side;
// an id already present in either partition is a conflict.
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var c models.Contact
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
		return
	}
	if c.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = h.now()
	}
	if _, ok := h.contacts.Get(c.ID); ok {
		writeJSON(w, http.StatusConflict, errorBody("contact already exists"))
		return
	}
	if _, ok := h.contacts.GetDeleted(c.ID); ok {
		writeJSON(w, http.StatusConflict, errorBody("contact exists in deleted set"))
		return
	}
	h.contacts.Add(c)
	created, _ := h.contacts.Get(c.ID)
	writeJSON(w, http.StatusCreated, created)
}

// GetContact handles GET /contacts/{id}.
func (h *Handler) GetContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, ok := h.contacts.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// UpdateContact handles PATCH /contacts/{id} with a partial body.
func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var patch store.ContactPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
		return
	}
	patch.ID = id
	if _, ok := h.contacts.Get(id); !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	h.contacts.Update(patch)
	c, _ := h.contacts.Get(id)
	writeJSON(w, http.StatusOK, c)
}

// DeleteContact handles DELETE /contacts/{id}: soft-delete, recoverable.
// Conversations are intentionally left in place.
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	h.contacts.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// RecoverContact handles POST /contacts/{id}/recover.
func (h *Handler) RecoverContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.contacts.GetDeleted(id); !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	h.contacts.Recover(id)
	c, _ := h.contacts.Get(id)
	writeJSON(w, http.StatusOK, c)
}

// PurgeContact handles DELETE /contacts/{id}/purge: permanent removal from
// the deleted partition plus the conversation cascade the stores themselves
// never perform.
func (h *Handler) PurgeContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.contacts.RemoveDeleted(id)
	h.conversations.DeleteForContact(id)
	w.WriteHeader(http.StatusNoContent)
}

// DismissContact handles POST /contacts/{id}/dismiss. Resolves a preset or an
// explicit RFC 3339 timestamp, schedules a best-effort "dismissal over"
// reminder, and records both on the contact.
func (h *Handler) DismissContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, ok := h.contacts.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}

	var req DismissRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
		return
	}
	var until time.Time
	switch {
	case req.Until != "":
		t, err := time.Parse(time.RFC3339, req.Until)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid until"))
			return
		}
		until = t
	case req.Preset != "":
		t, ok := store.DismissPreset(req.Preset).Until(h.now())
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorBody("unknown preset"))
			return
		}
		until = t
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("preset or until is required"))
		return
	}

	notificationID := ""
	if h.scheduler != nil {
		nid, err := h.scheduler.Schedule(until, notify.Content{
			Title:     "Dismissal over",
			Body:      c.Name,
			ContactID: id,
		})
		if err != nil {
			slog.Error("schedule dismissal reminder failed",
				slog.String("contact_id", id), slog.String("error", err.Error()))
		} else {
			notificationID = nid
		}
	}

	h.contacts.Dismiss(id, until, notificationID)
	updated, _ := h.contacts.Get(id)
	writeJSON(w, http.StatusOK, updated)
}

// UndismissContact handles POST /contacts/{id}/undismiss. Cancels the
// recorded reminder best-effort and clears both dismissal fields.
func (h *Handler) UndismissContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, ok := h.contacts.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	if h.scheduler != nil && c.DismissedNotificationID != "" {
		if err := h.scheduler.Cancel(c.DismissedNotificationID); err != nil {
			slog.Error("cancel dismissal reminder failed",
				slog.String("contact_id", id), slog.String("error", err.Error()))
		}
	}
	h.contacts.Undismiss(id)
	updated, _ := h.contacts.Get(id)
	writeJSON(w, http.StatusOK, updated)
}

// DeleteCustomField handles DELETE /contacts/custom-fields/{key}: removes the
// key from every active contact's custom-field map.
func (h *Handler) DeleteCustomField(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("key is required"))
		return
	}
	h.contacts.DeleteFieldFromAll(key)
	w.WriteHeader(http.StatusNoContent)
}

// ExportContact handles GET /contacts/{id}/export: the transfer document for
// one contact and its conversations.
func (h *Handler) ExportContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, ok := h.contacts.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	payload := importer.BuildExport(c, h.conversations.ForContact(id), h.now())
	writeJSON(w, http.StatusOK, payload)
}

// ListConversations handles GET /conversations with optional contact filter.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	var items []models.Conversation
	if contactID := r.URL.Query().Get("contact_id"); contactID != "" {
		items = h.conversations.ForContact(contactID)
	} else {
		items = h.conversations.All()
	}
	if items == nil {
		items = []models.Conversation{}
	}
	writeJSON(w, http.StatusOK, ConversationListResponse{Conversations: items, Total: len(items)})
}

// CreateConversation handles POST /conversations.
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var c models.Conversation
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
		return
	}
	if c.Contact.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("contact.id is required"))
		return
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Date.IsZero() {
		c.Date = h.now()
	}
	if _, ok := h.conversations.Get(c.ID); ok {
		writeJSON(w, http.StatusConflict, errorBody("conversation already exists"))
		return
	}
	h.conversations.Add(c)
	created, _ := h.conversations.Get(c.ID)
	writeJSON(w, http.StatusCreated, created)
}

// UpdateConversation handles PUT /conversations/{id}.
func (h *Handler) UpdateConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var c models.Conversation
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
		return
	}
	c.ID = id
	if _, ok := h.conversations.Get(id); !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	h.conversations.Update(c)
	updated, _ := h.conversations.Get(id)
	writeJSON(w, http.StatusOK, updated)
}

// DeleteConversation handles DELETE /conversations/{id}. Deletion is final
// and cancels scheduled follow-up reminders.
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	h.conversations.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// Studies handles GET /schedule/studies?month=YYYY-MM.
func (h *Handler) Studies(w http.ResponseWriter, r *http.Request) {
	month, ok := h.parseMonth(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid month"))
		return
	}
	count := schedule.StudiesForGivenMonth(h.contacts.Active(), h.conversations.All(), month)
	writeJSON(w, http.StatusOK, StudiesResponse{Month: month.Format("2006-01"), Count: count})
}

// FollowUps handles GET /schedule/followups?within_days=N. The engine leaves
// output unsorted; sorting by follow-up date is this caller's job.
func (h *Handler) FollowUps(w http.ResponseWriter, r *http.Request) {
	withinDays := 1
	if raw := r.URL.Query().Get("within_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid within_days"))
			return
		}
		withinDays = n
	}
	items := schedule.UpcomingFollowUpConversations(h.now(), h.conversations.All(), withinDays)
	sort.Slice(items, func(i, j int) bool {
		return items[i].FollowUp.Date.Before(items[j].FollowUp.Date)
	})
	if items == nil {
		items = []models.Conversation{}
	}
	writeJSON(w, http.StatusOK, FollowUpsResponse{Conversations: items})
}

// ListReports handles GET /reports.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	items := h.reports.All()
	if items == nil {
		items = []models.ServiceReport{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": items, "total": len(items)})
}

// CreateReport handles POST /reports.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var rep models.ServiceReport
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
		return
	}
	if rep.Minutes <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("minutes must be positive"))
		return
	}
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	if rep.Date.IsZero() {
		rep.Date = h.now()
	}
	h.reports.Add(rep)
	writeJSON(w, http.StatusCreated, rep)
}

// DeleteReport handles DELETE /reports/{id}.
func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	h.reports.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// ReportSummary handles GET /reports/summary?month=YYYY-MM&goal_hours=N.
func (h *Handler) ReportSummary(w http.ResponseWriter, r *http.Request) {
	month, ok := h.parseMonth(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid month"))
		return
	}
	goalHours := 0
	if raw := r.URL.Query().Get("goal_hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid goal_hours"))
			return
		}
		goalHours = n
	}
	sum := schedule.SummarizeMonth(h.reports.All(), month)
	writeJSON(w, http.StatusOK, ReportSummaryResponse{
		Month:     month.Format("2006-01"),
		Summary:   sum,
		GoalHours: goalHours,
		Progress:  schedule.GoalProgress(sum.Minutes, goalHours),
	})
}
