package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/starford/fieldwork/internal/apperr"
	"github.com/starford/fieldwork/internal/importer"
	"github.com/starford/fieldwork/internal/models"
	"github.com/starford/fieldwork/internal/store"
)

// ImportHandler adapts the interactive import flow to stateless HTTP. The
// engine's conflict prompt becomes a 409 response; the client answers by
// re-submitting the same payload with ?resolution=keep|replace|copy.
type ImportHandler struct {
	contacts      *store.ContactStore
	conversations *store.ConversationStore
}

// NewImportHandler creates the import endpoint handler.
func NewImportHandler(contacts *store.ContactStore, conversations *store.ConversationStore) *ImportHandler {
	return &ImportHandler{contacts: contacts, conversations: conversations}
}

// resolutionRequired is returned through the engine's prompt capability when
// the request carried no resolution parameter.
type resolutionRequired struct {
	conflict importer.Conflict
	existing models.Contact
}

func (e *resolutionRequired) Error() string { return "resolution required" }

func parseResolution(raw string) (importer.Decision, bool) {
	switch raw {
	case "keep":
		return importer.DecisionKeep, true
	case "replace":
		return importer.DecisionReplace, true
	case "copy":
		return importer.DecisionCopy, true
	}
	return "", false
}

// Import handles POST /import.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
		return
	}

	rawResolution := r.URL.Query().Get("resolution")
	resolution, haveResolution := parseResolution(rawResolution)
	if rawResolution != "" && !haveResolution {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown resolution"))
		return
	}

	// Per-request capability set: the prompt answers from the query
	// parameter, success side effects are collected into the response.
	var navigatedTo string
	caps := importer.Capabilities{
		Prompt: func(_ context.Context, conflict importer.Conflict, existing, _ models.Contact) (importer.Decision, error) {
			if !haveResolution {
				return importer.DecisionCancel, &resolutionRequired{conflict: conflict, existing: existing}
			}
			// Copy only applies to active-set conflicts; a recovered
			// contact is resolved keep-or-replace.
			if resolution == importer.DecisionCopy && conflict != importer.ConflictActive {
				return importer.DecisionKeep, nil
			}
			return resolution, nil
		},
		Toast: func(title, message string) {
			slog.Debug("import toast", slog.String("title", title), slog.String("message", message))
		},
		Navigate: func(contactID string) {
			navigatedTo = contactID
		},
	}

	engine := importer.NewEngine(h.contacts, h.conversations, caps)
	contactID, err := engine.Import(r.Context(), body)
	if err != nil {
		var need *resolutionRequired
		switch {
		case errors.As(err, &need):
			writeJSON(w, http.StatusConflict, ImportConflictResponse{
				Error:    "conflict",
				Conflict: need.conflict,
				Existing: need.existing,
			})
		case errors.Is(err, apperr.ErrInvalidImport):
			writeJSON(w, http.StatusBadRequest, errorBody(apperr.ErrInvalidImport.Error()))
		default:
			slog.Error("import failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("import failed"))
		}
		return
	}
	if contactID == "" {
		// Keep on an active-set conflict: the import was discarded whole.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if navigatedTo != "" {
		w.Header().Set("Location", "/api/contacts/"+navigatedTo)
	}
	writeJSON(w, http.StatusOK, ImportResponse{ContactID: contactID})
}
