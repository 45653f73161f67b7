package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/fieldwork/internal/models"
	"github.com/starford/fieldwork/internal/store"
)

// Conflict classifies an imported contact id against the local stores.
// Exactly one applies; the deleted partition is checked first.
type Conflict string

const (
	ConflictNone    Conflict = "none"
	ConflictActive  Conflict = "active"
	ConflictDeleted Conflict = "deleted"
)

// Decision is the user's answer to a conflict prompt.
type Decision string

const (
	// DecisionCancel dismisses the prompt; no further mutation happens.
	DecisionCancel Decision = "cancel"
	// DecisionKeep keeps the local record and discards the imported fields.
	DecisionKeep Decision = "keep"
	// DecisionReplace overwrites the local record with the imported fields.
	DecisionReplace Decision = "replace"
	// DecisionCopy accepts the import as a brand-new contact under fresh ids.
	// Only offered on an active-set conflict.
	DecisionCopy Decision = "copy"
)

// Capabilities are the external collaborators the engine calls back into.
// They are plain injected functions so the engine runs without a UI harness.
// A nil Prompt resolves every conflict as DecisionCancel.
type Capabilities struct {
	Prompt   func(ctx context.Context, conflict Conflict, existing, incoming models.Contact) (Decision, error)
	Toast    func(title, message string)
	Navigate func(contactID string)
}

// Engine reconciles validated imports against the stores. It owns no state of
// its own; all reads and writes go through the stores' public surface.
type Engine struct {
	contacts      *store.ContactStore
	conversations *store.ConversationStore
	caps          Capabilities
	now           func() time.Time
}

// NewEngine creates an import engine over the given stores.
func NewEngine(contacts *store.ContactStore, conversations *store.ConversationStore, caps Capabilities) *Engine {
	return &Engine{
		contacts:      contacts,
		conversations: conversations,
		caps:          caps,
		now:           time.Now,
	}
}

// SetClock overrides the engine clock, for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Classify returns the conflict outcome for an imported contact id. A match
// in the deleted partition takes priority over one in the active partition.
func (e *Engine) Classify(id string) Conflict {
	if _, ok := e.contacts.GetDeleted(id); ok {
		return ConflictDeleted
	}
	if _, ok := e.contacts.Get(id); ok {
		return ConflictActive
	}
	return ConflictNone
}

// Import runs the full flow: validate, classify, resolve, commit. It never
// panics past its boundary. The returned id is the contact the import landed
// on, empty when nothing was committed.
func (e *Engine) Import(ctx context.Context, data []byte) (string, error) {
	payload, err := ValidateContactImport(data)
	if err != nil {
		e.toast("importFailed_title", err.Error())
		return "", err
	}

	switch e.Classify(payload.Contact.ID) {
	case ConflictDeleted:
		return e.resolveDeleted(ctx, payload)
	case ConflictActive:
		return e.resolveActive(ctx, payload)
	default:
		return e.commitNew(payload)
	}
}

// resolveDeleted handles an id match in the deleted partition. The contact is
// recovered before the prompt; declining the overwrite afterwards does not
// undo the recovery.
func (e *Engine) resolveDeleted(ctx context.Context, payload *Payload) (string, error) {
	e.contacts.Recover(payload.Contact.ID)
	recovered, _ := e.contacts.Get(payload.Contact.ID)

	decision, err := e.prompt(ctx, ConflictDeleted, recovered, payload.Contact)
	if err != nil {
		return "", err
	}
	switch decision {
	case DecisionReplace:
		return e.commitReplace(payload)
	case DecisionKeep:
		// Recovered contact keeps its pre-import fields.
		e.finish(payload.Contact.ID)
		return payload.Contact.ID, nil
	default:
		return "", nil
	}
}

// resolveActive handles an id match in the active partition. No mutation
// happens before the user decides.
func (e *Engine) resolveActive(ctx context.Context, payload *Payload) (string, error) {
	existing, _ := e.contacts.Get(payload.Contact.ID)

	decision, err := e.prompt(ctx, ConflictActive, existing, payload.Contact)
	if err != nil {
		return "", err
	}
	switch decision {
	case DecisionReplace:
		return e.commitReplace(payload)
	case DecisionCopy:
		GenerateNewIDs(payload, e.now())
		return e.commitNew(payload)
	default:
		// Keep or cancel: the import is discarded whole. There is no
		// per-field merge.
		return "", nil
	}
}

// commitNew adds the contact and its conversations under the payload's ids.
func (e *Engine) commitNew(payload *Payload) (id string, err error) {
	defer e.recoverCommit(&err)
	e.contacts.Add(payload.Contact)
	for _, c := range payload.Conversations {
		e.conversations.Add(c)
	}
	e.finish(payload.Contact.ID)
	return payload.Contact.ID, nil
}

// commitReplace overwrites the existing contact's fields and upserts the
// imported conversations. Existing conversations absent from the payload are
// left untouched: a replace is additive, never destructive by omission.
func (e *Engine) commitReplace(payload *Payload) (id string, err error) {
	defer e.recoverCommit(&err)
	e.contacts.Update(replacePatch(payload.Contact))
	for _, c := range payload.Conversations {
		if _, ok := e.conversations.Get(c.ID); ok {
			e.conversations.Update(c)
		} else {
			e.conversations.Add(c)
		}
	}
	e.finish(payload.Contact.ID)
	return payload.Contact.ID, nil
}

// recoverCommit converts a commit-phase panic into a generic import error.
// Store mutations are synchronous and local, so the realistic failure surface
// here is the notification side effects, which are already best-effort.
func (e *Engine) recoverCommit(err *error) {
	if r := recover(); r != nil {
		slog.Error("import commit failed", slog.Any("panic", r))
		e.toast("importFailed_title", "importFailed_description")
		*err = fmt.Errorf("import commit: %v", r)
	}
}

func (e *Engine) prompt(ctx context.Context, conflict Conflict, existing, incoming models.Contact) (Decision, error) {
	if e.caps.Prompt == nil {
		return DecisionCancel, nil
	}
	return e.caps.Prompt(ctx, conflict, existing, incoming)
}

func (e *Engine) toast(title, message string) {
	if e.caps.Toast != nil {
		e.caps.Toast(title, message)
	}
}

// finish runs the success side effects: confirmation toast and navigation to
// the resulting contact.
func (e *Engine) finish(contactID string) {
	e.toast("importComplete_title", "importComplete_description")
	if e.caps.Navigate != nil {
		e.caps.Navigate(contactID)
	}
}

// replacePatch maps an imported contact onto a full-overwrite patch.
// Dismissal state is local-only and survives a replace.
func replacePatch(c models.Contact) store.ContactPatch {
	addr := models.Address{}
	if c.Address != nil {
		addr = *c.Address
	}
	dragged := c.UserDraggedCoordinate
	fields := c.CustomFields
	if fields == nil {
		fields = map[string]string{}
	}
	return store.ContactPatch{
		ID:                    c.ID,
		Name:                  &c.Name,
		Phone:                 &c.Phone,
		Email:                 &c.Email,
		Address:               &addr,
		Coordinate:            c.Coordinate,
		UserDraggedCoordinate: &dragged,
		CustomFields:          fields,
	}
}
