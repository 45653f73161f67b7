// Package store implements the persisted entity stores: in-memory collections
// hydrated once at startup and written back through the storage provider
// after every mutation.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/fieldwork/internal/apperr"
	"github.com/starford/fieldwork/internal/checksum"
	"github.com/starford/fieldwork/internal/models"
	"github.com/starford/fieldwork/internal/storage"
)

// ContactsKey is the provider key the contact store persists under.
const ContactsKey = "contacts"

// ChangeFunc observes store mutations, e.g. to broadcast SSE events.
type ChangeFunc func(event, id string)

// contactState is the persisted snapshot: both partitions under one key so
// hydration always sees a consistent active/deleted split.
type contactState struct {
	Active  []models.Contact `json:"active"`
	Deleted []models.Contact `json:"deleted"`
}

// ContactStore owns the active/deleted partition of all contacts. A contact
// id exists in at most one partition at a time. Mutators targeting a missing
// id are silent no-ops so they can be safely re-invoked.
type ContactStore struct {
	mu           sync.Mutex
	provider     storage.Provider
	onChange     ChangeFunc
	active       []models.Contact
	deleted      []models.Contact
	persistedSum string
}

// NewContactStore creates a contact store backed by the given provider.
// Call Hydrate before use.
func NewContactStore(provider storage.Provider) *ContactStore {
	return &ContactStore{provider: provider}
}

// SetOnChange registers a mutation observer. Must be called before the store
// is shared across goroutines.
func (s *ContactStore) SetOnChange(fn ChangeFunc) {
	s.onChange = fn
}

// Hydrate loads the persisted snapshot. A missing key yields an empty store.
func (s *ContactStore) Hydrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.provider.Get(ContactsKey)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.active, s.deleted = nil, nil
			s.persistedSum = ""
			return nil
		}
		return fmt.Errorf("hydrate contacts: %w", err)
	}
	var state contactState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("hydrate contacts: %w", err)
	}
	s.active = state.Active
	s.deleted = state.Deleted
	s.persistedSum = checksum.Sum(data)
	return nil
}

// persistLocked writes the current snapshot. Persistence is fire-and-forget
// from the mutator's point of view: failures are logged, never propagated.
func (s *ContactStore) persistLocked() {
	state := contactState{Active: s.active, Deleted: s.deleted}
	if state.Active == nil {
		state.Active = []models.Contact{}
	}
	if state.Deleted == nil {
		state.Deleted = []models.Contact{}
	}
	data, err := json.Marshal(state)
	if err != nil {
		slog.Error("marshal contacts failed", slog.String("error", err.Error()))
		return
	}
	if err := s.provider.Set(ContactsKey, data); err != nil {
		slog.Error("persist contacts failed", slog.String("error", err.Error()))
		return
	}
	s.persistedSum = checksum.Sum(data)
}

// PersistedChecksum returns the digest of the last snapshot written or read.
func (s *ContactStore) PersistedChecksum() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistedSum
}

func (s *ContactStore) notify(event, id string) {
	if s.onChange != nil {
		s.onChange(event, id)
	}
}

func indexByID(contacts []models.Contact, id string) int {
	for i := range contacts {
		if contacts[i].ID == id {
			return i
		}
	}
	return -1
}

// Add inserts a contact into the active set. It is a silent no-op when the id
// already exists in either partition, which prevents an import or a replayed
// mutation from resurrecting or duplicating a record.
func (s *ContactStore) Add(c models.Contact) {
	s.mu.Lock()
	if indexByID(s.active, c.ID) >= 0 || indexByID(s.deleted, c.ID) >= 0 {
		s.mu.Unlock()
		return
	}
	s.active = append(s.active, c.Clone())
	s.persistLocked()
	s.mu.Unlock()
	s.notify("contact_added", c.ID)
}

// Delete soft-deletes: the contact moves from the active to the deleted
// partition and stays recoverable. Conversations are not touched.
func (s *ContactStore) Delete(id string) {
	s.mu.Lock()
	i := indexByID(s.active, id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	c := s.active[i]
	s.active = append(s.active[:i], s.active[i+1:]...)
	s.deleted = append(s.deleted, c)
	s.persistLocked()
	s.mu.Unlock()
	s.notify("contact_deleted", id)
}

// Recover moves a contact from the deleted partition back to active.
func (s *ContactStore) Recover(id string) {
	s.mu.Lock()
	i := indexByID(s.deleted, id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	c := s.deleted[i]
	s.deleted = append(s.deleted[:i], s.deleted[i+1:]...)
	s.active = append(s.active, c)
	s.persistLocked()
	s.mu.Unlock()
	s.notify("contact_recovered", id)
}

// RemoveDeleted purges a contact from the deleted partition permanently.
// Cascading conversation cleanup is the caller's responsibility.
func (s *ContactStore) RemoveDeleted(id string) {
	s.mu.Lock()
	i := indexByID(s.deleted, id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.deleted = append(s.deleted[:i], s.deleted[i+1:]...)
	s.persistLocked()
	s.mu.Unlock()
	s.notify("contact_removed", id)
}

// ContactPatch carries a partial contact update. Only non-nil fields are
// applied. Dismissal fields are owned by the dismissal lifecycle and are not
// patchable here.
type ContactPatch struct {
	ID                    string             `json:"id"`
	Name                  *string            `json:"name,omitempty"`
	Phone                 *string            `json:"phone,omitempty"`
	Email                 *string            `json:"email,omitempty"`
	Address               *models.Address    `json:"address,omitempty"`
	Coordinate            *models.Coordinate `json:"coordinate,omitempty"`
	UserDraggedCoordinate *bool              `json:"userDraggedCoordinate,omitempty"`
	CustomFields          map[string]string  `json:"customFields,omitempty"`
}

// Update merges the patch into the active contact matching patch.ID.
// It never upserts: a missing id is a silent no-op.
func (s *ContactStore) Update(patch ContactPatch) {
	s.mu.Lock()
	i := indexByID(s.active, patch.ID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	c := &s.active[i]
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Phone != nil {
		c.Phone = *patch.Phone
	}
	if patch.Email != nil {
		c.Email = *patch.Email
	}
	if patch.Address != nil {
		if patch.Address.IsEmpty() {
			c.Address = nil
		} else {
			addr := *patch.Address
			c.Address = &addr
		}
	}
	if patch.Coordinate != nil {
		coord := *patch.Coordinate
		c.Coordinate = &coord
	}
	if patch.UserDraggedCoordinate != nil {
		c.UserDraggedCoordinate = *patch.UserDraggedCoordinate
	}
	if patch.CustomFields != nil {
		fields := make(map[string]string, len(patch.CustomFields))
		for k, v := range patch.CustomFields {
			fields[k] = v
		}
		c.CustomFields = fields
	}
	s.persistLocked()
	s.mu.Unlock()
	s.notify("contact_updated", patch.ID)
}

// DeleteFieldFromAll removes one custom-field key from every active contact.
// Contacts without that key are untouched.
func (s *ContactStore) DeleteFieldFromAll(fieldKey string) {
	s.mu.Lock()
	changed := false
	for i := range s.active {
		if _, ok := s.active[i].CustomFields[fieldKey]; ok {
			delete(s.active[i].CustomFields, fieldKey)
			changed = true
		}
	}
	if changed {
		s.persistLocked()
	}
	s.mu.Unlock()
	if changed {
		s.notify("contacts_updated", "")
	}
}

// Dismiss suppresses an active contact until the given absolute time,
// optionally recording the handle of a scheduled "dismissal over" reminder.
func (s *ContactStore) Dismiss(id string, until time.Time, notificationID string) {
	s.mu.Lock()
	i := indexByID(s.active, id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	u := until
	s.active[i].DismissedUntil = &u
	s.active[i].DismissedNotificationID = notificationID
	s.persistLocked()
	s.mu.Unlock()
	s.notify("contact_dismissed", id)
}

// Undismiss clears both dismissal fields. Clearing only the date would leave
// a stale notification handle behind.
func (s *ContactStore) Undismiss(id string) {
	s.mu.Lock()
	i := indexByID(s.active, id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.active[i].DismissedUntil = nil
	s.active[i].DismissedNotificationID = ""
	s.persistLocked()
	s.mu.Unlock()
	s.notify("contact_undismissed", id)
}

// CleanupExpiredDismissals clears dismissal fields on every active contact
// whose dismissal has elapsed at now. Idempotent; persists only when
// something changed.
func (s *ContactStore) CleanupExpiredDismissals(now time.Time) {
	s.mu.Lock()
	cleaned, changed := CleanupExpiredDismissals(s.active, now)
	if changed {
		s.active = cleaned
		s.persistLocked()
	}
	s.mu.Unlock()
	if changed {
		s.notify("contacts_updated", "")
	}
}

// Active returns a copy of the active partition, dismissed contacts included.
func (s *ContactStore) Active() []models.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneContacts(s.active)
}

// Deleted returns a copy of the deleted partition.
func (s *ContactStore) Deleted() []models.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneContacts(s.deleted)
}

// Get returns the active contact with the given id.
func (s *ContactStore) Get(id string) (models.Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexByID(s.active, id); i >= 0 {
		return s.active[i].Clone(), true
	}
	return models.Contact{}, false
}

// GetDeleted returns the deleted contact with the given id.
func (s *ContactStore) GetDeleted(id string) (models.Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexByID(s.deleted, id); i >= 0 {
		return s.deleted[i].Clone(), true
	}
	return models.Contact{}, false
}

func cloneContacts(in []models.Contact) []models.Contact {
	out := make([]models.Contact, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
