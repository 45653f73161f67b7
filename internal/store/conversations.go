package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/fieldwork/internal/apperr"
	"github.com/starford/fieldwork/internal/checksum"
	"github.com/starford/fieldwork/internal/models"
	"github.com/starford/fieldwork/internal/notify"
	"github.com/starford/fieldwork/internal/storage"
)

// ConversationsKey is the provider key the conversation store persists under.
const ConversationsKey = "conversations"

// ConversationStore holds all logged conversations. Unlike contacts there is
// no soft-delete: conversations are cheap to re-log, so deletion is final and
// cancels any scheduled follow-up reminders.
type ConversationStore struct {
	mu           sync.Mutex
	provider     storage.Provider
	scheduler    notify.Scheduler
	onChange     ChangeFunc
	items        []models.Conversation
	persistedSum string
}

// NewConversationStore creates a conversation store. scheduler may be nil,
// in which case follow-up reminders are silently skipped.
func NewConversationStore(provider storage.Provider, scheduler notify.Scheduler) *ConversationStore {
	return &ConversationStore{provider: provider, scheduler: scheduler}
}

// SetOnChange registers a mutation observer. Must be called before the store
// is shared across goroutines.
func (s *ConversationStore) SetOnChange(fn ChangeFunc) {
	s.onChange = fn
}

// Hydrate loads the persisted snapshot. A missing key yields an empty store.
func (s *ConversationStore) Hydrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.provider.Get(ConversationsKey)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.items = nil
			s.persistedSum = ""
			return nil
		}
		return fmt.Errorf("hydrate conversations: %w", err)
	}
	var items []models.Conversation
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("hydrate conversations: %w", err)
	}
	s.items = items
	s.persistedSum = checksum.Sum(data)
	return nil
}

func (s *ConversationStore) persistLocked() {
	items := s.items
	if items == nil {
		items = []models.Conversation{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		slog.Error("marshal conversations failed", slog.String("error", err.Error()))
		return
	}
	if err := s.provider.Set(ConversationsKey, data); err != nil {
		slog.Error("persist conversations failed", slog.String("error", err.Error()))
		return
	}
	s.persistedSum = checksum.Sum(data)
}

// PersistedChecksum returns the digest of the last snapshot written or read.
func (s *ConversationStore) PersistedChecksum() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistedSum
}

func (s *ConversationStore) notify(event, id string) {
	if s.onChange != nil {
		s.onChange(event, id)
	}
}

func indexConversation(items []models.Conversation, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// scheduleFollowUpLocked schedules a reminder for the conversation's
// follow-up if one is requested and none is recorded yet. Best-effort: a
// scheduling failure is logged and the mutation proceeds without a handle.
func (s *ConversationStore) scheduleFollowUpLocked(c *models.Conversation) {
	if s.scheduler == nil || c.FollowUp == nil || !c.FollowUp.NotifyMe || len(c.FollowUp.Notifications) > 0 {
		return
	}
	content := notify.Content{
		Title:     "Follow up",
		Body:      c.FollowUp.Topic,
		ContactID: c.Contact.ID,
	}
	id, err := s.scheduler.Schedule(c.FollowUp.Date, content)
	if err != nil {
		slog.Error("schedule follow-up reminder failed",
			slog.String("conversation_id", c.ID),
			slog.String("error", err.Error()))
		return
	}
	c.FollowUp.Notifications = append(c.FollowUp.Notifications, models.NotificationRef{
		ID:   id,
		Date: c.FollowUp.Date,
	})
}

// cancelNotificationsLocked cancels every recorded reminder handle.
// Best-effort: failures are logged and never block the caller.
func (s *ConversationStore) cancelNotificationsLocked(c models.Conversation) {
	if s.scheduler == nil || c.FollowUp == nil {
		return
	}
	for _, ref := range c.FollowUp.Notifications {
		if err := s.scheduler.Cancel(ref.ID); err != nil {
			slog.Error("cancel follow-up reminder failed",
				slog.String("notification_id", ref.ID),
				slog.String("error", err.Error()))
		}
	}
}

// Add inserts a conversation and schedules its follow-up reminder when
// requested. Silent no-op when the id already exists.
func (s *ConversationStore) Add(c models.Conversation) {
	s.mu.Lock()
	if indexConversation(s.items, c.ID) >= 0 {
		s.mu.Unlock()
		return
	}
	next := c.Clone()
	s.scheduleFollowUpLocked(&next)
	s.items = append(s.items, next)
	s.persistLocked()
	s.mu.Unlock()
	s.notify("conversation_added", c.ID)
}

// Update replaces the conversation matching c.ID in place. Never upserts.
// When the follow-up changed, old reminders are cancelled and a new one is
// scheduled; an unchanged follow-up keeps its recorded handles.
func (s *ConversationStore) Update(c models.Conversation) {
	s.mu.Lock()
	i := indexConversation(s.items, c.ID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	old := s.items[i]
	next := c.Clone()

	sameFollowUp := old.FollowUp != nil && next.FollowUp != nil &&
		old.FollowUp.Date.Equal(next.FollowUp.Date) &&
		old.FollowUp.NotifyMe == next.FollowUp.NotifyMe
	if sameFollowUp {
		if len(next.FollowUp.Notifications) == 0 {
			next.FollowUp.Notifications = old.FollowUp.Notifications
		}
	} else {
		s.cancelNotificationsLocked(old)
		if next.FollowUp != nil {
			next.FollowUp.Notifications = nil
		}
	}
	s.scheduleFollowUpLocked(&next)

	s.items[i] = next
	s.persistLocked()
	s.mu.Unlock()
	s.notify("conversation_updated", c.ID)
}

// Delete removes a conversation outright, cancelling its reminders first.
func (s *ConversationStore) Delete(id string) {
	s.mu.Lock()
	i := indexConversation(s.items, id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.cancelNotificationsLocked(s.items[i])
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.persistLocked()
	s.mu.Unlock()
	s.notify("conversation_deleted", id)
}

// DeleteForContact removes every conversation referencing the contact id.
// Used by the permanent-purge flow, which owns the contact/conversation
// cascade.
func (s *ConversationStore) DeleteForContact(contactID string) {
	s.mu.Lock()
	kept := s.items[:0]
	removed := false
	for _, c := range s.items {
		if c.Contact.ID == contactID {
			s.cancelNotificationsLocked(c)
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	if removed {
		s.items = kept
		s.persistLocked()
	}
	s.mu.Unlock()
	if removed {
		s.notify("conversations_deleted", contactID)
	}
}

// All returns a copy of every conversation.
func (s *ConversationStore) All() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneConversations(s.items)
}

// ForContact returns the conversations referencing the contact id.
func (s *ConversationStore) ForContact(contactID string) []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Conversation
	for i := range s.items {
		if s.items[i].Contact.ID == contactID {
			out = append(out, s.items[i].Clone())
		}
	}
	return out
}

// Get returns the conversation with the given id.
func (s *ConversationStore) Get(id string) (models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexConversation(s.items, id); i >= 0 {
		return s.items[i].Clone(), true
	}
	return models.Conversation{}, false
}

func cloneConversations(in []models.Conversation) []models.Conversation {
	out := make([]models.Conversation, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
