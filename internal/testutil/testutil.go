// Package testutil provides shared test helpers for setting up providers,
// stores, and a recording scheduler.
package testutil

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/starford/fieldwork/internal/notify"
	"github.com/starford/fieldwork/internal/storage"
	"github.com/starford/fieldwork/internal/store"
)

// TestProvider creates a file-backed provider in a temporary directory.
func TestProvider(t *testing.T) *storage.FS {
	t.Helper()
	provider, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return provider
}

// TestStores creates hydrated contact and conversation stores sharing one
// temporary provider and a recording scheduler.
func TestStores(t *testing.T) (*store.ContactStore, *store.ConversationStore, *FakeScheduler) {
	t.Helper()
	provider := TestProvider(t)
	sched := &FakeScheduler{}

	contacts := store.NewContactStore(provider)
	if err := contacts.Hydrate(); err != nil {
		t.Fatal(err)
	}
	conversations := store.NewConversationStore(provider, sched)
	if err := conversations.Hydrate(); err != nil {
		t.Fatal(err)
	}
	return contacts, conversations, sched
}

// FakeScheduler records schedule and cancel calls. Set FailSchedule or
// FailCancel to exercise best-effort error paths.
type FakeScheduler struct {
	mu           sync.Mutex
	Scheduled    []ScheduledCall
	Cancelled    []string
	FailSchedule bool
	FailCancel   bool
}

// ScheduledCall is one recorded Schedule invocation.
type ScheduledCall struct {
	ID      string
	At      time.Time
	Content notify.Content
}

// Schedule records the call and hands out a fresh handle.
func (f *FakeScheduler) Schedule(at time.Time, content notify.Content) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSchedule {
		return "", errors.New("scheduler unavailable")
	}
	id := uuid.NewString()
	f.Scheduled = append(f.Scheduled, ScheduledCall{ID: id, At: at, Content: content})
	return id, nil
}

// Cancel records the cancellation.
func (f *FakeScheduler) Cancel(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCancel {
		return errors.New("scheduler unavailable")
	}
	f.Cancelled = append(f.Cancelled, id)
	return nil
}

// ScheduledCount returns how many reminders were scheduled.
func (f *FakeScheduler) ScheduledCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Scheduled)
}

// CancelledCount returns how many reminders were cancelled.
func (f *FakeScheduler) CancelledCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Cancelled)
}
