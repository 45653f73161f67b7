package store_test

import (
	"testing"
	"time"

	"github.com/starford/fieldwork/internal/models"
	"github.com/starford/fieldwork/internal/store"
	"github.com/starford/fieldwork/internal/testutil"
)

func newConversation(id, contactID string, date time.Time) models.Conversation {
	return models.Conversation{
		ID:      id,
		Contact: models.ContactRef{ID: contactID},
		Date:    date,
	}
}

func withFollowUp(c models.Conversation, at time.Time, notifyMe bool) models.Conversation {
	c.FollowUp = &models.FollowUp{Date: at, NotifyMe: notifyMe, Topic: "Return visit"}
	return c
}

func TestConversationAddSchedulesFollowUp(t *testing.T) {
	_, conversations, sched := testutil.TestStores(t)

	at := time.Now().Add(48 * time.Hour)
	conversations.Add(withFollowUp(newConversation("c1", "1", time.Now()), at, true))

	if sched.ScheduledCount() != 1 {
		t.Fatalf("scheduled = %d, want 1", sched.ScheduledCount())
	}
	if !sched.Scheduled[0].At.Equal(at) {
		t.Errorf("scheduled at %v, want %v", sched.Scheduled[0].At, at)
	}

	got, _ := conversations.Get("c1")
	if len(got.FollowUp.Notifications) != 1 {
		t.Fatalf("notifications = %d, want 1", len(got.FollowUp.Notifications))
	}
	if got.FollowUp.Notifications[0].ID != sched.Scheduled[0].ID {
		t.Error("recorded handle does not match scheduler handle")
	}
}

func TestConversationAddWithoutNotifySkipsScheduling(t *testing.T) {
	_, conversations, sched := testutil.TestStores(t)

	conversations.Add(withFollowUp(newConversation("c1", "1", time.Now()), time.Now().Add(time.Hour), false))
	conversations.Add(newConversation("c2", "1", time.Now()))

	if sched.ScheduledCount() != 0 {
		t.Errorf("scheduled = %d, want 0", sched.ScheduledCount())
	}
}

func TestConversationAddSurvivesSchedulerFailure(t *testing.T) {
	_, conversations, sched := testutil.TestStores(t)
	sched.FailSchedule = true

	conversations.Add(withFollowUp(newConversation("c1", "1", time.Now()), time.Now().Add(time.Hour), true))

	got, ok := conversations.Get("c1")
	if !ok {
		t.Fatal("conversation not stored after scheduler failure")
	}
	if len(got.FollowUp.Notifications) != 0 {
		t.Error("handle recorded despite scheduler failure")
	}
}

func TestConversationAddDuplicateIsNoOp(t *testing.T) {
	_, conversations, _ := testutil.TestStores(t)

	conversations.Add(newConversation("c1", "1", time.Now()))
	dup := newConversation("c1", "other", time.Now())
	conversations.Add(dup)

	got, _ := conversations.Get("c1")
	if got.Contact.ID != "1" {
		t.Errorf("duplicate add overwrote conversation: contact = %q", got.Contact.ID)
	}
}

func TestConversationUpdateKeepsUnchangedFollowUpHandles(t *testing.T) {
	_, conversations, sched := testutil.TestStores(t)

	at := time.Now().Add(48 * time.Hour)
	conversations.Add(withFollowUp(newConversation("c1", "1", time.Now()), at, true))
	handle := sched.Scheduled[0].ID

	// Same follow-up date and notify flag, new note: handles must survive.
	updated := withFollowUp(newConversation("c1", "1", time.Now()), at, true)
	updated.Note = "brought the brochure"
	conversations.Update(updated)

	if sched.CancelledCount() != 0 {
		t.Errorf("cancelled = %d, want 0", sched.CancelledCount())
	}
	if sched.ScheduledCount() != 1 {
		t.Errorf("scheduled = %d, want 1", sched.ScheduledCount())
	}
	got, _ := conversations.Get("c1")
	if len(got.FollowUp.Notifications) != 1 || got.FollowUp.Notifications[0].ID != handle {
		t.Error("existing handle lost on unchanged follow-up")
	}
}

func TestConversationUpdateReschedulesChangedFollowUp(t *testing.T) {
	_, conversations, sched := testutil.TestStores(t)

	at := time.Now().Add(48 * time.Hour)
	conversations.Add(withFollowUp(newConversation("c1", "1", time.Now()), at, true))
	oldHandle := sched.Scheduled[0].ID

	conversations.Update(withFollowUp(newConversation("c1", "1", time.Now()), at.Add(24*time.Hour), true))

	if sched.CancelledCount() != 1 || sched.Cancelled[0] != oldHandle {
		t.Errorf("old handle not cancelled: %v", sched.Cancelled)
	}
	if sched.ScheduledCount() != 2 {
		t.Fatalf("scheduled = %d, want 2", sched.ScheduledCount())
	}
	got, _ := conversations.Get("c1")
	if len(got.FollowUp.Notifications) != 1 || got.FollowUp.Notifications[0].ID == oldHandle {
		t.Error("follow-up not rescheduled with a fresh handle")
	}
}

func TestConversationUpdateRemovingFollowUpCancels(t *testing.T) {
	_, conversations, sched := testutil.TestStores(t)

	conversations.Add(withFollowUp(newConversation("c1", "1", time.Now()), time.Now().Add(time.Hour), true))
	conversations.Update(newConversation("c1", "1", time.Now()))

	if sched.CancelledCount() != 1 {
		t.Errorf("cancelled = %d, want 1", sched.CancelledCount())
	}
	got, _ := conversations.Get("c1")
	if got.FollowUp != nil {
		t.Error("follow-up not removed")
	}
}

func TestConversationUpdateNeverUpserts(t *testing.T) {
	_, conversations, _ := testutil.TestStores(t)

	conversations.Update(newConversation("ghost", "1", time.Now()))
	if got := len(conversations.All()); got != 0 {
		t.Errorf("update upserted: count = %d", got)
	}
}

func TestConversationDeleteCancelsReminders(t *testing.T) {
	_, conversations, sched := testutil.TestStores(t)

	conversations.Add(withFollowUp(newConversation("c1", "1", time.Now()), time.Now().Add(time.Hour), true))
	handle := sched.Scheduled[0].ID

	conversations.Delete("c1")

	if _, ok := conversations.Get("c1"); ok {
		t.Error("conversation still present after delete")
	}
	if sched.CancelledCount() != 1 || sched.Cancelled[0] != handle {
		t.Errorf("reminder not cancelled: %v", sched.Cancelled)
	}
}

func TestConversationDeleteProceedsWhenCancelFails(t *testing.T) {
	_, conversations, sched := testutil.TestStores(t)

	conversations.Add(withFollowUp(newConversation("c1", "1", time.Now()), time.Now().Add(time.Hour), true))
	sched.FailCancel = true

	conversations.Delete("c1")
	if _, ok := conversations.Get("c1"); ok {
		t.Error("cancel failure blocked the delete")
	}
}

func TestDeleteForContact(t *testing.T) {
	_, conversations, sched := testutil.TestStores(t)

	conversations.Add(withFollowUp(newConversation("c1", "1", time.Now()), time.Now().Add(time.Hour), true))
	conversations.Add(newConversation("c2", "1", time.Now()))
	conversations.Add(newConversation("c3", "2", time.Now()))

	conversations.DeleteForContact("1")

	if got := len(conversations.ForContact("1")); got != 0 {
		t.Errorf("conversations left for purged contact: %d", got)
	}
	if _, ok := conversations.Get("c3"); !ok {
		t.Error("unrelated conversation removed")
	}
	if sched.CancelledCount() != 1 {
		t.Errorf("cancelled = %d, want 1", sched.CancelledCount())
	}
}

func TestConversationPersistenceRoundTrip(t *testing.T) {
	provider := testutil.TestProvider(t)

	first := store.NewConversationStore(provider, nil)
	if err := first.Hydrate(); err != nil {
		t.Fatal(err)
	}
	c := withFollowUp(newConversation("c1", "1", time.Date(2023, 3, 10, 14, 0, 0, 0, time.UTC)), time.Date(2023, 3, 12, 10, 0, 0, 0, time.UTC), false)
	c.IsBibleStudy = true
	first.Add(c)

	second := store.NewConversationStore(provider, nil)
	if err := second.Hydrate(); err != nil {
		t.Fatal(err)
	}
	got, ok := second.Get("c1")
	if !ok {
		t.Fatal("conversation lost across hydrate")
	}
	if !got.IsBibleStudy || got.FollowUp == nil || got.FollowUp.Topic != "Return visit" {
		t.Errorf("round trip lost fields: %+v", got)
	}
}

func TestConversationDanglingContactRefTolerated(t *testing.T) {
	contacts, conversations, _ := testutil.TestStores(t)

	contacts.Add(newContact("1", "Ana"))
	conversations.Add(newConversation("c1", "1", time.Now()))
	contacts.Delete("1")
	contacts.RemoveDeleted("1")

	// The ref dangles until the purge cascade removes it; reads still work.
	got, ok := conversations.Get("c1")
	if !ok || got.Contact.ID != "1" {
		t.Error("conversation with dangling ref unreadable")
	}
}
