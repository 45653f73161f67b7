package store_test

import (
	"testing"
	"time"

	"github.com/starford/fieldwork/internal/models"
	"github.com/starford/fieldwork/internal/store"
	"github.com/starford/fieldwork/internal/testutil"
)

func newContact(id, name string) models.Contact {
	return models.Contact{ID: id, Name: name, CreatedAt: time.Date(2023, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func TestAddAndGet(t *testing.T) {
	contacts, _, _ := testutil.TestStores(t)

	contacts.Add(newContact("1", "Ana"))
	c, ok := contacts.Get("1")
	if !ok {
		t.Fatal("contact not found after add")
	}
	if c.Name != "Ana" {
		t.Errorf("name = %q, want Ana", c.Name)
	}
}

func TestAddDuplicateIsNoOp(t *testing.T) {
	contacts, _, _ := testutil.TestStores(t)

	contacts.Add(newContact("1", "Ana"))
	contacts.Add(newContact("1", "Impostor"))

	c, _ := contacts.Get("1")
	if c.Name != "Ana" {
		t.Errorf("duplicate add overwrote contact: name = %q", c.Name)
	}
	if got := len(contacts.Active()); got != 1 {
		t.Errorf("active count = %d, want 1", got)
	}
}

func TestAddCollidingWithDeletedIsNoOp(t *testing.T) {
	contacts, _, _ := testutil.TestStores(t)

	contacts.Add(newContact("1", "Ana"))
	contacts.Delete("1")
	contacts.Add(newContact("1", "Resurrected"))

	if _, ok := contacts.Get("1"); ok {
		t.Error("add resurrected a deleted contact")
	}
	d, ok := contacts.GetDeleted("1")
	if !ok {
		t.Fatal("deleted contact vanished")
	}
	if d.Name != "Ana" {
		t.Errorf("deleted contact overwritten: name = %q", d.Name)
	}
}

func TestDeleteAndRecover(t *testing.T) {
	contacts, _, _ := testutil.TestStores(t)

	contacts.Add(newContact("1", "Ana"))
	contacts.Delete("1")

	if _, ok := contacts.Get("1"); ok {
		t.Error("contact still active after delete")
	}
	if _, ok := contacts.GetDeleted("1"); !ok {
		t.Error("contact missing from deleted set")
	}

	contacts.Recover("1")
	if _, ok := contacts.Get("1"); !ok {
		t.Error("contact not active after recover")
	}
	if _, ok := contacts.GetDeleted("1"); ok {
		t.Error("contact still in deleted set after recover")
	}
}

func TestDeleteMissingIsNoOp(t *testing.T) {
	contacts, _, _ := testutil.TestStores(t)
	contacts.Delete("ghost")
	contacts.Recover("ghost")
	contacts.RemoveDeleted("ghost")
	if got := len(contacts.Active()) + len(contacts.Deleted()); got != 0 {
		t.Errorf("stores not empty: %d", got)
	}
}

func TestRemoveDeletedPurges(t *testing.T) {
	contacts, _, _ := testutil.TestStores(t)

	contacts.Add(newContact("1", "Ana"))
	contacts.Delete("1")
	contacts.RemoveDeleted("1")

	if _, ok := contacts.GetDeleted("1"); ok {
		t.Error("contact still in deleted set after purge")
	}

	// The id is free again afterwards.
	contacts.Add(newContact("1", "New Ana"))
	if _, ok := contacts.Get("1"); !ok {
		t.Error("id not reusable after purge")
	}
}

func TestUpdateMergesPartial(t *testing.T) {
	contacts, _, _ := testutil.TestStores(t)

	c := newContact("1", "Ana")
	c.Phone = "555-0100"
	c.CustomFields = map[string]string{"language": "pt"}
	contacts.Add(c)

	name := "Ana Silva"
	contacts.Update(store.ContactPatch{ID: "1", Name: &name})

	got, _ := contacts.Get("1")
	if got.Name != "Ana Silva" {
		t.Errorf("name = %q", got.Name)
	}
	if got.Phone != "555-0100" {
		t.Errorf("unpatched phone changed: %q", got.Phone)
	}
	if got.CustomFields["language"] != "pt" {
		t.Errorf("unpatched custom fields changed: %v", got.CustomFields)
	}
}

func TestUpdateNeverUpserts(t *testing.T) {
	contacts, _, _ := testutil.TestStores(t)

	name := "Ghost"
	contacts.Update(store.ContactPatch{ID: "missing", Name: &name})
	if got := len(contacts.Active()); got != 0 {
		t.Errorf("update upserted: active count = %d", got)
	}
}

func TestUpdateClearsAddressWithEmptyPatch(t *testing.T) {
	contacts, _, _ := testutil.TestStores(t)

	c := newContact("1", "Ana")
	c.Address = &models.Address{Line1: "1 Main St", City: "Springfield"}
	contacts.Add(c)

	contacts.Update(store.ContactPatch{ID: "1", Address: &models.Address{}})
	got, _ := contacts.Get("1")
	if got.Address != nil {
		t.Errorf("address not cleared: %+v", got.Address)
	}
}

func TestDeleteFieldFromAll(t *testing.T) {
	contacts, _, _ := testutil.TestStores(t)

	a := newContact("1", "Ana")
	a.CustomFields = map[string]string{"language": "pt", "notes": "x"}
	b := newContact("2", "Ben")
	b.CustomFields = map[string]string{"notes": "y"}
	contacts.Add(a)
	contacts.Add(b)

	contacts.DeleteFieldFromAll("language")

	gotA, _ := contacts.Get("1")
	if _, ok := gotA.CustomFields["language"]; ok {
		t.Error("field not removed from contact 1")
	}
	if gotA.CustomFields["notes"] != "x" {
		t.Error("unrelated field removed from contact 1")
	}
	gotB, _ := contacts.Get("2")
	if gotB.CustomFields["notes"] != "y" {
		t.Error("contact without the field was modified")
	}
}

func TestDismissAndUndismiss(t *testing.T) {
	contacts, _, _ := testutil.TestStores(t)

	contacts.Add(newContact("1", "Ana"))
	until := time.Now().AddDate(0, 1, 0)
	contacts.Dismiss("1", until, "notif-42")

	c, _ := contacts.Get("1")
	if c.DismissedUntil == nil || !c.DismissedUntil.Equal(until) {
		t.Fatalf("dismissedUntil = %v, want %v", c.DismissedUntil, until)
	}
	if c.DismissedNotificationID != "notif-42" {
		t.Errorf("notification id = %q", c.DismissedNotificationID)
	}

	contacts.Undismiss("1")
	c, _ = contacts.Get("1")
	if c.DismissedUntil != nil {
		t.Error("dismissedUntil not cleared")
	}
	if c.DismissedNotificationID != "" {
		t.Error("stale notification handle retained after undismiss")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	provider := testutil.TestProvider(t)

	first := store.NewContactStore(provider)
	if err := first.Hydrate(); err != nil {
		t.Fatal(err)
	}
	c := newContact("1", "Ana")
	c.Address = &models.Address{Line1: "1 Main St"}
	first.Add(c)
	first.Add(newContact("2", "Ben"))
	first.Delete("2")

	second := store.NewContactStore(provider)
	if err := second.Hydrate(); err != nil {
		t.Fatal(err)
	}
	got, ok := second.Get("1")
	if !ok {
		t.Fatal("active contact lost across hydrate")
	}
	if got.Address == nil || got.Address.Line1 != "1 Main St" {
		t.Errorf("address lost: %+v", got.Address)
	}
	if _, ok := second.GetDeleted("2"); !ok {
		t.Error("deleted partition lost across hydrate")
	}
}

func TestActiveReturnsCopies(t *testing.T) {
	contacts, _, _ := testutil.TestStores(t)

	c := newContact("1", "Ana")
	c.CustomFields = map[string]string{"k": "v"}
	contacts.Add(c)

	list := contacts.Active()
	list[0].CustomFields["k"] = "mutated"
	list[0].Name = "mutated"

	got, _ := contacts.Get("1")
	if got.Name != "Ana" || got.CustomFields["k"] != "v" {
		t.Error("store state aliased by returned slice")
	}
}
