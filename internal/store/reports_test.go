package store_test

import (
	"testing"
	"time"

	"github.com/starford/fieldwork/internal/models"
	"github.com/starford/fieldwork/internal/store"
	"github.com/starford/fieldwork/internal/testutil"
)

func newReport(id string, minutes int) models.ServiceReport {
	return models.ServiceReport{
		ID:      id,
		Date:    time.Date(2023, 4, 10, 0, 0, 0, 0, time.UTC),
		Minutes: minutes,
	}
}

func TestReportLifecycle(t *testing.T) {
	provider := testutil.TestProvider(t)
	reports := store.NewReportStore(provider)
	if err := reports.Hydrate(); err != nil {
		t.Fatal(err)
	}

	reports.Add(newReport("r1", 90))
	reports.Add(newReport("r1", 999)) // duplicate id, no-op
	if got := reports.All(); len(got) != 1 || got[0].Minutes != 90 {
		t.Fatalf("after add: %+v", got)
	}

	updated := newReport("r1", 120)
	updated.Note = "afternoon witnessing"
	reports.Update(updated)
	if got := reports.All(); got[0].Minutes != 120 || got[0].Note != "afternoon witnessing" {
		t.Errorf("after update: %+v", got[0])
	}

	reports.Update(newReport("ghost", 10))
	if got := len(reports.All()); got != 1 {
		t.Errorf("update upserted: count = %d", got)
	}

	reports.Delete("r1")
	if got := len(reports.All()); got != 0 {
		t.Errorf("after delete: count = %d", got)
	}
	reports.Delete("r1") // idempotent
}

func TestReportPersistenceRoundTrip(t *testing.T) {
	provider := testutil.TestProvider(t)

	first := store.NewReportStore(provider)
	if err := first.Hydrate(); err != nil {
		t.Fatal(err)
	}
	r := newReport("r1", 60)
	r.MinistryCredit = true
	first.Add(r)

	second := store.NewReportStore(provider)
	if err := second.Hydrate(); err != nil {
		t.Fatal(err)
	}
	got := second.All()
	if len(got) != 1 || !got[0].MinistryCredit || got[0].Minutes != 60 {
		t.Errorf("round trip: %+v", got)
	}
}
