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
	"github.com/starford/fieldwork/internal/storage"
)

// ReportsKey is the provider key the report store persists under.
const ReportsKey = "reports"

// ReportStore holds recorded service time. Same lifecycle as the other
// stores: hydrate once, persist after every mutation.
type ReportStore struct {
	mu           sync.Mutex
	provider     storage.Provider
	onChange     ChangeFunc
	items        []models.ServiceReport
	persistedSum string
}

// NewReportStore creates a report store backed by the given provider.
func NewReportStore(provider storage.Provider) *ReportStore {
	return &ReportStore{provider: provider}
}

// SetOnChange registers a mutation observer.
func (s *ReportStore) SetOnChange(fn ChangeFunc) {
	s.onChange = fn
}

// Hydrate loads the persisted snapshot. A missing key yields an empty store.
func (s *ReportStore) Hydrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.provider.Get(ReportsKey)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.items = nil
			s.persistedSum = ""
			return nil
		}
		return fmt.Errorf("hydrate reports: %w", err)
	}
	var items []models.ServiceReport
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("hydrate reports: %w", err)
	}
	s.items = items
	s.persistedSum = checksum.Sum(data)
	return nil
}

func (s *ReportStore) persistLocked() {
	items := s.items
	if items == nil {
		items = []models.ServiceReport{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		slog.Error("marshal reports failed", slog.String("error", err.Error()))
		return
	}
	if err := s.provider.Set(ReportsKey, data); err != nil {
		slog.Error("persist reports failed", slog.String("error", err.Error()))
		return
	}
	s.persistedSum = checksum.Sum(data)
}

// PersistedChecksum returns the digest of the last snapshot written or read.
func (s *ReportStore) PersistedChecksum() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistedSum
}

func (s *ReportStore) notify(event, id string) {
	if s.onChange != nil {
		s.onChange(event, id)
	}
}

func indexReport(items []models.ServiceReport, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// Add inserts a report. Silent no-op when the id already exists.
func (s *ReportStore) Add(r models.ServiceReport) {
	s.mu.Lock()
	if indexReport(s.items, r.ID) >= 0 {
		s.mu.Unlock()
		return
	}
	s.items = append(s.items, r)
	s.persistLocked()
	s.mu.Unlock()
	s.notify("report_added", r.ID)
}

// Update replaces the report matching r.ID. Never upserts.
func (s *ReportStore) Update(r models.ServiceReport) {
	s.mu.Lock()
	i := indexReport(s.items, r.ID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.items[i] = r
	s.persistLocked()
	s.mu.Unlock()
	s.notify("report_updated", r.ID)
}

// Delete removes a report.
func (s *ReportStore) Delete(id string) {
	s.mu.Lock()
	i := indexReport(s.items, id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.persistLocked()
	s.mu.Unlock()
	s.notify("report_deleted", id)
}

// All returns a copy of every report.
func (s *ReportStore) All() []models.ServiceReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ServiceReport, len(s.items))
	copy(out, s.items)
	return out
}
