package store

import (
	"time"

	"github.com/starford/fieldwork/internal/models"
)

// DismissPreset is a named dismissal duration. The store itself only ever
// receives a resolved absolute timestamp; presets exist so callers share one
// vocabulary.
type DismissPreset string

// User-facing presets, plus two short ones used for manual verification.
const (
	DismissOneWeek     DismissPreset = "1w"
	DismissOneMonth    DismissPreset = "1mo"
	DismissThreeMonths DismissPreset = "3mo"
	DismissSixMonths   DismissPreset = "6mo"
	DismissOneYear     DismissPreset = "1y"
	DismissOneMinute   DismissPreset = "1min"
	DismissTenMinutes  DismissPreset = "10min"
)

// Until resolves the preset against now. The second return is false for an
// unknown preset.
func (p DismissPreset) Until(now time.Time) (time.Time, bool) {
	switch p {
	case DismissOneWeek:
		return now.AddDate(0, 0, 7), true
	case DismissOneMonth:
		return now.AddDate(0, 1, 0), true
	case DismissThreeMonths:
		return now.AddDate(0, 3, 0), true
	case DismissSixMonths:
		return now.AddDate(0, 6, 0), true
	case DismissOneYear:
		return now.AddDate(1, 0, 0), true
	case DismissOneMinute:
		return now.Add(time.Minute), true
	case DismissTenMinutes:
		return now.Add(10 * time.Minute), true
	}
	return time.Time{}, false
}

// IsContactDismissed reports whether the contact is currently suppressed.
// This is always derived, never stored as a flag, so it cannot drift from
// the timestamp.
func IsContactDismissed(c models.Contact, now time.Time) bool {
	return c.DismissedUntil != nil && c.DismissedUntil.After(now)
}

// FilterActiveContacts returns the contacts not currently dismissed.
func FilterActiveContacts(contacts []models.Contact, now time.Time) []models.Contact {
	var out []models.Contact
	for _, c := range contacts {
		if !IsContactDismissed(c, now) {
			out = append(out, c)
		}
	}
	return out
}

// DismissedContacts returns the contacts currently dismissed.
func DismissedContacts(contacts []models.Contact, now time.Time) []models.Contact {
	var out []models.Contact
	for _, c := range contacts {
		if IsContactDismissed(c, now) {
			out = append(out, c)
		}
	}
	return out
}

// CleanupExpiredDismissals clears the dismissal fields of every contact whose
// DismissedUntil is at or before now. Contacts that need no change keep their
// identity in the returned slice, so upstream change detection stays cheap.
// The sweep is idempotent.
func CleanupExpiredDismissals(contacts []models.Contact, now time.Time) ([]models.Contact, bool) {
	changed := false
	out := contacts
	for i, c := range contacts {
		if c.DismissedUntil == nil || c.DismissedUntil.After(now) {
			continue
		}
		if !changed {
			out = make([]models.Contact, len(contacts))
			copy(out, contacts)
			changed = true
		}
		out[i].DismissedUntil = nil
		out[i].DismissedNotificationID = ""
	}
	return out, changed
}
