// Package schedule computes calendar-windowed derived views over contacts,
// conversations, and service reports. Every function is pure: inputs plus a
// reference time in, values out, no store access.
package schedule

import (
	"time"

	"github.com/starford/fieldwork/internal/models"
)

// sameMonth reports whether a and b fall in the same calendar month of the
// same year. Matching on month alone would wrongly equate November 2022 with
// November 2023.
func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// ContactStudiedForGivenMonth reports whether the contact has at least one
// study conversation dated in the same calendar month and year as month.
func ContactStudiedForGivenMonth(contact models.Contact, conversations []models.Conversation, month time.Time) bool {
	for _, c := range conversations {
		if c.Contact.ID == contact.ID && c.IsBibleStudy && sameMonth(c.Date, month) {
			return true
		}
	}
	return false
}

// ContactHasAtLeastOneStudy reports whether any study conversation exists for
// the contact, regardless of date.
func ContactHasAtLeastOneStudy(contact models.Contact, conversations []models.Conversation) bool {
	for _, c := range conversations {
		if c.Contact.ID == contact.ID && c.IsBibleStudy {
			return true
		}
	}
	return false
}

// ContactMostRecentStudy returns the study conversation with the latest date
// for the contact, or nil if none. Input order does not matter; on equal
// timestamps the first encountered wins, which is acceptable because dates
// carry time-of-day granularity in practice.
func ContactMostRecentStudy(contact models.Contact, conversations []models.Conversation) *models.Conversation {
	var latest *models.Conversation
	for i := range conversations {
		c := &conversations[i]
		if c.Contact.ID != contact.ID || !c.IsBibleStudy {
			continue
		}
		if latest == nil || c.Date.After(latest.Date) {
			latest = c
		}
	}
	if latest == nil {
		return nil
	}
	out := latest.Clone()
	return &out
}

// StudiesForGivenMonth counts the contacts studied with during the given
// calendar month. This is a count of contacts, not of study conversations:
// a contact with five studies in the month still counts once. The result
// never exceeds len(contacts). Conversations whose contact reference dangles
// contribute nothing.
func StudiesForGivenMonth(contacts []models.Contact, conversations []models.Conversation, month time.Time) int {
	count := 0
	for _, contact := range contacts {
		if ContactStudiedForGivenMonth(contact, conversations, month) {
			count++
		}
	}
	return count
}
