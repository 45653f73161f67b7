package schedule

import (
	"time"

	"github.com/starford/fieldwork/internal/models"
)

// followUpLookback is how far behind now a follow-up still counts as
// upcoming, so recently-passed reminders the user has not acted on yet stay
// visible.
const followUpLookback = 4 * time.Hour

// endOfDay returns the last nanosecond of t's calendar day in t's location.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// eveningCutover returns 4:59:59pm of now's calendar day. Before this moment
// the list shows the rest of today; from it onward the window extends
// withinNextDays ahead so the list does not go empty right when the user
// plans the next day.
func eveningCutover(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 16, 59, 59, 0, now.Location())
}

// UpcomingFollowUpConversations returns the conversations whose follow-up
// date falls within [now - 4h, upper], where upper is end-of-today before the
// evening cutover and end-of-day withinNextDays days ahead after it. Output
// order is not guaranteed; callers sort by follow-up date as needed.
func UpcomingFollowUpConversations(now time.Time, conversations []models.Conversation, withinNextDays int) []models.Conversation {
	lower := now.Add(-followUpLookback)
	upper := endOfDay(now)
	if !now.Before(eveningCutover(now)) {
		upper = endOfDay(now.AddDate(0, 0, withinNextDays))
	}

	var out []models.Conversation
	for i := range conversations {
		fu := conversations[i].FollowUp
		if fu == nil {
			continue
		}
		if fu.Date.Before(lower) || fu.Date.After(upper) {
			continue
		}
		out = append(out, conversations[i].Clone())
	}
	return out
}
