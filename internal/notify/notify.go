// Package notify defines the reminder-scheduling collaborator. Delivery is
// external to this system; the stores only hold on to the returned handles so
// reminders can be cancelled later.
package notify

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Content is the user-visible payload of a scheduled reminder.
type Content struct {
	Title     string
	Body      string
	ContactID string
}

// Scheduler schedules and cancels reminders. Both operations are best-effort
// from the caller's point of view: a failure is logged and never blocks the
// mutation that triggered it.
type Scheduler interface {
	Schedule(at time.Time, content Content) (string, error)
	Cancel(id string) error
}

// LogScheduler is the default Scheduler when no platform bridge is attached.
// It hands out handles and logs instead of delivering.
type LogScheduler struct {
	Logger *slog.Logger
}

func (l *LogScheduler) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// Schedule logs the reminder and returns a fresh handle.
func (l *LogScheduler) Schedule(at time.Time, content Content) (string, error) {
	id := uuid.NewString()
	l.logger().Info("reminder scheduled",
		slog.String("id", id),
		slog.Time("at", at),
		slog.String("contact_id", content.ContactID),
		slog.String("title", content.Title))
	return id, nil
}

// Cancel logs the cancellation.
func (l *LogScheduler) Cancel(id string) error {
	l.logger().Info("reminder cancelled", slog.String("id", id))
	return nil
}

var _ Scheduler = (*LogScheduler)(nil)
