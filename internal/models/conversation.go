package models

import "time"

// ContactRef is a weak reference to a contact by id. Referential integrity is
// not enforced: deleting a contact leaves its conversations behind, and
// queries filter dangling references instead of treating them as corruption.
type ContactRef struct {
	ID string `json:"id"`
}

// NotificationRef is a handle to a reminder scheduled with the notification
// collaborator, kept so the reminder can be cancelled later.
type NotificationRef struct {
	ID   string    `json:"id"`
	Date time.Time `json:"date"`
}

// FollowUp is an optional future touchpoint attached to a conversation.
type FollowUp struct {
	Date          time.Time         `json:"date"`
	NotifyMe      bool              `json:"notifyMe"`
	Topic         string            `json:"topic,omitempty"`
	Notifications []NotificationRef `json:"notifications,omitempty"`
}

// Conversation is a logged interaction with a contact. IsBibleStudy and
// NotAtHome inform badge display together but are not mutually exclusive.
type Conversation struct {
	ID           string     `json:"id"`
	Contact      ContactRef `json:"contact"`
	Date         time.Time  `json:"date"`
	IsBibleStudy bool       `json:"isBibleStudy"`
	NotAtHome    bool       `json:"notAtHome"`
	Note         string     `json:"note,omitempty"`
	FollowUp     *FollowUp  `json:"followUp,omitempty"`
}

// Clone returns a deep copy of the conversation.
func (c Conversation) Clone() Conversation {
	out := c
	if c.FollowUp != nil {
		fu := *c.FollowUp
		if c.FollowUp.Notifications != nil {
			fu.Notifications = make([]NotificationRef, len(c.FollowUp.Notifications))
			copy(fu.Notifications, c.FollowUp.Notifications)
		}
		out.FollowUp = &fu
	}
	return out
}
