package importer

import (
	"time"

	"github.com/google/uuid"
)

// GenerateNewIDs rewrites the payload with a fresh local identity: a new
// contact id, new ids for every conversation, and conversation references
// pointing at the new contact id. CreatedAt resets to now because the import
// becomes a new local record, not a restoration. Recorded reminder handles
// are dropped; they belong to the exporting device's scheduler.
func GenerateNewIDs(p *Payload, now time.Time) {
	contactID := uuid.NewString()
	p.Contact.ID = contactID
	p.Contact.CreatedAt = now
	for i := range p.Conversations {
		p.Conversations[i].ID = uuid.NewString()
		p.Conversations[i].Contact.ID = contactID
		if p.Conversations[i].FollowUp != nil {
			p.Conversations[i].FollowUp.Notifications = nil
		}
	}
}
