// Package importer implements the cross-device transfer format and the
// merge engine that reconciles imported contacts against the local stores.
package importer

import (
	"encoding/json"
	"time"

	"github.com/starford/fieldwork/internal/models"
)

// PayloadType identifies a contact transfer document.
const PayloadType = "witnesswork-contact"

// PayloadVersion is the current document version.
const PayloadVersion = "1.0"

// Payload is the JSON document exchanged between devices. Unknown top-level
// fields survive a round trip untouched: the schema is permissive-additive so
// newer app versions can add fields without breaking older ones.
type Payload struct {
	Version       string
	Type          string
	ExportedAt    time.Time
	Contact       models.Contact
	Conversations []models.Conversation

	// Extra holds unrecognized top-level fields, re-emitted on marshal.
	Extra map[string]json.RawMessage
}

// BuildExport assembles the transfer document for one contact and its
// conversations. The result round-trips through ValidateContactImport.
func BuildExport(contact models.Contact, conversations []models.Conversation, now time.Time) Payload {
	return Payload{
		Version:       PayloadVersion,
		Type:          PayloadType,
		ExportedAt:    now,
		Contact:       contact,
		Conversations: conversations,
	}
}

var knownPayloadKeys = map[string]struct{}{
	"version":       {},
	"type":          {},
	"exportedAt":    {},
	"contact":       {},
	"conversations": {},
}

// UnmarshalJSON decodes the known fields and stashes everything else in
// Extra.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields["version"]; ok {
		if err := json.Unmarshal(raw, &p.Version); err != nil {
			return err
		}
	}
	if raw, ok := fields["type"]; ok {
		if err := json.Unmarshal(raw, &p.Type); err != nil {
			return err
		}
	}
	if raw, ok := fields["exportedAt"]; ok {
		// Tolerated as any string; a bad timestamp does not fail the payload.
		_ = json.Unmarshal(raw, &p.ExportedAt)
	}
	if raw, ok := fields["contact"]; ok {
		if err := json.Unmarshal(raw, &p.Contact); err != nil {
			return err
		}
	}
	if raw, ok := fields["conversations"]; ok {
		if err := json.Unmarshal(raw, &p.Conversations); err != nil {
			return err
		}
	}
	for k, v := range fields {
		if _, known := knownPayloadKeys[k]; known {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[k] = v
	}
	return nil
}

// MarshalJSON emits the known fields plus any preserved unknown ones.
func (p Payload) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 5+len(p.Extra))
	for k, v := range p.Extra {
		out[k] = v
	}
	out["version"] = p.Version
	out["type"] = p.Type
	out["exportedAt"] = p.ExportedAt
	out["contact"] = p.Contact
	if p.Conversations != nil {
		out["conversations"] = p.Conversations
	}
	return json.Marshal(out)
}
