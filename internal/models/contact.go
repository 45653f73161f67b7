// Package models defines the domain types for Fieldwork.
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Address is a structured postal address. Every field is optional.
type Address struct {
	Line1   string `json:"line1,omitempty"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
}

// IsEmpty reports whether no address field is set.
func (a Address) IsEmpty() bool {
	return a == Address{}
}

// Coordinate is a geographic point derived from an address. When the user
// repositions the pin manually, UserDragged on the owning Contact is set and
// the coordinate is no longer re-derived.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Contact is a person being tracked. The id is caller-assigned and stable;
// it is unique across both the active and the deleted partition of the
// contact store.
type Contact struct {
	ID                      string            `json:"id"`
	Name                    string            `json:"name"`
	CreatedAt               time.Time         `json:"createdAt"`
	Phone                   string            `json:"phone,omitempty"`
	Email                   string            `json:"email,omitempty"`
	Address                 *Address          `json:"address,omitempty"`
	Coordinate              *Coordinate       `json:"coordinate,omitempty"`
	UserDraggedCoordinate   bool              `json:"userDraggedCoordinate,omitempty"`
	CustomFields            map[string]string `json:"customFields,omitempty"`
	DismissedUntil          *time.Time        `json:"dismissedUntil,omitempty"`
	DismissedNotificationID string            `json:"dismissedNotificationId,omitempty"`
}

// contactAlias avoids recursing into Contact.UnmarshalJSON.
type contactAlias Contact

type contactWire struct {
	contactAlias
	Address   json.RawMessage `json:"address,omitempty"`
	CreatedAt json.RawMessage `json:"createdAt,omitempty"`
}

// UnmarshalJSON normalizes two legacy encodings at the boundary:
//   - address was historically a bare string; it becomes Address{Line1: s}
//   - createdAt arrives as an RFC 3339 timestamp or a plain date string from
//     cross-platform exports
//
// Business logic only ever sees the structured forms.
func (c *Contact) UnmarshalJSON(data []byte) error {
	var w contactWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = Contact(w.contactAlias)

	if len(w.Address) > 0 {
		addr, err := decodeAddress(w.Address)
		if err != nil {
			return err
		}
		c.Address = addr
	}
	if len(w.CreatedAt) > 0 {
		t, err := decodeTimestamp(w.CreatedAt)
		if err != nil {
			return err
		}
		c.CreatedAt = t
	}
	return nil
}

func decodeAddress(raw json.RawMessage) (*Address, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		return &Address{Line1: s}, nil
	}
	var a Address
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	if a.IsEmpty() {
		return nil, nil
	}
	return &a, nil
}

// decodeTimestamp accepts RFC 3339 and date-only strings. Anything else
// decodes to the zero time rather than failing the whole record; import
// validation rejects missing timestamps separately.
func decodeTimestamp(raw json.RawMessage) (time.Time, error) {
	var t time.Time
	if err := json.Unmarshal(raw, &t); err == nil {
		return t, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, nil
}

// Clone returns a deep copy so callers can hand contacts out of the store
// without aliasing its internal state.
func (c Contact) Clone() Contact {
	out := c
	if c.Address != nil {
		addr := *c.Address
		out.Address = &addr
	}
	if c.Coordinate != nil {
		coord := *c.Coordinate
		out.Coordinate = &coord
	}
	if c.CustomFields != nil {
		out.CustomFields = make(map[string]string, len(c.CustomFields))
		for k, v := range c.CustomFields {
			out.CustomFields[k] = v
		}
	}
	if c.DismissedUntil != nil {
		until := *c.DismissedUntil
		out.DismissedUntil = &until
	}
	return out
}
