package importer

import (
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/fieldwork/internal/apperr"
)

// rawImport is the minimal structural view validation runs against before the
// payload is decoded into domain types.
type rawImport struct {
	Type    string      `json:"type"`
	Contact *rawContact `json:"contact"`
}

type rawContact struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt any    `json:"createdAt"`
}

// ValidateContactImport checks the structure of an untrusted transfer
// document and decodes it. Every failure mode, malformed JSON and panics
// while reading fields included, collapses to apperr.ErrInvalidImport: the
// caller never learns which field failed. CreatedAt is accepted as any
// non-zero value because cross-platform exports round-trip dates as strings.
// Unknown fields never cause rejection.
func ValidateContactImport(data []byte) (payload *Payload, err error) {
	defer func() {
		if recover() != nil {
			payload, err = nil, apperr.ErrInvalidImport
		}
	}()

	var raw rawImport
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperr.ErrInvalidImport
	}
	if err := validation.ValidateStruct(&raw,
		validation.Field(&raw.Type, validation.Required, validation.In(PayloadType)),
		validation.Field(&raw.Contact, validation.Required),
	); err != nil {
		return nil, apperr.ErrInvalidImport
	}
	// Required rejects every zero value, which is exactly the truthiness rule
	// for createdAt: nil, "", 0, and false all fail.
	if err := validation.ValidateStruct(raw.Contact,
		validation.Field(&raw.Contact.ID, validation.Required),
		validation.Field(&raw.Contact.Name, validation.Required),
		validation.Field(&raw.Contact.CreatedAt, validation.Required),
	); err != nil {
		return nil, apperr.ErrInvalidImport
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, apperr.ErrInvalidImport
	}
	return &p, nil
}
