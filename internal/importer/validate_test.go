package importer_test

import (
	"errors"
	"testing"

	"github.com/starford/fieldwork/internal/apperr"
	"github.com/starford/fieldwork/internal/importer"
)

func TestValidateContactImportRejects(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"nil input", nil},
		{"json null", []byte(`null`)},
		{"empty object", []byte(`{}`)},
		{"not json", []byte(`not even json`)},
		{"json array", []byte(`[1,2,3]`)},
		{"wrong type", []byte(`{"type":"somethingelse","contact":{"id":"1","name":"Ana","createdAt":"2023-01-01"}}`)},
		{"missing type", []byte(`{"contact":{"id":"1","name":"Ana","createdAt":"2023-01-01"}}`)},
		{"missing contact", []byte(`{"type":"witnesswork-contact"}`)},
		{"contact null", []byte(`{"type":"witnesswork-contact","contact":null}`)},
		{"contact missing id", []byte(`{"type":"witnesswork-contact","contact":{"name":"Ana","createdAt":"2023-01-01"}}`)},
		{"contact empty id", []byte(`{"type":"witnesswork-contact","contact":{"id":"","name":"Ana","createdAt":"2023-01-01"}}`)},
		{"contact missing name", []byte(`{"type":"witnesswork-contact","contact":{"id":"1","createdAt":"2023-01-01"}}`)},
		{"createdAt null", []byte(`{"type":"witnesswork-contact","contact":{"id":"1","name":"Ana","createdAt":null}}`)},
		{"createdAt empty string", []byte(`{"type":"witnesswork-contact","contact":{"id":"1","name":"Ana","createdAt":""}}`)},
		{"createdAt zero", []byte(`{"type":"witnesswork-contact","contact":{"id":"1","name":"Ana","createdAt":0}}`)},
		{"createdAt false", []byte(`{"type":"witnesswork-contact","contact":{"id":"1","name":"Ana","createdAt":false}}`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := importer.ValidateContactImport(tc.data)
			if !errors.Is(err, apperr.ErrInvalidImport) {
				t.Fatalf("err = %v, want ErrInvalidImport", err)
			}
			if err.Error() != "invalidFile_description" {
				t.Errorf("error message = %q", err.Error())
			}
			if p != nil {
				t.Error("payload returned despite rejection")
			}
		})
	}
}

func TestValidateContactImportMinimal(t *testing.T) {
	data := []byte(`{"type":"witnesswork-contact","contact":{"id":"abc","name":"Ana","createdAt":"2023-01-01"}}`)

	p, err := importer.ValidateContactImport(data)
	if err != nil {
		t.Fatal(err)
	}
	if p.Contact.ID != "abc" || p.Contact.Name != "Ana" {
		t.Errorf("contact = %+v", p.Contact)
	}
	if p.Contact.CreatedAt.IsZero() {
		t.Error("date-only createdAt not parsed")
	}
	if got := p.Contact.CreatedAt.Format("2006-01-02"); got != "2023-01-01" {
		t.Errorf("createdAt = %s", got)
	}
}

func TestValidateContactImportAcceptsUnknownFields(t *testing.T) {
	data := []byte(`{
		"type":"witnesswork-contact",
		"contact":{"id":"abc","name":"Ana","createdAt":"2023-01-01","favoriteColor":"blue"},
		"futureField":{"nested":true},
		"conversations":[]
	}`)

	p, err := importer.ValidateContactImport(data)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Extra["futureField"]; !ok {
		t.Error("unknown top-level field not preserved")
	}
}

func TestValidateContactImportNumericCreatedAt(t *testing.T) {
	// Non-zero but non-string createdAt passes the structural check even though
	// it cannot decode into a timestamp; the field falls back to zero time.
	data := []byte(`{"type":"witnesswork-contact","contact":{"id":"abc","name":"Ana","createdAt":1672531200}}`)

	p, err := importer.ValidateContactImport(data)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Contact.CreatedAt.IsZero() {
		t.Errorf("createdAt = %v, want zero time", p.Contact.CreatedAt)
	}
}

func TestValidateContactImportConversations(t *testing.T) {
	data := []byte(`{
		"type":"witnesswork-contact",
		"contact":{"id":"abc","name":"Ana","createdAt":"2023-01-01"},
		"conversations":[
			{"id":"c1","contact":{"id":"abc"},"date":"2023-02-01T10:00:00Z","isBibleStudy":true}
		]
	}`)

	p, err := importer.ValidateContactImport(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Conversations) != 1 {
		t.Fatalf("conversations = %d, want 1", len(p.Conversations))
	}
	if !p.Conversations[0].IsBibleStudy || p.Conversations[0].Contact.ID != "abc" {
		t.Errorf("conversation = %+v", p.Conversations[0])
	}
}
