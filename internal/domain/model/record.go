package model

import (
	"strings"
	"time"
)

// RecordID is the server-assigned identifier of a credential record. The
// remote service issues integers; the client treats the value as opaque.
type RecordID string

// CredentialRecord is one stored credential entry. ID is fixed once the
// remote service assigns it; every other user field is replaced as a whole
// on update.
type CredentialRecord struct {
	ID       RecordID
	Title    string
	Username string
	Password string // Plaintext at this layer.
	URL      string // Optional; empty means unset.
	Notes    string // Optional; empty means unset.

	// Reported by the remote service, informational only.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Draft returns the user-editable fields of the record.
func (r CredentialRecord) Draft() RecordDraft {
	return RecordDraft{
		Title:    r.Title,
		Username: r.Username,
		Password: r.Password,
		URL:      r.URL,
		Notes:    r.Notes,
	}
}

// RecordDraft is the full set of user-editable fields sent on create and
// update. There is no partial-patch form: an update always carries every field.
type RecordDraft struct {
	Title    string
	Username string
	Password string
	URL      string
	Notes    string
}

// Validate checks the draft locally before it is sent to the remote service.
func (d RecordDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	return nil
}

// DraftField names one editable field of a RecordDraft.
type DraftField string

const (
	DraftFieldTitle    DraftField = "title"
	DraftFieldUsername DraftField = "username"
	DraftFieldPassword DraftField = "password"
	DraftFieldURL      DraftField = "url"
	DraftFieldNotes    DraftField = "notes"
)

// Set assigns value to the named field. It reports false for an unknown field.
func (d *RecordDraft) Set(field DraftField, value string) bool {
	switch field {
	case DraftFieldTitle:
		d.Title = value
	case DraftFieldUsername:
		d.Username = value
	case DraftFieldPassword:
		d.Password = value
	case DraftFieldURL:
		d.URL = value
	case DraftFieldNotes:
		d.Notes = value
	default:
		return false
	}
	return true
}
