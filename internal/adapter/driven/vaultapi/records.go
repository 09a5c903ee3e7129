package vaultapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
)

// recordPayload is the request body for create and update. Optional fields
// are sent as null when empty so a full replace clears them.
type recordPayload struct {
	Title    string  `json:"title"`
	Username string  `json:"username"`
	Password string  `json:"password"`
	URL      *string `json:"url"`
	Notes    *string `json:"notes"`
}

func toPayload(d model.RecordDraft) recordPayload {
	return recordPayload{
		Title:    d.Title,
		Username: d.Username,
		Password: d.Password,
		URL:      optional(d.URL),
		Notes:    optional(d.Notes),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// recordResponse is one record as returned by the service.
type recordResponse struct {
	ID        flexID   `json:"id"`
	Title     string   `json:"title"`
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	URL       *string  `json:"url"`
	Notes     *string  `json:"notes"`
	CreatedAt wireTime `json:"created_at"`
	UpdatedAt wireTime `json:"updated_at"`
}

func (r recordResponse) toModel() model.CredentialRecord {
	rec := model.CredentialRecord{
		ID:        model.RecordID(r.ID),
		Title:     r.Title,
		Username:  r.Username,
		Password:  r.Password,
		CreatedAt: time.Time(r.CreatedAt),
		UpdatedAt: time.Time(r.UpdatedAt),
	}
	if r.URL != nil {
		rec.URL = *r.URL
	}
	if r.Notes != nil {
		rec.Notes = *r.Notes
	}
	return rec
}

// flexID accepts a JSON number or string. The service issues integers but the
// client treats ids as opaque.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("record id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// wireTime parses the service's timestamps, which may lack a zone offset.
// Zone-less values are taken as UTC. Unparseable values decode to zero.
type wireTime time.Time

var wireTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (w *wireTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		*w = wireTime{}
		return nil
	}
	for _, layout := range wireTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			*w = wireTime(t)
			return nil
		}
	}
	*w = wireTime{}
	return nil
}

func recordPath(id model.RecordID) string {
	return "vault/" + url.PathEscape(string(id))
}

// List returns every record of the current user.
func (c *Client) List(ctx context.Context) ([]model.CredentialRecord, error) {
	var resp []recordResponse
	if err := c.do(ctx, "list records", http.MethodGet, "vault/", nil, &resp, true); err != nil {
		return nil, err
	}

	records := make([]model.CredentialRecord, 0, len(resp))
	for _, r := range resp {
		records = append(records, r.toModel())
	}
	return records, nil
}

// Get returns one record.
func (c *Client) Get(ctx context.Context, id model.RecordID) (model.CredentialRecord, error) {
	var resp recordResponse
	op := "get record " + string(id)
	if err := c.do(ctx, op, http.MethodGet, recordPath(id), nil, &resp, true); err != nil {
		return model.CredentialRecord{}, err
	}
	return resp.toModel(), nil
}

// Create stores a new record and returns it with its assigned id.
func (c *Client) Create(ctx context.Context, draft model.RecordDraft) (model.CredentialRecord, error) {
	var resp recordResponse
	if err := c.do(ctx, "create record", http.MethodPost, "vault/", toPayload(draft), &resp, true); err != nil {
		return model.CredentialRecord{}, err
	}
	return resp.toModel(), nil
}

// Update replaces every user field of the record.
func (c *Client) Update(ctx context.Context, id model.RecordID, draft model.RecordDraft) (model.CredentialRecord, error) {
	var resp recordResponse
	op := "update record " + string(id)
	if err := c.do(ctx, op, http.MethodPut, recordPath(id), toPayload(draft), &resp, true); err != nil {
		return model.CredentialRecord{}, err
	}
	rec := resp.toModel()
	if rec.ID == "" {
		rec.ID = id
	}
	return rec, nil
}

// Delete removes the record.
func (c *Client) Delete(ctx context.Context, id model.RecordID) error {
	op := "delete record " + string(id)
	return c.do(ctx, op, http.MethodDelete, recordPath(id), nil, nil, true)
}
