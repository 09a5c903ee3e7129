package application_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockTokenStore struct {
	mu      sync.Mutex
	token   string
	clears  int
	setErr  error
	readErr error
}

func (m *mockTokenStore) Token(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.readErr
}

func (m *mockTokenStore) SetToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.token = token
	return nil
}

func (m *mockTokenStore) ClearToken(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.clears++
	return nil
}

func (m *mockTokenStore) clearCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

type mockNavigator struct {
	mu        sync.Mutex
	notices   []string
	dashboard int
}

func (m *mockNavigator) GoToLogin(notice string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, notice)
}

func (m *mockNavigator) GoToDashboard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dashboard++
}

func (m *mockNavigator) loginNotices() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.notices...)
}

// mockVaultStore answers from function fields; a nil field means success
// with a zero value.
type mockVaultStore struct {
	list   func(ctx context.Context) ([]model.CredentialRecord, error)
	get    func(ctx context.Context, id model.RecordID) (model.CredentialRecord, error)
	create func(ctx context.Context, draft model.RecordDraft) (model.CredentialRecord, error)
	update func(ctx context.Context, id model.RecordID, draft model.RecordDraft) (model.CredentialRecord, error)
	delete func(ctx context.Context, id model.RecordID) error

	mu    sync.Mutex
	calls []string
}

func (m *mockVaultStore) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockVaultStore) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockVaultStore) List(ctx context.Context) ([]model.CredentialRecord, error) {
	m.record("list")
	if m.list == nil {
		return nil, nil
	}
	return m.list(ctx)
}

func (m *mockVaultStore) Get(ctx context.Context, id model.RecordID) (model.CredentialRecord, error) {
	m.record("get " + string(id))
	if m.get == nil {
		return model.CredentialRecord{ID: id}, nil
	}
	return m.get(ctx, id)
}

func (m *mockVaultStore) Create(ctx context.Context, draft model.RecordDraft) (model.CredentialRecord, error) {
	m.record("create")
	if m.create == nil {
		return model.CredentialRecord{ID: "new", Title: draft.Title}, nil
	}
	return m.create(ctx, draft)
}

func (m *mockVaultStore) Update(ctx context.Context, id model.RecordID, draft model.RecordDraft) (model.CredentialRecord, error) {
	m.record("update " + string(id))
	if m.update == nil {
		return recordFromDraft(id, draft), nil
	}
	return m.update(ctx, id, draft)
}

func (m *mockVaultStore) Delete(ctx context.Context, id model.RecordID) error {
	m.record("delete " + string(id))
	if m.delete == nil {
		return nil
	}
	return m.delete(ctx, id)
}

type mockAuthenticator struct {
	registered []driven.Registration
	token      string
	loginErr   error
	regErr     error
}

func (m *mockAuthenticator) Register(_ context.Context, reg driven.Registration) error {
	if m.regErr != nil {
		return m.regErr
	}
	m.registered = append(m.registered, reg)
	return nil
}

func (m *mockAuthenticator) Login(_ context.Context, _, _ string) (string, error) {
	if m.loginErr != nil {
		return "", m.loginErr
	}
	return m.token, nil
}

type mockMetaStore struct {
	last     time.Time
	username string
	touches  int
}

func (m *mockMetaStore) LastActivity(_ context.Context) (time.Time, error) {
	return m.last, nil
}

func (m *mockMetaStore) TouchActivity(_ context.Context, t time.Time) error {
	m.last = t
	m.touches++
	return nil
}

func (m *mockMetaStore) Username(_ context.Context) (string, error) {
	return m.username, nil
}

func (m *mockMetaStore) SetUsername(_ context.Context, username string) error {
	m.username = username
	return nil
}

type mockTerminator struct {
	reasons []model.ExpiryReason
}

func (m *mockTerminator) Terminate(reason model.ExpiryReason) {
	m.reasons = append(m.reasons, reason)
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func recordFromDraft(id model.RecordID, d model.RecordDraft) model.CredentialRecord {
	return model.CredentialRecord{
		ID:       id,
		Title:    d.Title,
		Username: d.Username,
		Password: d.Password,
		URL:      d.URL,
		Notes:    d.Notes,
	}
}

func sampleRecords() []model.CredentialRecord {
	return []model.CredentialRecord{
		{ID: "1", Title: "Mail", Username: "ann", Password: "m41l-s3cret"},
		{ID: "2", Title: "Bank", Username: "ann.b", Password: "b4nk!pass"},
		{ID: "3", Title: "Forge", Username: "annb", Password: "f0rge#key", URL: "https://forge.example"},
	}
}
