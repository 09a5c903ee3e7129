package cli_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ericfisherdev/vaultpanel/internal/adapter/driving/cli"
	"github.com/ericfisherdev/vaultpanel/internal/application"
	"github.com/ericfisherdev/vaultpanel/internal/clock"
	"github.com/ericfisherdev/vaultpanel/internal/config"
	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// --- Fakes ---

// memVault is an in-memory VaultStore. err, when set, fails every call.
type memVault struct {
	mu      sync.Mutex
	records []model.CredentialRecord
	nextID  int
	err     error
	updates []model.RecordDraft
	lists   int
	gets    int
}

func newMemVault(records ...model.CredentialRecord) *memVault {
	return &memVault{records: records, nextID: len(records) + 1}
}

func (m *memVault) List(_ context.Context) ([]model.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.err != nil {
		return nil, m.err
	}
	return append([]model.CredentialRecord(nil), m.records...), nil
}

func (m *memVault) Get(_ context.Context, id model.RecordID) (model.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.err != nil {
		return model.CredentialRecord{}, m.err
	}
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return model.CredentialRecord{}, driven.ErrNotFound
}

func (m *memVault) Create(_ context.Context, d model.RecordDraft) (model.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.CredentialRecord{}, m.err
	}
	r := fromDraft(model.RecordID(fmt.Sprint(m.nextID)), d)
	m.nextID++
	m.records = append(m.records, r)
	return r, nil
}

func (m *memVault) Update(_ context.Context, id model.RecordID, d model.RecordDraft) (model.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.CredentialRecord{}, m.err
	}
	m.updates = append(m.updates, d)
	for i, r := range m.records {
		if r.ID == id {
			m.records[i] = fromDraft(id, d)
			return m.records[i], nil
		}
	}
	return model.CredentialRecord{}, driven.ErrNotFound
}

func (m *memVault) Delete(_ context.Context, id model.RecordID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for i, r := range m.records {
		if r.ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return driven.ErrNotFound
}

func (m *memVault) snapshot() []model.CredentialRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.CredentialRecord(nil), m.records...)
}

func fromDraft(id model.RecordID, d model.RecordDraft) model.CredentialRecord {
	return model.CredentialRecord{
		ID:        id,
		Title:     d.Title,
		Username:  d.Username,
		Password:  d.Password,
		URL:       d.URL,
		Notes:     d.Notes,
		CreatedAt: epoch,
		UpdatedAt: epoch,
	}
}

// memSession is the local session store: credential plus metadata.
type memSession struct {
	mu       sync.Mutex
	token    string
	username string
	last     time.Time
}

func (m *memSession) Token(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memSession) SetToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *memSession) ClearToken(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.username, m.last = "", "", time.Time{}
	return nil
}

func (m *memSession) LastActivity(_ context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, nil
}

func (m *memSession) TouchActivity(_ context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = t
	return nil
}

func (m *memSession) Username(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.username, nil
}

func (m *memSession) SetUsername(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.username = username
	return nil
}

func (m *memSession) lastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func (m *memSession) currentToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

type fakeAuth struct {
	mu         sync.Mutex
	registered []driven.Registration
	password   string
	err        error
}

func (f *fakeAuth) Register(_ context.Context, reg driven.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.registered = append(f.registered, reg)
	return nil
}

func (f *fakeAuth) Login(_ context.Context, username, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.password = password
	return "tok-" + username, nil
}

// lockedBuffer is read by the test while the shell writes to it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// --- Harness ---

type harness struct {
	vault     *memVault
	session   *memSession
	auth      *fakeAuth
	clock     *clock.FakeClock
	healthErr error
	copied    []string
	closed    int
}

func newHarness(t *testing.T, records ...model.CredentialRecord) *harness {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, key := range []string{"VAULTPANEL_API_BASE_URL", "VAULTPANEL_DB_PATH", "VAULTPANEL_LOG_LEVEL", "VAULTPANEL_SESSION_TIMEOUT"} {
		t.Setenv(key, "")
	}

	return &harness{
		vault:   newMemVault(records...),
		session: &memSession{},
		auth:    &fakeAuth{},
		clock:   clock.Fake(epoch),
	}
}

// loggedIn stores a fresh session credential.
func (h *harness) loggedIn() *harness {
	h.session.token = "tok-alice"
	h.session.username = "alice"
	h.session.last = h.clock.Now()
	return h
}

func (h *harness) wire(_ context.Context, cfg *config.Config, nav driven.Navigator, logger *slog.Logger) (*cli.Services, error) {
	auth := application.NewAuthService(h.auth, h.session, nav, logger).
		WithInactivityTimeout(h.session, h.clock, cfg.Session.Timeout)
	return &cli.Services{
		Auth:   auth,
		Remote: h.vault,
		Tokens: h.session,
		Health: func(context.Context) error { return h.healthErr },
		Close: func() error {
			h.closed++
			return nil
		},
	}, nil
}

// run executes one command line with input as the terminal input.
func (h *harness) run(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	err := h.exec(t, strings.NewReader(input), out, args...)
	return out.String(), err
}

func (h *harness) exec(t *testing.T, in io.Reader, out io.Writer, args ...string) error {
	t.Helper()

	return cli.Execute(context.Background(), cli.Options{
		In:    in,
		Out:   out,
		Err:   io.Discard,
		Clock: h.clock,
		Clipboard: func(text string) error {
			h.copied = append(h.copied, text)
			return nil
		},
		Random: rand.New(rand.NewChaCha8([32]byte{7})),
		Args:   append([]string{}, args...),
	}, h.wire)
}

func sampleRecords() []model.CredentialRecord {
	return []model.CredentialRecord{
		{ID: "1", Title: "Mail", Username: "alice@example.com", Password: "m41l-Secret!", CreatedAt: epoch, UpdatedAt: epoch},
		{ID: "2", Title: "Bank", Username: "alice", Password: "b4nk-Secret!", Notes: "pin in safe", CreatedAt: epoch, UpdatedAt: epoch},
		{ID: "3", Title: "Forge", Username: "al", Password: "f0rge-Secret!", URL: "https://forge.example.com", CreatedAt: epoch, UpdatedAt: epoch},
	}
}
