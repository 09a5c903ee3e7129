package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.SessionTokenStore = (*SessionRepo)(nil)
	_ driven.SessionMetaStore  = (*SessionRepo)(nil)
)

// Keys of the session_store table.
const (
	keyAccessToken  = "access_token"
	keyLastActivity = "last_activity"
	keyUsername     = "username"
)

// SessionRepo is the SQLite implementation of the SessionTokenStore and
// SessionMetaStore ports. It keeps the local session state of one user in a
// small key/value table. When a key is configured, the access token is
// encrypted with AES-256-GCM before write and decrypted after read.
type SessionRepo struct {
	db     *DB
	cipher *tokenCipher // nil stores the token as-is.
}

// NewSessionRepo creates a new SessionRepo. key must be 32 bytes for
// AES-256-GCM, or nil to store the token without encryption.
func NewSessionRepo(db *DB, key []byte) (*SessionRepo, error) {
	repo := &SessionRepo{db: db}
	if key != nil {
		c, err := newTokenCipher(key)
		if err != nil {
			return nil, err
		}
		repo.cipher = c
	}
	return repo, nil
}

// Token returns the stored access token, or ("", nil) when none is stored.
func (r *SessionRepo) Token(ctx context.Context) (string, error) {
	value, err := r.get(ctx, keyAccessToken)
	if err != nil || value == "" {
		return "", err
	}
	if r.cipher == nil {
		return value, nil
	}

	token, err := r.cipher.decrypt(value)
	if err != nil {
		return "", fmt.Errorf("decrypt session token: %w", err)
	}
	return token, nil
}

// SetToken stores or replaces the access token.
func (r *SessionRepo) SetToken(ctx context.Context, token string) error {
	value := token
	if r.cipher != nil {
		encrypted, err := r.cipher.encrypt(token)
		if err != nil {
			return fmt.Errorf("encrypt session token: %w", err)
		}
		value = encrypted
	}
	return r.set(ctx, keyAccessToken, value)
}

// ClearToken removes the access token together with the rest of the local
// session state.
func (r *SessionRepo) ClearToken(ctx context.Context) error {
	const query = `DELETE FROM session_store WHERE key IN (?, ?, ?)`
	_, err := r.db.Writer.ExecContext(ctx, query, keyAccessToken, keyLastActivity, keyUsername)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// LastActivity returns the recorded last activity instant, or the zero time.
func (r *SessionRepo) LastActivity(ctx context.Context) (time.Time, error) {
	value, err := r.get(ctx, keyLastActivity)
	if err != nil || value == "" {
		return time.Time{}, err
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last activity: %w", err)
	}
	return t, nil
}

// TouchActivity records t as the last activity instant.
func (r *SessionRepo) TouchActivity(ctx context.Context, t time.Time) error {
	return r.set(ctx, keyLastActivity, t.UTC().Format(time.RFC3339Nano))
}

// Username returns the name the current session logged in with, if any.
func (r *SessionRepo) Username(ctx context.Context) (string, error) {
	return r.get(ctx, keyUsername)
}

// SetUsername records the name the current session logged in with.
func (r *SessionRepo) SetUsername(ctx context.Context, username string) error {
	return r.set(ctx, keyUsername, username)
}

func (r *SessionRepo) get(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM session_store WHERE key = ?`
	var value string
	err := r.db.Reader.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (r *SessionRepo) set(ctx context.Context, key, value string) error {
	const query = `INSERT OR REPLACE INTO session_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`
	if _, err := r.db.Writer.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
