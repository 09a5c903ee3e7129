package driven

import "context"

// SessionTokenStore defines the driven port for the persistent key-value area
// that holds the session credential. The credential survives process
// restarts until it is cleared by logout, expiry, or an authorization failure.
type SessionTokenStore interface {
	// Token returns the current credential, or ("", nil) when none is stored.
	Token(ctx context.Context) (string, error)

	// SetToken stores or replaces the credential.
	SetToken(ctx context.Context, token string) error

	// ClearToken removes the credential. Clearing an absent credential is not an error.
	ClearToken(ctx context.Context) error
}
