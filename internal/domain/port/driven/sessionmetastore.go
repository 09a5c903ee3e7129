package driven

import (
	"context"
	"time"
)

// SessionMetaStore persists facts about the current session beside its
// credential. The last activity instant lets the inactivity timeout apply
// across separate process runs.
type SessionMetaStore interface {
	// LastActivity returns the recorded instant, or the zero time when none is stored.
	LastActivity(ctx context.Context) (time.Time, error)

	// TouchActivity records t as the last activity instant.
	TouchActivity(ctx context.Context, t time.Time) error

	// Username returns the name the session logged in with, or "".
	Username(ctx context.Context) (string, error)

	SetUsername(ctx context.Context, username string) error
}
