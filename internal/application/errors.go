package application

import "errors"

var (
	// ErrSessionExpired is returned for operations attempted, or completing,
	// after the session ended. Their results are discarded.
	ErrSessionExpired = errors.New("session expired")

	// ErrSuperseded is returned by a refresh whose result arrived after a newer
	// refresh was issued or a newer mutation was confirmed. The result is discarded.
	ErrSuperseded = errors.New("refresh superseded by a newer result")

	// ErrNoDraft is returned by draft operations when no edit is in progress.
	ErrNoDraft = errors.New("no edit in progress")

	// ErrNoSession is returned when a protected operation is attempted without
	// a stored session credential.
	ErrNoSession = errors.New("not logged in")

	// ErrInvalidCredentials is returned when the service rejects a login.
	ErrInvalidCredentials = errors.New("invalid username or password")
)
