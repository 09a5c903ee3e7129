package driven

import "context"

// Registration is the account data submitted on sign-up.
type Registration struct {
	Username string
	Email    string
	Password string
}

// Authenticator defines the driven port for the remote account endpoints.
// Token issuance is entirely the service's concern; the client only keeps
// the returned bearer credential.
type Authenticator interface {
	Register(ctx context.Context, reg Registration) error

	// Login exchanges username and password for a bearer credential.
	Login(ctx context.Context, username, password string) (string, error)
}
