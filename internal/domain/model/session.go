package model

// SessionState is the lifecycle state of one authenticated session.
type SessionState string

const (
	SessionActive       SessionState = "active"
	SessionWarningShown SessionState = "warning"
	SessionExpired      SessionState = "expired"
)

// ExpiryReason records which path terminated a session.
type ExpiryReason string

const (
	ExpiryInactivity   ExpiryReason = "inactivity"
	ExpiryLogout       ExpiryReason = "logout"
	ExpiryUnauthorized ExpiryReason = "unauthorized"
)

// ActivityKind is a user input signal that keeps a session alive.
type ActivityKind string

const (
	ActivityPointer  ActivityKind = "pointer"
	ActivityKeyboard ActivityKind = "keyboard"
	ActivityScroll   ActivityKind = "scroll"
	ActivityTouch    ActivityKind = "touch"
)

// Recognized reports whether k is one of the activity kinds that reset the
// inactivity timer.
func (k ActivityKind) Recognized() bool {
	switch k {
	case ActivityPointer, ActivityKeyboard, ActivityScroll, ActivityTouch:
		return true
	default:
		return false
	}
}
