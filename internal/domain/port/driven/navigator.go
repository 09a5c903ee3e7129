package driven

// Navigator is the navigation boundary of the host environment.
type Navigator interface {
	// GoToLogin leaves any protected view. notice is a user-visible message
	// explaining why, or empty.
	GoToLogin(notice string)

	// GoToDashboard enters the protected area after a successful login.
	GoToDashboard()
}
