package model

import "fmt"

// ValidationError reports a record rejected either locally or by the remote
// service. It is meant to be shown inline next to the offending field and is
// never retried automatically.
type ValidationError struct {
	Field   string // Empty when the service did not name a field.
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// InvalidConfigError reports a password generation request that cannot be
// satisfied. It is user-correctable.
type InvalidConfigError struct {
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return "invalid password generation config: " + e.Reason
}
