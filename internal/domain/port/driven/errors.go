package driven

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the remote service rejects the session
// credential. Receiving it terminates the session.
var ErrUnauthorized = errors.New("unauthorized: session credential rejected")

// ErrNotFound is returned when the remote service has no record with the
// requested id. Locally it means the view is stale and needs a refresh.
var ErrNotFound = errors.New("record not found")

// NetworkError wraps a transport failure: the request may or may not have
// reached the service.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServiceError is a non-success response the client has no more specific
// mapping for.
type ServiceError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: service returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: service returned status %d: %s", e.Op, e.Status, e.Message)
}
