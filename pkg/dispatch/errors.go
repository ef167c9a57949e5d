package dispatch

import (
	"errors"
	"fmt"
)

// FallbackMessage is reported when the server rejects a call without a message
const FallbackMessage = "No error message reported!"

var (
	// ErrNotConfigured is returned when a dispatcher is used before New built it
	ErrNotConfigured = errors.New("dispatch: client not configured")

	// ErrRemote matches every *RemoteError via errors.Is
	ErrRemote = errors.New("remote request failed")
)

// RemoteError is returned when the System Manager answers with a non-200 status
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Is lets callers test for ErrRemote without a type assertion
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// ValidationError reports an input that failed a declared constraint. It is
// always raised before any network call.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	switch e.Rule {
	case "", "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "oneof":
		return fmt.Sprintf("%s has an unsupported value", e.Field)
	default:
		return fmt.Sprintf("%s failed %s validation", e.Field, e.Rule)
	}
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not a
// remote error.
func StatusCode(err error) int {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.StatusCode
	}
	return 0
}
