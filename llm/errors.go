package llm

import (
	"errors"
	"fmt"
)

// ErrAborted is returned when the call's context was done before a
// response was obtained.
var ErrAborted = errors.New("request aborted")

// CredentialError reports a missing or empty API key. It is returned before
// any network attempt.
type CredentialError struct {
	Provider string
	EnvVar   string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("API key not configured: set %s in your environment or .env file", e.EnvVar)
}

// TransportError reports a failed call or a non-success response.
// Message is the remote service's own message when it sent one.
type TransportError struct {
	Provider string
	Status   int // HTTP status, 0 when no response was received
	Message  string
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("request failed: %s", e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
