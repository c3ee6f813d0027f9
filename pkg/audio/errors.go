package audio

import (
	"errors"
	"fmt"
)

// ErrNotFound signals that the provider has no recorded pronunciation for
// the requested form/reading pair. An entry without audio is still valid.
var ErrNotFound = errors.New("audio: no pronunciation found")

// AuthError reports a missing or rejected credential. When the extended
// deck variant was requested this is fatal.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("audio: %s: %v", e.Reason, e.Err)
	}
	return "audio: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }
