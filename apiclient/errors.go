package apiclient

import (
	"errors"
	"fmt"
)

// ErrNoCredential is returned when an operation is invoked without an API
// key. It is detected before any network attempt and is never retried:
// the user has to configure a key, not wait.
type ErrNoCredential struct{}

func (e *ErrNoCredential) Error() string {
	return "apiclient: no API key configured"
}

// IsNoCredential reports whether err (or anything it wraps) is an
// ErrNoCredential.
func IsNoCredential(err error) bool {
	var missing *ErrNoCredential
	return errors.As(err, &missing)
}

// ErrStatus is a remote rejection: the API answered with a non-2xx
// status. The numeric status is surfaced verbatim so users can tell auth
// failures (401) from validation failures (400).
type ErrStatus struct {
	Status int
	Body   string
}

func (e *ErrStatus) Error() string {
	return fmt.Sprintf("API error: %d", e.Status)
}
