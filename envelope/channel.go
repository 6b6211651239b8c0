package envelope

import (
	"context"
	"errors"
	"fmt"
)

// Channel is the asynchronous request/response link between an isolated
// context (capture agent, popup) and the relay. Call suspends the caller
// until the single matching response arrives, the context is cancelled,
// or the channel is deemed broken.
//
// A Channel gives no ordering guarantee between independent calls.
type Channel interface {
	Call(ctx context.Context, req Request) (Response, error)
}

// ErrContextLost reports that the relay's execution context was torn down
// while a request was in flight. The host platform may recycle the relay
// between any two requests, so callers treat this as transient: one retry
// is worthwhile, two are not.
type ErrContextLost struct {
	Cause error
}

func (e *ErrContextLost) Error() string {
	if e.Cause == nil {
		return "envelope: relay context lost"
	}
	return fmt.Sprintf("envelope: relay context lost: %v", e.Cause)
}

func (e *ErrContextLost) Unwrap() error { return e.Cause }

// IsContextLost reports whether err (or anything it wraps) is an
// ErrContextLost.
func IsContextLost(err error) bool {
	var lost *ErrContextLost
	return errors.As(err, &lost)
}

// ErrUnknownAction is returned when a frame names an action outside the
// closed request set.
type ErrUnknownAction struct {
	Actual string
}

func (e *ErrUnknownAction) Error() string {
	return fmt.Sprintf("envelope: unknown action %q", e.Actual)
}
