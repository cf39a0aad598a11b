package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for client outcomes.
// Use errors.Is() for matching - never compare error strings.
var (
	// Precondition errors: the request never reaches the network.
	ErrMissingFields      = errors.New("required fields are empty")
	ErrMissingCredentials = fmt.Errorf("username and password are required: %w", ErrMissingFields)
	ErrLoginRequired      = errors.New("login required")
	ErrNoSession          = errors.New("no stored session")

	// Transport errors: no response was received.
	ErrNetwork = errors.New("network error")

	// Session invalidation owned by the authorization gate. Not a failure the
	// caller reports; the session is already cleared and navigation performed.
	ErrSessionInvalidated = errors.New("session invalidated")

	// Ordinary non-2xx response that did not invalidate the session.
	ErrRequestFailed = errors.New("request failed")

	// Token inspection errors
	ErrMalformedToken = errors.New("malformed token")

	// Configuration errors
	ErrConfigRequired = errors.New("required configuration key missing")
)

// IsHandled returns true if the error means the authorization gate already
// took over (session cleared, user redirected) and the caller must stop.
func IsHandled(err error) bool {
	return errors.Is(err, ErrSessionInvalidated)
}

// preconditionErrors enumerates the outcomes decided before any request is sent.
var preconditionErrors = []error{
	ErrMissingFields,
	ErrLoginRequired,
	ErrNoSession,
}

// IsPrecondition returns true if the error was raised client-side without
// issuing a network request.
func IsPrecondition(err error) bool {
	for _, target := range preconditionErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
