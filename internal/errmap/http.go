// Package errmap turns client outcomes into what the user sees: a message
// and a process exit code.
package errmap

import (
	"errors"

	"github.com/aelexs/symptomcheck/internal/api"
	"github.com/aelexs/symptomcheck/internal/domain"
)

// Exit codes of the CLI.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// UserError is the presentation of a failed operation.
type UserError struct {
	Message  string
	ExitCode int
	// Silent is set when the user was already told (session expiry notice,
	// login-required notice) and nothing more should be printed.
	Silent bool
}

func (e UserError) Error() string {
	return e.Message
}

// userMapping defines a domain error to message/exit code mapping.
type userMapping struct {
	err     error
	message string
	silent  bool
}

// userMappings maps sentinel errors to messages.
// Order matters: first match wins (via errors.Is).
var userMappings = []userMapping{
	// Handled by the gate or the client; already notified.
	{domain.ErrSessionInvalidated, "", true},
	{domain.ErrLoginRequired, "", true},

	// Preconditions. ErrMissingCredentials wraps ErrMissingFields, so it goes first.
	{domain.ErrMissingCredentials, domain.MsgEnterCredentials, false},
	{domain.ErrMissingFields, domain.MsgFillAllFields, false},
	{domain.ErrNoSession, "Not logged in", false},
}

// ToUserError converts a client error into its presentation.
func ToUserError(err error) UserError {
	if err == nil {
		return UserError{ExitCode: ExitOK}
	}

	var reqErr *api.RequestError
	if errors.As(err, &reqErr) {
		return UserError{Message: reqErr.Detail, ExitCode: ExitFailure}
	}

	if errors.Is(err, domain.ErrNetwork) {
		return UserError{Message: "Network error: " + transportCause(err).Error(), ExitCode: ExitFailure}
	}

	for _, m := range userMappings {
		if errors.Is(err, m.err) {
			return UserError{Message: m.message, ExitCode: ExitFailure, Silent: m.silent}
		}
	}

	return UserError{Message: err.Error(), ExitCode: ExitFailure}
}

// ToExitCode extracts just the exit code for an error.
func ToExitCode(err error) int {
	return ToUserError(err).ExitCode
}

// transportCause returns the transport error joined with ErrNetwork, which
// is what the user needs to see.
func transportCause(err error) error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if u, ok := e.(interface{ Unwrap() []error }); ok {
			if errs := u.Unwrap(); len(errs) > 0 {
				return errs[len(errs)-1]
			}
		}
	}
	return err
}
