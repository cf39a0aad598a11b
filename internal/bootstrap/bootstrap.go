// Package bootstrap runs the once-per-start session check.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aelexs/symptomcheck/internal/domain"
)

// Validator pings the protected endpoint with the stored session.
type Validator interface {
	ValidateSession(ctx context.Context) error
}

// Result tells the caller what the check did.
type Result int

const (
	// ResultNoSession means nothing was stored and nothing was sent.
	ResultNoSession Result = iota
	// ResultValid means the server accepted the session.
	ResultValid
	// ResultInvalidated means the gate evicted the session and redirected.
	ResultInvalidated
	// ResultInconclusive means the check failed for an unrelated reason and
	// the session was kept.
	ResultInconclusive
)

func (r Result) String() string {
	switch r {
	case ResultNoSession:
		return "no_session"
	case ResultValid:
		return "valid"
	case ResultInvalidated:
		return "invalidated"
	default:
		return "inconclusive"
	}
}

// Run validates the stored session once. Failures never propagate: a network
// error or an unrelated rejection leaves the session in place, and the user
// finds out on their next authenticated action.
func Run(ctx context.Context, v Validator, logger *slog.Logger) Result {
	err := v.ValidateSession(ctx)
	switch {
	case err == nil:
		logger.DebugContext(ctx, "stored session accepted")
		return ResultValid
	case errors.Is(err, domain.ErrNoSession):
		return ResultNoSession
	case domain.IsHandled(err):
		return ResultInvalidated
	case errors.Is(err, domain.ErrNetwork):
		logger.WarnContext(ctx, "session validation skipped: network error", "error", err)
		return ResultInconclusive
	default:
		logger.WarnContext(ctx, "session validation failed", "error", err)
		return ResultInconclusive
	}
}
