package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aelexs/symptomcheck/internal/domain"
)

// TokenInfo is what the client can read from its own bearer token without
// the signing key. It is for display only; the server decides validity.
type TokenInfo struct {
	Subject   string
	Role      string
	ExpiresAt time.Time // zero when the token carries no exp claim
}

// Expired reports whether exp is set and not after now.
func (i TokenInfo) Expired(clock domain.Clock) bool {
	return !i.ExpiresAt.IsZero() && !clock.Now().Before(i.ExpiresAt)
}

// ExpiresIn returns the time left before exp, zero when unknown or past.
func (i TokenInfo) ExpiresIn(clock domain.Clock) time.Duration {
	if i.ExpiresAt.IsZero() {
		return 0
	}
	if d := i.ExpiresAt.Sub(clock.Now()); d > 0 {
		return d
	}
	return 0
}

type inspectClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Inspect decodes the claims of a JWT bearer token without verifying its
// signature. Opaque (non-JWT) tokens return ErrMalformedToken.
func Inspect(token domain.SecretString) (TokenInfo, error) {
	var claims inspectClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token.Expose(), &claims); err != nil {
		return TokenInfo{}, fmt.Errorf("%w: %w", domain.ErrMalformedToken, err)
	}

	info := TokenInfo{Subject: claims.Subject, Role: claims.Role}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
