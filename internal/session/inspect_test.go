package session_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/symptomcheck/internal/domain"
	"github.com/aelexs/symptomcheck/internal/domain/domaintest"
	"github.com/aelexs/symptomcheck/internal/session"
)

var testStart = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func signTestToken(t *testing.T, claims jwt.MapClaims) domain.SecretString {
	t.Helper()

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-key"))
	require.NoError(t, err)
	return domain.SecretString(s)
}

func TestInspect(t *testing.T) {
	t.Run("reads subject role and expiry", func(t *testing.T) {
		token := signTestToken(t, jwt.MapClaims{
			"sub":  "alice",
			"role": "user",
			"exp":  testStart.Add(30 * time.Minute).Unix(),
		})

		info, err := session.Inspect(token)

		require.NoError(t, err)
		assert.Equal(t, "alice", info.Subject)
		assert.Equal(t, "user", info.Role)
		assert.True(t, info.ExpiresAt.Equal(testStart.Add(30*time.Minute)))
	})

	t.Run("expiry relative to clock", func(t *testing.T) {
		clock := domaintest.NewFakeClock(testStart)
		token := signTestToken(t, jwt.MapClaims{"sub": "alice", "exp": testStart.Add(time.Minute).Unix()})
		info, err := session.Inspect(token)
		require.NoError(t, err)

		assert.False(t, info.Expired(clock))
		assert.Equal(t, time.Minute, info.ExpiresIn(clock))

		clock.Advance(2 * time.Minute)
		assert.True(t, info.Expired(clock))
		assert.Equal(t, time.Duration(0), info.ExpiresIn(clock))
	})

	t.Run("no exp claim never expires locally", func(t *testing.T) {
		clock := domaintest.NewFakeClock(testStart)
		info, err := session.Inspect(signTestToken(t, jwt.MapClaims{"sub": "alice"}))
		require.NoError(t, err)

		assert.True(t, info.ExpiresAt.IsZero())
		assert.False(t, info.Expired(clock))
	})

	t.Run("opaque token is malformed", func(t *testing.T) {
		_, err := session.Inspect("abc")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrMalformedToken)
	})
}
