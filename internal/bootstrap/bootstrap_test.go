package bootstrap_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/aelexs/symptomcheck/internal/bootstrap"
	"github.com/aelexs/symptomcheck/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubValidator implements bootstrap.Validator with a function field.
type stubValidator struct {
	calls      int
	validateFn func(ctx context.Context) error
}

func (s *stubValidator) ValidateSession(ctx context.Context) error {
	s.calls++
	if s.validateFn != nil {
		return s.validateFn(ctx)
	}
	return nil
}

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    bootstrap.Result
		wantLog string
	}{
		{"valid session", nil, bootstrap.ResultValid, ""},
		{"no session", fmt.Errorf("validate_session: %w", domain.ErrNoSession), bootstrap.ResultNoSession, ""},
		{"evicted", fmt.Errorf("validate_session: %w", domain.ErrSessionInvalidated), bootstrap.ResultInvalidated, ""},
		{"network error is ignored", fmt.Errorf("validate_session: %w: %w", domain.ErrNetwork, errors.New("connection refused")), bootstrap.ResultInconclusive, "network error"},
		{"ordinary failure is ignored", fmt.Errorf("validate_session: %w", domain.ErrRequestFailed), bootstrap.ResultInconclusive, "session validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			v := &stubValidator{validateFn: func(_ context.Context) error { return tt.err }}

			got := bootstrap.Run(context.Background(), v, logger)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, v.calls, "validation runs exactly once")
			if tt.wantLog != "" {
				assert.Contains(t, buf.String(), tt.wantLog)
			}
		})
	}
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "no_session", bootstrap.ResultNoSession.String())
	assert.Equal(t, "valid", bootstrap.ResultValid.String())
	assert.Equal(t, "invalidated", bootstrap.ResultInvalidated.String())
	assert.Equal(t, "inconclusive", bootstrap.ResultInconclusive.String())
}
