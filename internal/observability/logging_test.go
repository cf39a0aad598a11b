package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/aelexs/symptomcheck/internal/observability"
)

func TestInitLogger_Redacts(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		shouldRedact bool
	}{
		{"token is redacted", "token", "eyJhbGciOi", true},
		{"access_token is redacted", "access_token", "eyJzdWIi", true},
		{"password is redacted", "password", "hunter2", true},
		{"authorization is redacted", "Authorization", "Bearer xyz", true},
		{"signing_key is redacted", "signing_key", "k3y", true},
		{"username not redacted", "username", "alice", false},
		{"route not redacted", "route", "/login", false},
		{"status not redacted", "status", "401", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := observability.InitLogger(observability.LogConfig{
				Level:  "info",
				Format: "json",
				Output: &buf,
			})

			logger.Info("test", tt.key, tt.value)
			output := buf.String()

			if tt.shouldRedact {
				assert.Contains(t, output, "[REDACTED]")
				assert.NotContains(t, output, tt.value)
			} else {
				assert.Contains(t, output, tt.value)
				assert.NotContains(t, output, "[REDACTED]")
			}
		})
	}
}

func TestInitLogger_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.InitLogger(observability.LogConfig{
		Level:       "warn",
		Format:      "text",
		ServiceName: "symptomcheck",
		Environment: "test",
		Output:      &buf,
	})

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "service=symptomcheck")
	assert.Same(t, logger, slog.Default())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, observability.ParseLevel(tt.in))
		})
	}
}

func TestWithTraceID(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	logger := observability.WithTraceID(ctx, slog.New(slog.NewTextHandler(&buf, nil)))
	logger.Info("hello")

	assert.Contains(t, buf.String(), "trace_id="+span.SpanContext().TraceID().String())
}

func TestWithTraceID_NoSpan(t *testing.T) {
	base := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	assert.Same(t, base, observability.WithTraceID(context.Background(), base))
}
