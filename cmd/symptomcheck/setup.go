package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aelexs/symptomcheck/internal/api"
	"github.com/aelexs/symptomcheck/internal/authgate"
	"github.com/aelexs/symptomcheck/internal/config"
	"github.com/aelexs/symptomcheck/internal/domain"
	"github.com/aelexs/symptomcheck/internal/observability"
	"github.com/aelexs/symptomcheck/internal/redis"
	"github.com/aelexs/symptomcheck/internal/session"
	"github.com/aelexs/symptomcheck/internal/view"
)

const serviceName = "symptomcheck"

// app is everything a command needs, wired once per process.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  session.Store
	term   *view.Terminal
	client *api.Client
	clock  domain.Clock
	in     io.Reader
}

// setup is the composition root: logger, session backend, telemetry,
// terminal, gate, then the API client. The returned cleanup flushes
// telemetry and closes backend connections.
func setup(ctx context.Context, cfg *config.Config, s streams, color bool) (*app, func(), error) {
	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Output:      s.err,
	})

	origin, err := session.OriginKey(cfg.API.BaseURL)
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := newStore(ctx, cfg, origin)
	if err != nil {
		return nil, nil, err
	}

	telemetry, err := observability.InitTelemetry(ctx, observability.TelemetryConfig{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
		Insecure:       cfg.IsLocal(),
	})
	if err != nil {
		_ = closeStore()
		return nil, nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	cleanup := func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close session backend", slog.String("error", err.Error()))
		}
		otelCtx, cancel := context.WithTimeout(context.Background(), domain.ShutdownOTELTimeout)
		defer cancel()
		if err := telemetry.Shutdown(otelCtx); err != nil {
			logger.Warn("failed to shutdown telemetry", slog.String("error", err.Error()))
		}
	}

	term := view.NewTerminal(s.out, view.WithColor(color))

	gate := authgate.New(authgate.Config{
		Store:     store,
		Notifier:  term,
		Navigator: term,
		Logger:    logger,
	})

	client := api.New(api.Config{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.API.Timeout},
		Store:      store,
		Gate:       gate,
		Notifier:   term,
		Navigator:  term,
		Logger:     logger,
	})

	logger.Debug("client ready",
		slog.String("origin", origin),
		slog.String("session_backend", cfg.Session.Backend),
	)

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		term:   term,
		client: client,
		clock:  domain.RealClock{},
		in:     s.in,
	}, cleanup, nil
}

// newStore opens the configured session backend for origin.
func newStore(ctx context.Context, cfg *config.Config, origin string) (session.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Session.Backend {
	case config.BackendMemory:
		return session.NewMemoryStore(), noop, nil
	case config.BackendRedis:
		rc := redis.NewClient(redis.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			ReadTimeout:  cfg.Redis.Timeout,
			WriteTimeout: cfg.Redis.Timeout,
		})
		pingCtx, cancel := context.WithTimeout(ctx, cfg.Redis.Timeout)
		defer cancel()
		if err := rc.Ping(pingCtx); err != nil {
			_ = rc.Close()
			return nil, nil, fmt.Errorf("open redis session backend: %w", err)
		}
		return session.NewRedisStore(rc.RDB, origin), rc.Close, nil
	default:
		dir := cfg.Session.Dir
		if dir == "" {
			d, err := session.DefaultDir()
			if err != nil {
				return nil, nil, fmt.Errorf("resolve session dir: %w", err)
			}
			dir = d
		}
		return session.NewFileStore(dir, origin), noop, nil
	}
}
