// Package main serves the in-memory symptom API for local development.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aelexs/symptomcheck/internal/api/apitest"
	"github.com/aelexs/symptomcheck/internal/config"
	"github.com/aelexs/symptomcheck/internal/domain"
	"github.com/aelexs/symptomcheck/internal/observability"
	"github.com/aelexs/symptomcheck/internal/server"
)

const serviceName = "stubapi"

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	admin := fs.String("admin", "", "seed an admin account as username:password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: serviceName,
		Environment: cfg.Environment,
	})

	telemetry, err := observability.InitTelemetry(ctx, observability.TelemetryConfig{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
		Insecure:       cfg.IsLocal(),
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		otelCtx, cancel := context.WithTimeout(context.Background(), domain.ShutdownOTELTimeout)
		defer cancel()
		if err := telemetry.Shutdown(otelCtx); err != nil {
			logger.Error("failed to shutdown telemetry", slog.String("error", err.Error()))
		}
	}()

	stub := apitest.NewServer(
		apitest.WithSigningKey(domain.SecretBytes(cfg.Stub.SigningKey)),
		apitest.WithTokenTTL(cfg.Stub.TokenTTL),
	)
	if *admin != "" {
		username, password, ok := strings.Cut(*admin, ":")
		if !ok || username == "" || password == "" {
			return fmt.Errorf("-admin must be username:password")
		}
		if err := stub.AddUser("Admin", "User", username, username+"@localhost", password, domain.RoleAdmin); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		logger.Info("seeded admin account", slog.String("username", username))
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", fmt.Sprintf(":%d", cfg.Stub.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	return server.Run(ctx, server.Params{
		Name:       serviceName,
		Handler:    stub,
		DrainDelay: 200 * time.Millisecond,
		Logger:     logger,
	}, ln)
}
