// Package server runs an HTTP handler with health checks and graceful
// shutdown. cmd/stubapi uses it to serve the in-memory symptom API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aelexs/symptomcheck/internal/domain"
)

// Params configures Run.
type Params struct {
	// Name identifies the service in health responses and logs.
	Name string

	// Handler serves every path except /healthz.
	Handler http.Handler

	// DrainDelay is how long /healthz reports 503 before the listener closes.
	DrainDelay time.Duration

	Logger *slog.Logger
}

// Run serves p.Handler on ln until ctx is cancelled, then drains: /healthz
// turns 503, the drain delay elapses, and the server shuts down within
// domain.ShutdownHTTPTimeout.
func Run(ctx context.Context, p Params, ln net.Listener) error {
	if p.Handler == nil {
		return fmt.Errorf("server %s: nil handler", p.Name)
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var shuttingDown atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if shuttingDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"shutting_down","service":%q}`, p.Name)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":%q}`, p.Name)
	})
	mux.Handle("/", p.Handler)

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server",
			slog.String("service", p.Name),
			slog.String("addr", ln.Addr().String()),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("received shutdown signal, starting graceful shutdown")

		shuttingDown.Store(true)
		if p.DrainDelay > 0 {
			time.Sleep(p.DrainDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), domain.ShutdownHTTPTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		logger.Info("shutdown complete")
		return nil
	})

	return g.Wait()
}
