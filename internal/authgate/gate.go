package authgate

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aelexs/symptomcheck/internal/domain"
	"github.com/aelexs/symptomcheck/internal/session"
)

var sessionInvalidationsTotal metric.Int64Counter

func init() {
	m := otel.Meter("authgate")

	sessionInvalidationsTotal, _ = m.Int64Counter("client_session_invalidations_total",
		metric.WithDescription("Total sessions torn down after a server rejection"))
}

// Notifier surfaces a user-visible message.
type Notifier interface {
	Notify(ctx context.Context, msg string)
}

// Navigator performs a full navigation to route.
type Navigator interface {
	Navigate(ctx context.Context, route domain.Route)
}

// Config holds the dependencies for Gate.
type Config struct {
	Store     session.Store
	Notifier  Notifier
	Navigator Navigator
	Logger    *slog.Logger
}

// Gate is the single chokepoint every API response passes through.
type Gate struct {
	// mu serializes the read-then-act sequence of Handle.
	mu        sync.Mutex
	store     session.Store
	notifier  Notifier
	navigator Navigator
	logger    *slog.Logger
}

// New creates a Gate.
func New(cfg Config) *Gate {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		store:     cfg.Store,
		notifier:  cfg.Notifier,
		navigator: cfg.Navigator,
		logger:    logger,
	}
}

// Handle classifies resp and, when it invalidates the session, clears the
// store, notifies the user, and navigates to the login route. It returns true
// when the response is owned by the gate and the caller must stop.
//
// sentToken is the bearer token the request carried, empty for
// unauthenticated requests. An invalidation whose token no longer matches the
// stored session (already cleared, or replaced by a newer login) is still
// reported as handled but changes nothing.
func (g *Gate) Handle(ctx context.Context, resp Response, sentToken domain.SecretString) bool {
	if Classify(resp) != VerdictInvalidate {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !sentToken.IsEmpty() && g.isStale(ctx, sentToken) {
		g.logger.DebugContext(ctx, "ignoring invalidation for a session that is no longer stored")
		return true
	}

	if err := g.store.Clear(ctx); err != nil {
		g.logger.ErrorContext(ctx, "failed to clear session after invalidation", "error", err)
	}

	sessionInvalidationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Int("status", resp.StatusCode)))
	g.logger.InfoContext(ctx, "session invalidated by server", "detail", Detail(resp.Body))

	g.notifier.Notify(ctx, domain.MsgSessionExpired)
	g.navigator.Navigate(ctx, domain.RouteLogin)
	return true
}

// isStale reports whether the stored session differs from the one the
// request was sent with. A store read failure is not stale: clearing is the
// safe reaction.
func (g *Gate) isStale(ctx context.Context, sentToken domain.SecretString) bool {
	cur, ok, err := g.store.Load(ctx)
	if err != nil {
		g.logger.WarnContext(ctx, "failed to load session during invalidation", "error", err)
		return false
	}
	return !ok || cur.Token != sentToken
}
