// Package api is the client for the symptom-to-disease service. Every
// response passes through the authorization gate before the caller sees it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"

	"github.com/aelexs/symptomcheck/internal/authgate"
	"github.com/aelexs/symptomcheck/internal/domain"
	"github.com/aelexs/symptomcheck/internal/observability"
	"github.com/aelexs/symptomcheck/internal/session"
)

var tracer = otel.Tracer("api")

var requestsTotal metric.Int64Counter

func init() {
	m := otel.Meter("api")

	requestsTotal, _ = m.Int64Counter("client_requests_total",
		metric.WithDescription("Total API operations by outcome"))
}

// Remote endpoints.
const (
	pathRegister  = "/register"
	pathLogin     = "/login"
	pathProtected = "/protected"
	pathPredict   = "/predict_disease"
)

// Outcome labels for client_requests_total.
const (
	outcomeSuccess      = "success"
	outcomeFailure      = "failure"
	outcomeNetwork      = "network_error"
	outcomeInvalidated  = "invalidated"
	outcomePrecondition = "precondition"
)

// Gate is the authorization gate consulted for every response.
type Gate interface {
	Handle(ctx context.Context, resp authgate.Response, sentToken domain.SecretString) bool
}

// Config holds the dependencies for Client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Store      session.Store
	Gate       Gate
	Notifier   authgate.Notifier
	Navigator  authgate.Navigator
	Logger     *slog.Logger
}

// Client issues the four remote operations plus the local logout.
type Client struct {
	baseURL   string
	http      *http.Client
	store     session.Store
	gate      Gate
	notifier  authgate.Notifier
	navigator authgate.Navigator
	logger    *slog.Logger
}

// New creates a Client. A nil HTTPClient uses a client with domain.APITimeout.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: domain.APITimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      httpClient,
		store:     cfg.Store,
		gate:      cfg.Gate,
		notifier:  cfg.Notifier,
		navigator: cfg.Navigator,
		logger:    logger,
	}
}

// RequestError is an ordinary non-2xx response that did not invalidate the
// session. Detail is the server's message or a generic fallback.
type RequestError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Detail)
}

// Unwrap lets callers match with errors.Is(err, domain.ErrRequestFailed).
func (e *RequestError) Unwrap() error {
	return domain.ErrRequestFailed
}

func newRequestError(op string, resp authgate.Response, fallback string) *RequestError {
	detail := authgate.Detail(resp.Body)
	if detail == "" {
		detail = fallback
	}
	return &RequestError{Op: op, StatusCode: resp.StatusCode, Detail: detail}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// do sends one request and runs the response through the gate. cred is nil
// for unauthenticated calls. The returned error is ErrNetwork when no
// response arrived and ErrSessionInvalidated when the gate took over.
func (c *Client) do(ctx context.Context, op, method, path string, body any, cred *domain.Credential) (authgate.Response, error) {
	span := observability.SpanFromContext(ctx)
	logger := observability.WithTraceID(ctx, c.logger)

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return authgate.Response{}, fmt.Errorf("%s: encode request: %w", op, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return authgate.Response{}, fmt.Errorf("%s: build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := domain.NewRequestID()
	req.Header.Set("X-Request-ID", requestID)

	var sentToken domain.SecretString
	if cred != nil {
		sentToken = cred.Token
		req.Header.Set("Authorization", cred.BearerHeader())
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.String("request_id", requestID),
	)

	httpResp, err := c.http.Do(req)
	if err != nil {
		requestsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op), attribute.String("outcome", outcomeNetwork)))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WarnContext(ctx, "api request failed", "operation", op, "request_id", requestID, "error", err)
		return authgate.Response{}, fmt.Errorf("%s: %w: %w", op, domain.ErrNetwork, err)
	}
	defer httpResp.Body.Close()

	// A truncated body still has a status; it is classified with what arrived.
	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		logger.WarnContext(ctx, "failed to read response body", "operation", op, "request_id", requestID, "error", err)
	}
	resp := authgate.Response{StatusCode: httpResp.StatusCode, Body: raw}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	logger.DebugContext(ctx, "api response",
		"operation", op,
		"request_id", requestID,
		"status", resp.StatusCode,
	)

	if c.gate.Handle(ctx, resp, sentToken) {
		requestsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op), attribute.String("outcome", outcomeInvalidated)))
		span.SetStatus(codes.Error, "session invalidated")
		return resp, fmt.Errorf("%s: %w", op, domain.ErrSessionInvalidated)
	}

	outcome := outcomeSuccess
	if !isSuccess(resp.StatusCode) {
		outcome = outcomeFailure
	}
	requestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op), attribute.String("outcome", outcome)))

	return resp, nil
}

// decode unmarshals a 2xx body into v. A malformed body is reported as an
// ordinary failure with fallback text.
func decode(op string, resp authgate.Response, v any, fallback string) error {
	if !isSuccess(resp.StatusCode) {
		return newRequestError(op, resp, fallback)
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Detail: fallback}
	}
	return nil
}

func (c *Client) precondition(ctx context.Context, op string, err error) error {
	requestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op), attribute.String("outcome", outcomePrecondition)))
	return fmt.Errorf("%s: %w", op, err)
}

// loadSession returns the stored credential, or ok=false when there is none.
func (c *Client) loadSession(ctx context.Context, op string) (domain.Credential, bool, error) {
	cred, ok, err := c.store.Load(ctx)
	if err != nil {
		return domain.Credential{}, false, fmt.Errorf("%s: load session: %w", op, err)
	}
	return cred, ok, nil
}
