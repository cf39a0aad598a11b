package api

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/codes"

	"github.com/aelexs/symptomcheck/internal/domain"
)

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Firstname string
	Lastname  string
	Username  string
	Email     string
	Password  domain.SecretString
}

func (r RegisterRequest) complete() bool {
	return r.Firstname != "" && r.Lastname != "" && r.Username != "" &&
		r.Email != "" && !r.Password.IsEmpty()
}

// registerBody is the wire form; the password leaves SecretString only here.
type registerBody struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// RegisterResult is returned by Register on success.
type RegisterResult struct {
	Username string
	// Next is where the user goes after registering.
	Next domain.Route
}

type userResponse struct {
	ID        int    `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

// Register creates an account. Registration never creates a session.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	const op = "register"
	ctx, span := tracer.Start(ctx, "api.register")
	defer span.End()

	if !req.complete() {
		return RegisterResult{}, c.precondition(ctx, op, domain.ErrMissingFields)
	}

	resp, err := c.do(ctx, op, http.MethodPost, pathRegister, registerBody{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password.Expose(),
	}, nil)
	if err != nil {
		return RegisterResult{}, err
	}

	var user userResponse
	if err := decode(op, resp, &user, domain.MsgRegisterFailed); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return RegisterResult{}, err
	}

	c.logger.InfoContext(ctx, "registered", "username", user.Username)
	return RegisterResult{Username: user.Username, Next: domain.RouteLogin}, nil
}

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
	Role        string `json:"role"`
}

// LoginResult is returned by Login on success.
type LoginResult struct {
	Credential domain.Credential
	// Next is the landing route for the user's role.
	Next domain.Route
}

// Login authenticates and stores the returned session. A response that does
// not carry a complete credential is a failure and stores nothing.
func (c *Client) Login(ctx context.Context, username string, password domain.SecretString) (LoginResult, error) {
	const op = "login"
	ctx, span := tracer.Start(ctx, "api.login")
	defer span.End()

	if username == "" || password.IsEmpty() {
		return LoginResult{}, c.precondition(ctx, op, domain.ErrMissingCredentials)
	}

	resp, err := c.do(ctx, op, http.MethodPost, pathLogin, loginBody{
		Username: username,
		Password: password.Expose(),
	}, nil)
	if err != nil {
		return LoginResult{}, err
	}

	var lr loginResponse
	if err := decode(op, resp, &lr, domain.MsgLoginFailed); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return LoginResult{}, err
	}

	cred := domain.Credential{
		Token:    domain.SecretString(lr.AccessToken),
		Role:     domain.Role(lr.Role),
		Username: lr.Username,
	}
	if !cred.Complete() {
		span.SetStatus(codes.Error, "incomplete credential")
		return LoginResult{}, &RequestError{Op: op, StatusCode: resp.StatusCode, Detail: domain.MsgLoginFailed}
	}

	if err := c.store.Save(ctx, cred); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	c.logger.InfoContext(ctx, "logged in", "username", cred.Username, "role", string(cred.Role))
	return LoginResult{Credential: cred, Next: domain.LandingRoute(cred.Role)}, nil
}

// ValidateSession pings the protected endpoint so the gate can evict a dead
// session. The payload is ignored. Without a stored session nothing is sent
// and ErrNoSession is returned.
func (c *Client) ValidateSession(ctx context.Context) error {
	const op = "validate_session"
	ctx, span := tracer.Start(ctx, "api.validate_session")
	defer span.End()

	cred, ok, err := c.loadSession(ctx, op)
	if err != nil {
		return err
	}
	if !ok {
		return c.precondition(ctx, op, domain.ErrNoSession)
	}

	resp, err := c.do(ctx, op, http.MethodGet, pathProtected, nil, &cred)
	if err != nil {
		return err
	}
	return decode(op, resp, nil, domain.MsgRequestFailed)
}

// Logout drops the local session and returns to the default landing route.
// The server keeps no logout endpoint; the token simply stops being sent.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	c.logger.InfoContext(ctx, "logged out")
	c.navigator.Navigate(ctx, domain.RouteHome)
	return nil
}

// Current returns the stored session, if any.
func (c *Client) Current(ctx context.Context) (domain.Credential, bool, error) {
	return c.loadSession(ctx, "current")
}
