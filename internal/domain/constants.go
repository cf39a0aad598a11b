package domain

import "time"

// Timeouts and defaults. These are compiled defaults that can be overridden
// via configuration.
const (
	DefaultAPIBaseURL = "http://localhost:8000"
	APITimeout        = 15 * time.Second
	RedisTimeout      = 2 * time.Second

	// Graceful shutdown of the stub API server.
	ShutdownHTTPTimeout = 5 * time.Second
	ShutdownOTELTimeout = 5 * time.Second
)

// Storage keys of the three session entries.
const (
	KeyToken    = "token"
	KeyRole     = "role"
	KeyUsername = "username"
)

// User-facing messages.
const (
	MsgSessionExpired   = "Your session has expired. Please log in again."
	MsgMustLogin        = "You must login first to access diseases."
	MsgFillAllFields    = "Please fill all fields"
	MsgEnterCredentials = "Please enter username and password"
	MsgRegisterFailed   = "Registration failed"
	MsgLoginFailed      = "Login failed"
	MsgPredictFailed    = "Prediction failed"
	MsgRequestFailed    = "Request failed"
)

// Role is the authorization role attached to a session.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// IsValidRole checks if a role is one of the known roles.
func IsValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleUser
}

// Route is a navigation destination.
type Route string

const (
	RouteLogin   Route = "/login"
	RouteHome    Route = "/"
	RouteAdmin   Route = "/admin"
	RouteUnknown Route = ""
)

// LandingRoute returns where a freshly logged-in user goes.
func LandingRoute(r Role) Route {
	if r == RoleAdmin {
		return RouteAdmin
	}
	return RouteHome
}
