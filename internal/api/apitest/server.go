// Package apitest is an in-memory implementation of the symptom service API
// for tests and local development. It reproduces the server's session rules:
// bcrypt passwords, HS256 access tokens with expiry, and a single active token
// per server (a new login invalidates the previous one).
package apitest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/aelexs/symptomcheck/internal/domain"
)

// Details sent in 401 responses, as the real service words them.
const (
	DetailNotAuthenticated = "Not authenticated"
	DetailLoggedOut        = "User logged out or token invalid"
	DetailInvalidToken     = "Invalid token"
	DetailTokenExpired     = "token_expired"
	DetailUserNotFound     = "User not found"
	DetailBadCredentials   = "Invalid username or password"
	DetailAlreadyExists    = "Username or email already registered"
	DetailBadPayload       = "Invalid payload. Expected {'symptoms': [..]}"
)

// DefaultTokenTTL matches the service's access token lifetime.
const DefaultTokenTTL = 30 * time.Minute

// PredictFunc produces the status and JSON body of /predict_disease.
type PredictFunc func(symptoms []string) (int, any)

// RecordedRequest is one request seen by the server.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type user struct {
	id           int
	firstname    string
	lastname     string
	username     string
	email        string
	passwordHash []byte
	role         domain.Role
}

type override struct {
	status int
	body   string
}

// Server is an http.Handler serving /register, /login, /protected and
// /predict_disease.
type Server struct {
	mu          sync.Mutex
	users       map[string]*user
	nextID      int
	activeUser  string
	activeToken string
	requests    []RecordedRequest
	overrides   map[string][]override

	key        domain.SecretBytes
	clock      domain.Clock
	tokenTTL   time.Duration
	bcryptCost int
	predict    PredictFunc
	router     *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the clock used for token issue and expiry checks.
func WithClock(c domain.Clock) Option { return func(s *Server) { s.clock = c } }

// WithTokenTTL sets the access token lifetime.
func WithTokenTTL(d time.Duration) Option { return func(s *Server) { s.tokenTTL = d } }

// WithSigningKey sets the HS256 key.
func WithSigningKey(k domain.SecretBytes) Option { return func(s *Server) { s.key = k } }

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option { return func(s *Server) { s.bcryptCost = cost } }

// WithPredict replaces the prediction handler.
func WithPredict(fn PredictFunc) Option { return func(s *Server) { s.predict = fn } }

// NewServer creates a Server with no users.
func NewServer(opts ...Option) *Server {
	s := &Server{
		users:      map[string]*user{},
		nextID:     1,
		overrides:  map[string][]override{},
		key:        domain.SecretBytes("apitest-signing-key"),
		clock:      domain.RealClock{},
		tokenTTL:   DefaultTokenTTL,
		bcryptCost: bcrypt.MinCost,
		predict:    EchoPredict,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.Use(s.record)
	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/protected", s.handleProtected).Methods(http.MethodGet)
	r.HandleFunc("/predict_disease", s.handlePredict).Methods(http.MethodPost)
	s.router = r

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddUser registers a user directly, bypassing /register. Use it to seed
// admin accounts, which /register never creates.
func (s *Server) AddUser(firstname, lastname, username, email, password string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.addUserLocked(firstname, lastname, username, email, password, role)
	return err
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RespondNext makes the next request to path answer with status and a raw
// body, regardless of its content. Queued responses are used in order.
func (s *Server) RespondNext(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[path] = append(s.overrides[path], override{status: status, body: body})
}

// RevokeActive drops the active token, as a login from another client would.
func (s *Server) RevokeActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeUser, s.activeToken = "", ""
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		queued := s.overrides[r.URL.Path]
		var ov *override
		if len(queued) > 0 {
			ov = &queued[0]
			s.overrides[r.URL.Path] = queued[1:]
		}
		s.mu.Unlock()

		if ov != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(ov.status)
			_, _ = w.Write([]byte(ov.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type registerRequest struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type validationIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []validationIssue{{Loc: []string{"body"}, Msg: "invalid JSON", Type: "value_error"}},
		})
		return
	}

	var issues []validationIssue
	for field, v := range map[string]string{
		"firstname": req.Firstname, "lastname": req.Lastname, "username": req.Username,
		"email": req.Email, "password": req.Password,
	} {
		if v == "" {
			issues = append(issues, validationIssue{Loc: []string{"body", field}, Msg: "field required", Type: "missing"})
		}
	}
	if req.Email != "" && !strings.Contains(req.Email, "@") {
		issues = append(issues, validationIssue{Loc: []string{"body", "email"}, Msg: "value is not a valid email address", Type: "value_error"})
	}
	if len(issues) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": issues})
		return
	}

	s.mu.Lock()
	u, err := s.addUserLocked(req.Firstname, req.Lastname, req.Username, req.Email, req.Password, domain.RoleUser)
	s.mu.Unlock()
	if errors.Is(err, errUserExists) {
		writeDetail(w, http.StatusBadRequest, DetailAlreadyExists)
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":        u.id,
		"firstname": u.firstname,
		"lastname":  u.lastname,
		"username":  u.username,
		"email":     u.email,
	})
}

var errUserExists = errors.New("username or email already registered")

func (s *Server) addUserLocked(firstname, lastname, username, email, password string, role domain.Role) (*user, error) {
	for _, u := range s.users {
		if u.username == username || u.email == email {
			return nil, errUserExists
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &user{
		id:           s.nextID,
		firstname:    firstname,
		lastname:     lastname,
		username:     username,
		email:        email,
		passwordHash: hash,
		role:         role,
	}
	s.nextID++
	s.users[username] = u
	return u, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[req.Username]
	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, DetailBadCredentials)
		return
	}

	now := s.clock.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			ID:        domain.NewRequestID(),
		},
		Role: string(u.role),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key.Expose())
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.activeUser, s.activeToken = u.username, token
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
		"username":     u.username,
		"role":         string(u.role),
	})
}

// authenticate applies the service's checks in order and returns the user or
// writes the 401.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*user, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		writeDetail(w, http.StatusUnauthorized, DetailNotAuthenticated)
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.activeToken {
		writeDetail(w, http.StatusUnauthorized, DetailLoggedOut)
		return nil, false
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.key.Expose(), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(s.clock.Now))
	if errors.Is(err, jwt.ErrTokenExpired) {
		writeDetail(w, http.StatusUnauthorized, DetailTokenExpired)
		return nil, false
	}
	if err != nil || claims.Subject == "" {
		writeDetail(w, http.StatusUnauthorized, DetailInvalidToken)
		return nil, false
	}

	u, ok := s.users[claims.Subject]
	if !ok {
		writeDetail(w, http.StatusUnauthorized, DetailUserNotFound)
		return nil, false
	}
	return u, true
}

func (s *Server) handleProtected(w http.ResponseWriter, r *http.Request) {
	u, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Hello, %s! You are authenticated.", u.firstname),
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	var body struct {
		Symptoms []string `json:"symptoms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Symptoms == nil {
		writeDetail(w, http.StatusBadRequest, DetailBadPayload)
		return
	}

	status, payload := s.predict(body.Symptoms)
	writeJSON(w, status, payload)
}

// EchoPredict treats every non-empty symptom as recognized and returns one
// fixed candidate.
func EchoPredict(symptoms []string) (int, any) {
	valid := []string{}
	for _, sym := range symptoms {
		if sym = strings.ToLower(strings.TrimSpace(sym)); sym != "" {
			valid = append(valid, sym)
		}
	}
	return http.StatusOK, map[string]any{
		"valid_symptoms":   valid,
		"invalid_symptoms": []string{},
		"diseases":         []map[string]any{{"disease": "Common Cold", "match_percent": 75}},
		"suggestions":      map[string]string{},
	}
}
