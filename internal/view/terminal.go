// Package view renders client outcomes on a terminal. Terminal is also the
// Notifier and Navigator the session gate and API client report to.
package view

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aelexs/symptomcheck/internal/api"
	"github.com/aelexs/symptomcheck/internal/domain"
	"github.com/aelexs/symptomcheck/internal/errmap"
)

// Confidence bands of a predicted disease.
const (
	BandHigh   = "green"
	BandMedium = "orange"
	BandLow    = "red"
)

const barWidth = 20

// ANSI colors per band.
var bandColors = map[string]string{
	BandHigh:   "\x1b[32m",
	BandMedium: "\x1b[33m",
	BandLow:    "\x1b[31m",
}

const ansiReset = "\x1b[0m"

// Terminal writes user-facing output to w.
type Terminal struct {
	mu        sync.Mutex
	w         io.Writer
	color     bool
	lastRoute domain.Route
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithColor enables ANSI colors for confidence bands.
func WithColor(on bool) Option {
	return func(t *Terminal) { t.color = on }
}

// NewTerminal creates a Terminal writing to w.
func NewTerminal(w io.Writer, opts ...Option) *Terminal {
	t := &Terminal{w: w, lastRoute: domain.RouteUnknown}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Notify shows a one-off notice.
func (t *Terminal) Notify(_ context.Context, msg string) {
	t.println(msg)
}

// Navigate records the new route and tells the user where they were sent.
func (t *Terminal) Navigate(_ context.Context, route domain.Route) {
	t.mu.Lock()
	t.lastRoute = route
	t.mu.Unlock()
	t.println("-> " + string(route))
}

// LastRoute is the most recent navigation target, or RouteUnknown.
func (t *Terminal) LastRoute() domain.Route {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRoute
}

// Welcome greets the stored user.
func (t *Terminal) Welcome(cred domain.Credential) {
	t.println(fmt.Sprintf("Welcome, %s!", cred.Username))
}

// Registered reports a successful registration.
func (t *Terminal) Registered(res api.RegisterResult) {
	t.println(fmt.Sprintf("Registered successfully as %q. Redirecting to login...", res.Username))
}

// LoggedIn reports a successful login.
func (t *Terminal) LoggedIn(res api.LoginResult) {
	t.println(fmt.Sprintf("Welcome back, %s! Redirecting...", res.Credential.Username))
}

// LoggedOut reports a local logout.
func (t *Terminal) LoggedOut() {
	t.println("Logged out.")
}

// Prediction renders symptoms, suggestions and ranked diseases.
func (t *Terminal) Prediction(p api.Prediction) {
	var b strings.Builder

	if len(p.ValidSymptoms) > 0 {
		fmt.Fprintf(&b, "Recognized Symptoms: %s\n", strings.Join(p.ValidSymptoms, ", "))
	}
	if len(p.InvalidSymptoms) > 0 {
		fmt.Fprintf(&b, "Invalid Symptoms: %s\n", strings.Join(p.InvalidSymptoms, ", "))
	}

	typed := make([]string, 0, len(p.Suggestions))
	for k := range p.Suggestions {
		typed = append(typed, k)
	}
	sort.Strings(typed)
	for _, k := range typed {
		fmt.Fprintf(&b, "Did you mean %q instead of %q?\n", p.Suggestions[k], k)
	}

	if len(p.Diseases) == 0 {
		b.WriteString("No matching diseases.\n")
	} else {
		b.WriteString("Matched Diseases:\n")
		width := 0
		for _, d := range p.Diseases {
			width = max(width, len(d.Disease))
		}
		for _, d := range p.Diseases {
			fmt.Fprintf(&b, "  %-*s %s\n", width, d.Disease, t.bar(d.MatchPercent))
		}
	}

	t.write(b.String())
}

// Error prints the user-facing form of err and returns the exit code.
// Handled outcomes print nothing: the user was already notified.
func (t *Terminal) Error(err error) int {
	ue := errmap.ToUserError(err)
	if !ue.Silent && ue.Message != "" {
		t.println("Error: " + ue.Message)
	}
	return ue.ExitCode
}

// Band returns the confidence band for a match percentage.
func Band(percent int) string {
	switch {
	case percent >= 80:
		return BandHigh
	case percent >= 50:
		return BandMedium
	default:
		return BandLow
	}
}

func (t *Terminal) bar(percent int) string {
	p := min(max(percent, 0), 100)
	filled := p * barWidth / 100
	band := Band(p)
	bar := strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)
	label := fmt.Sprintf("[%s] %3d%% (%s)", bar, p, band)
	if t.color {
		return bandColors[band] + label + ansiReset
	}
	return label
}

func (t *Terminal) println(s string) {
	t.write(s + "\n")
}

func (t *Terminal) write(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = io.WriteString(t.w, s)
}
