// Package authgate decides, for every HTTP response the client receives,
// whether the server has rejected the current session, and if so tears the
// session down.
package authgate

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Response is a fully read HTTP response. The body is read once by the API
// client; the gate and the caller both decode from the same bytes.
type Response struct {
	StatusCode int
	Body       []byte
}

// Verdict is the classification of a single response.
type Verdict int

const (
	// VerdictNone means the response is not about session validity.
	VerdictNone Verdict = iota
	// VerdictInvalidate means the server considers the session dead.
	VerdictInvalidate
)

func (v Verdict) String() string {
	switch v {
	case VerdictInvalidate:
		return "invalidate"
	default:
		return "none"
	}
}

// tokenExpiredMarker is the exact detail the server sends for an expired JWT.
const tokenExpiredMarker = "token_expired"

// invalidationPhrases are matched as substrings of the lowercased detail.
// The server's wording is not tightly contracted, hence substring matching.
var invalidationPhrases = []string{
	"expired",
	"not authenticated",
	"user logged out",
	"invalid token",
}

// invalidationCodes is the closed set of machine-readable reason codes
// understood in {"code": "...", "message": "..."} error bodies.
var invalidationCodes = map[string]struct{}{
	"TOKEN_EXPIRED":   {},
	"SESSION_EXPIRED": {},
	"SESSION_REVOKED": {},
	"UNAUTHENTICATED": {},
}

// errorBody covers both error shapes: {"detail": "..."} and
// {"code": "...", "message": "..."}. Detail stays untyped because
// validation errors carry a list there.
type errorBody struct {
	Detail  any    `json:"detail"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeErrorBody(body []byte) errorBody {
	var eb errorBody
	if len(body) == 0 {
		return eb
	}
	if err := json.Unmarshal(body, &eb); err != nil {
		return errorBody{}
	}
	return eb
}

// Detail returns the server's human-readable error text, or "" when the body
// is absent, malformed, or carries no string detail.
func Detail(body []byte) string {
	eb := decodeErrorBody(body)
	if s, ok := eb.Detail.(string); ok && s != "" {
		return s
	}
	return eb.Message
}

// Classify is the pure half of the gate. Only 401 responses can invalidate.
func Classify(resp Response) Verdict {
	if resp.StatusCode != http.StatusUnauthorized {
		return VerdictNone
	}

	eb := decodeErrorBody(resp.Body)
	if _, ok := invalidationCodes[strings.ToUpper(strings.TrimSpace(eb.Code))]; ok {
		return VerdictInvalidate
	}

	if MatchesInvalidation(Detail(resp.Body)) {
		return VerdictInvalidate
	}
	return VerdictNone
}

// MatchesInvalidation reports whether detail belongs to the invalidation
// vocabulary. Matching is case-insensitive.
func MatchesInvalidation(detail string) bool {
	d := strings.ToLower(strings.TrimSpace(detail))
	if d == "" {
		return false
	}
	if d == tokenExpiredMarker {
		return true
	}
	for _, phrase := range invalidationPhrases {
		if strings.Contains(d, phrase) {
			return true
		}
	}
	return false
}
