// Package session holds the single-slot credential store of the client.
// A store keeps exactly one Credential per API origin; it never returns a
// partially populated record.
package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aelexs/symptomcheck/internal/domain"
)

// Store is the entire contract the rest of the client sees.
type Store interface {
	// Save writes all three fields, overwriting any prior session.
	Save(ctx context.Context, cred domain.Credential) error
	// Load returns the stored credential and true, or false when no complete
	// session exists.
	Load(ctx context.Context) (domain.Credential, bool, error)
	// Clear removes every session field. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// record is the persisted shape: three scalar entries.
type record map[string]string

func toRecord(cred domain.Credential) record {
	return record{
		domain.KeyToken:    cred.Token.Expose(),
		domain.KeyRole:     string(cred.Role),
		domain.KeyUsername: cred.Username,
	}
}

// fromRecord rebuilds a credential. Inconsistent storage (missing or empty
// entries, unknown role) is reported as absent.
func fromRecord(r record) (domain.Credential, bool) {
	cred := domain.Credential{
		Token:    domain.SecretString(r[domain.KeyToken]),
		Role:     domain.Role(r[domain.KeyRole]),
		Username: r[domain.KeyUsername],
	}
	if !cred.Complete() {
		return domain.Credential{}, false
	}
	return cred, true
}

// OriginKey reduces an API base URL to scheme://host[:port], the key under
// which a session is stored.
func OriginKey(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base url %q must include scheme and host", baseURL)
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}
