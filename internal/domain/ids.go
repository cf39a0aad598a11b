package domain

import "github.com/google/uuid"

// NewRequestID returns a random identifier attached to outgoing API requests
// as X-Request-ID.
func NewRequestID() string {
	return uuid.NewString()
}
