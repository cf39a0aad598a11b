package session

import (
	"context"
	"sync"

	"github.com/aelexs/symptomcheck/internal/domain"
)

// Compile-time check: MemoryStore satisfies Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the session in process memory only.
type MemoryStore struct {
	mu  sync.Mutex
	rec record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = toRecord(cred)
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (domain.Credential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := fromRecord(s.rec)
	return cred, ok, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	return nil
}
