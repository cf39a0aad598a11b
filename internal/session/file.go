package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aelexs/symptomcheck/internal/domain"
)

const sessionsFileName = "sessions.json"

// Compile-time check: FileStore satisfies Store.
var _ Store = (*FileStore)(nil)

// FileStore persists sessions in a JSON file shared by all origins:
//
//	{"http://localhost:8000": {"token": "...", "role": "user", "username": "alice"}}
//
// Writes go to a temp file that is renamed over the original, so a reader
// sees either the previous or the new slot.
type FileStore struct {
	mu     sync.Mutex
	path   string
	origin string
}

// NewFileStore creates a FileStore for origin under dir. The directory is
// created on first Save.
func NewFileStore(dir, origin string) *FileStore {
	return &FileStore{
		path:   filepath.Join(dir, sessionsFileName),
		origin: origin,
	}
}

// DefaultDir returns the per-user config directory for session files.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, "symptomcheck"), nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(_ context.Context, cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.readAll()
	all[s.origin] = toRecord(cred)
	if err := s.writeAll(all); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context) (domain.Credential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := fromRecord(s.readAll()[s.origin])
	return cred, ok, nil
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.readAll()
	if _, ok := all[s.origin]; !ok {
		return nil
	}
	delete(all, s.origin)
	if err := s.writeAll(all); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// readAll returns the stored slots. A missing or unreadable file counts as empty.
func (s *FileStore) readAll() map[string]record {
	all := map[string]record{}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return all
	}
	if err := json.Unmarshal(b, &all); err != nil || all == nil {
		return map[string]record{}
	}
	return all
}

func (s *FileStore) writeAll(all map[string]record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	b, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), sessionsFileName+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	// No-op after a successful rename.
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmpName, s.path)
}
