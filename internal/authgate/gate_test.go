package authgate_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aelexs/symptomcheck/internal/authgate"
	"github.com/aelexs/symptomcheck/internal/domain"
	"github.com/aelexs/symptomcheck/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var alice = domain.Credential{Token: "abc", Role: domain.RoleUser, Username: "alice"}

// recorder implements authgate.Notifier and authgate.Navigator.
type recorder struct {
	mu      sync.Mutex
	notices []string
	routes  []domain.Route
}

func (r *recorder) Notify(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, msg)
}

func (r *recorder) Navigate(_ context.Context, route domain.Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

// stubStore implements session.Store with function fields.
type stubStore struct {
	saveFn  func(ctx context.Context, cred domain.Credential) error
	loadFn  func(ctx context.Context) (domain.Credential, bool, error)
	clearFn func(ctx context.Context) error
}

func (s *stubStore) Save(ctx context.Context, cred domain.Credential) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, cred)
	}
	return nil
}

func (s *stubStore) Load(ctx context.Context) (domain.Credential, bool, error) {
	if s.loadFn != nil {
		return s.loadFn(ctx)
	}
	return domain.Credential{}, false, nil
}

func (s *stubStore) Clear(ctx context.Context) error {
	if s.clearFn != nil {
		return s.clearFn(ctx)
	}
	return nil
}

type testHarness struct {
	gate  *authgate.Gate
	store session.Store
	rec   *recorder
}

func newTestHarness(t *testing.T, store session.Store) *testHarness {
	t.Helper()

	rec := &recorder{}
	return &testHarness{
		gate:  authgate.New(authgate.Config{Store: store, Notifier: rec, Navigator: rec}),
		store: store,
		rec:   rec,
	}
}

func unauthorized(detail string) authgate.Response {
	return authgate.Response{
		StatusCode: http.StatusUnauthorized,
		Body:       []byte(`{"detail":"` + detail + `"}`),
	}
}

func TestGateHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("non-401 is not handled and has no side effect", func(t *testing.T) {
		h := newTestHarness(t, session.NewMemoryStore())
		require.NoError(t, h.store.Save(ctx, alice))

		handled := h.gate.Handle(ctx, authgate.Response{StatusCode: http.StatusOK, Body: []byte(`{}`)}, alice.Token)

		assert.False(t, handled)
		got, ok, err := h.store.Load(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, alice, got)
		assert.Empty(t, h.rec.notices)
		assert.Empty(t, h.rec.routes)
	})

	t.Run("expired token clears session and navigates to login once", func(t *testing.T) {
		h := newTestHarness(t, session.NewMemoryStore())
		require.NoError(t, h.store.Save(ctx, alice))

		handled := h.gate.Handle(ctx, unauthorized("Token has expired"), alice.Token)

		assert.True(t, handled)
		_, ok, err := h.store.Load(ctx)
		require.NoError(t, err)
		assert.False(t, ok, "session should be cleared")
		assert.Equal(t, []string{domain.MsgSessionExpired}, h.rec.notices)
		assert.Equal(t, []domain.Route{domain.RouteLogin}, h.rec.routes)
	})

	t.Run("insufficient permissions leaves session intact", func(t *testing.T) {
		h := newTestHarness(t, session.NewMemoryStore())
		require.NoError(t, h.store.Save(ctx, alice))

		handled := h.gate.Handle(ctx, unauthorized("insufficient permissions"), alice.Token)

		assert.False(t, handled)
		got, ok, err := h.store.Load(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, alice, got)
		assert.Empty(t, h.rec.routes)
	})

	t.Run("unauthenticated request still runs the full sequence", func(t *testing.T) {
		h := newTestHarness(t, session.NewMemoryStore())

		handled := h.gate.Handle(ctx, unauthorized("Not authenticated"), "")

		assert.True(t, handled)
		assert.Equal(t, []domain.Route{domain.RouteLogin}, h.rec.routes)
	})

	t.Run("stale response after session already cleared does nothing", func(t *testing.T) {
		h := newTestHarness(t, session.NewMemoryStore())
		require.NoError(t, h.store.Save(ctx, alice))

		require.True(t, h.gate.Handle(ctx, unauthorized("token_expired"), alice.Token))
		require.True(t, h.gate.Handle(ctx, unauthorized("token_expired"), alice.Token))

		assert.Len(t, h.rec.routes, 1, "navigation must happen once")
		assert.Len(t, h.rec.notices, 1)
	})

	t.Run("stale response does not evict a newer session", func(t *testing.T) {
		h := newTestHarness(t, session.NewMemoryStore())
		fresh := domain.Credential{Token: "new-token", Role: domain.RoleUser, Username: "alice"}
		require.NoError(t, h.store.Save(ctx, fresh))

		handled := h.gate.Handle(ctx, unauthorized("User logged out or token invalid"), alice.Token)

		assert.True(t, handled)
		got, ok, err := h.store.Load(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, fresh, got)
		assert.Empty(t, h.rec.routes)
	})

	t.Run("store failures do not escape", func(t *testing.T) {
		cleared := false
		store := &stubStore{
			loadFn: func(_ context.Context) (domain.Credential, bool, error) {
				return domain.Credential{}, false, errors.New("redis timeout")
			},
			clearFn: func(_ context.Context) error {
				cleared = true
				return errors.New("redis timeout")
			},
		}
		h := newTestHarness(t, store)

		handled := h.gate.Handle(ctx, unauthorized("Invalid token"), alice.Token)

		assert.True(t, handled)
		assert.True(t, cleared, "clear should still be attempted")
		assert.Equal(t, []domain.Route{domain.RouteLogin}, h.rec.routes)
	})

	t.Run("concurrent duplicates navigate once", func(t *testing.T) {
		h := newTestHarness(t, session.NewMemoryStore())
		require.NoError(t, h.store.Save(ctx, alice))

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.True(t, h.gate.Handle(ctx, unauthorized("token_expired"), alice.Token))
			}()
		}
		wg.Wait()

		assert.Len(t, h.rec.routes, 1)
	})
}
