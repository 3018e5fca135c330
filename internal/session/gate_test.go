package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/agrogestion/internal/mocks"
	"github.com/dtroode/agrogestion/internal/model"
	"github.com/dtroode/agrogestion/internal/testutil"
)

func waitResolved(t *testing.T, g *Gate) model.Session {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := g.Wait(ctx)
	require.NoError(t, err)
	return s
}

func identity(email string) model.Identity {
	return model.Identity{ID: uuid.New(), Email: email, AccessToken: "acc-" + email}
}

func grantFor(u model.Identity) model.Grant {
	return model.Grant{UserID: u.ID, RefreshToken: "rt-" + u.Email}
}

func TestGate_Initialize_ResolvesOnce(t *testing.T) {
	t.Parallel()

	u1 := identity("u1@farm.test")
	tests := []struct {
		name      string
		ident     model.Identity
		ok        bool
		err       error
		wantState model.AppState
	}{
		{name: "persisted identity", ident: u1, ok: true, wantState: model.StateAuthenticated},
		{name: "no persisted session", ok: false, wantState: model.StateUnauthenticated},
		{name: "lookup failure", err: errors.New("corrupted token"), wantState: model.StateUnauthenticated},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			backend := mocks.NewCredentialBackend(t)
			backend.On("CheckPersistedSession", mock.Anything).Return(tt.ident, tt.ok, tt.err).Once()

			g := NewGate(backend, testutil.MakeNoopLogger())

			var mu sync.Mutex
			var seen []model.Session
			g.Subscribe(func(s model.Session) {
				mu.Lock()
				seen = append(seen, s)
				mu.Unlock()
			})

			require.NoError(t, g.Initialize(context.Background()))
			s := waitResolved(t, g)

			assert.Equal(t, tt.wantState, s.State())
			assert.Equal(t, model.StatusResolved, s.Status)

			mu.Lock()
			defer mu.Unlock()
			require.Len(t, seen, 2)
			assert.Equal(t, model.StatusLoading, seen[0].Status)
			assert.Equal(t, model.StatusResolved, seen[1].Status)
			assert.Less(t, seen[0].Version, seen[1].Version)

			assert.ErrorIs(t, g.Initialize(context.Background()), model.ErrAlreadyInitialized)
		})
	}
}

func TestGate_Initialize_PanickingLookupStillResolves(t *testing.T) {
	t.Parallel()

	backend := mocks.NewCredentialBackend(t)
	backend.On("CheckPersistedSession", mock.Anything).Run(func(mock.Arguments) {
		panic("malformed token")
	}).Return(model.Identity{}, false, nil)

	g := NewGate(backend, testutil.MakeNoopLogger())
	require.NoError(t, g.Initialize(context.Background()))

	s := waitResolved(t, g)
	assert.Equal(t, model.StateUnauthenticated, s.State())
}

func TestGate_Session_BeforeInitialize(t *testing.T) {
	t.Parallel()

	g := NewGate(mocks.NewCredentialBackend(t), testutil.MakeNoopLogger())

	_, ok := g.Session()
	assert.False(t, ok)

	_, err := g.Wait(context.Background())
	assert.ErrorIs(t, err, model.ErrSessionLoading)

	_, err = g.Login(context.Background(), model.Credentials{Email: "a@b.c", Password: "p"})
	assert.ErrorIs(t, err, model.ErrSessionLoading)
}

func TestGate_LoadingUntilLookupCompletes(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	backend := mocks.NewCredentialBackend(t)
	backend.On("CheckPersistedSession", mock.Anything).Run(func(mock.Arguments) { <-release }).Return(model.Identity{}, false, nil)

	g := NewGate(backend, testutil.MakeNoopLogger())
	require.NoError(t, g.Initialize(context.Background()))

	s, ok := g.Session()
	require.True(t, ok)
	assert.Equal(t, model.StateLoading, s.State())

	close(release)
	s = waitResolved(t, g)
	assert.Equal(t, model.StateUnauthenticated, s.State())
}

func TestGate_Login(t *testing.T) {
	t.Parallel()

	u := identity("agro@farm.test")
	creds := model.Credentials{Email: u.Email, Password: "secret"}

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		backend := mocks.NewCredentialBackend(t)
		backend.On("CheckPersistedSession", mock.Anything).Return(model.Identity{}, false, nil)
		backend.On("Authenticate", mock.Anything, creds).Return(u, grantFor(u), nil)
		backend.On("Persist", mock.Anything, grantFor(u)).Return(nil).Once()

		g := NewGate(backend, testutil.MakeNoopLogger())
		require.NoError(t, g.Initialize(context.Background()))
		before := waitResolved(t, g)

		got, err := g.Login(context.Background(), creds)
		require.NoError(t, err)
		assert.Equal(t, u, got)

		after, _ := g.Session()
		assert.Equal(t, model.StateAuthenticated, after.State())
		assert.Equal(t, model.StatusResolved, after.Status)
		assert.Greater(t, after.Version, before.Version)
		assert.False(t, g.Busy())
	})

	t.Run("invalid credentials leave session unchanged", func(t *testing.T) {
		t.Parallel()

		backend := mocks.NewCredentialBackend(t)
		backend.On("CheckPersistedSession", mock.Anything).Return(model.Identity{}, false, nil)
		backend.On("Authenticate", mock.Anything, creds).Return(model.Identity{}, model.Grant{}, model.ErrInvalidCredentials).Once()
		backend.On("Authenticate", mock.Anything, creds).Return(u, grantFor(u), nil).Once()
		backend.On("Persist", mock.Anything, grantFor(u)).Return(nil).Once()

		g := NewGate(backend, testutil.MakeNoopLogger())
		require.NoError(t, g.Initialize(context.Background()))
		before := waitResolved(t, g)

		_, err := g.Login(context.Background(), creds)
		require.ErrorIs(t, err, model.ErrInvalidCredentials)

		after, _ := g.Session()
		assert.Equal(t, before, after)

		_, err = g.Login(context.Background(), creds)
		require.NoError(t, err)
	})

	t.Run("empty credentials never reach the backend", func(t *testing.T) {
		t.Parallel()

		backend := mocks.NewCredentialBackend(t)
		g := NewGate(backend, testutil.MakeNoopLogger())

		_, err := g.Login(context.Background(), model.Credentials{Email: "", Password: "x"})
		assert.ErrorIs(t, err, model.ErrEmptyCredentials)
	})

	t.Run("persist failure keeps the identity", func(t *testing.T) {
		t.Parallel()

		backend := mocks.NewCredentialBackend(t)
		backend.On("CheckPersistedSession", mock.Anything).Return(model.Identity{}, false, nil)
		backend.On("Authenticate", mock.Anything, creds).Return(u, grantFor(u), nil)
		backend.On("Persist", mock.Anything, grantFor(u)).Return(assert.AnError)

		g := NewGate(backend, testutil.MakeNoopLogger())
		require.NoError(t, g.Initialize(context.Background()))
		waitResolved(t, g)

		_, err := g.Login(context.Background(), creds)
		require.NoError(t, err)

		s, _ := g.Session()
		assert.Equal(t, model.StateAuthenticated, s.State())
	})

	t.Run("backend failure is wrapped", func(t *testing.T) {
		t.Parallel()

		backend := mocks.NewCredentialBackend(t)
		backend.On("CheckPersistedSession", mock.Anything).Return(model.Identity{}, false, nil)
		backend.On("Authenticate", mock.Anything, creds).Return(model.Identity{}, model.Grant{}, assert.AnError)

		g := NewGate(backend, testutil.MakeNoopLogger())
		require.NoError(t, g.Initialize(context.Background()))
		waitResolved(t, g)

		_, err := g.Login(context.Background(), creds)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

// sequencedBackend releases each Authenticate call when its email's channel is
// closed. Persisted grants survive across gates sharing the backend.
type sequencedBackend struct {
	release map[string]chan struct{}
	started chan string
	ids     map[string]model.Identity

	mu        sync.Mutex
	persisted *model.Grant
	discarded []model.Grant
}

func newSequencedBackend(ids ...model.Identity) *sequencedBackend {
	b := &sequencedBackend{
		release: make(map[string]chan struct{}, len(ids)),
		started: make(chan string, len(ids)),
		ids:     make(map[string]model.Identity, len(ids)),
	}
	for _, id := range ids {
		b.release[id.Email] = make(chan struct{})
		b.ids[id.Email] = id
	}
	return b
}

func (b *sequencedBackend) CheckPersistedSession(context.Context) (model.Identity, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.persisted == nil {
		return model.Identity{}, false, nil
	}
	for _, id := range b.ids {
		if id.ID == b.persisted.UserID {
			return id, true, nil
		}
	}
	return model.Identity{}, false, nil
}

func (b *sequencedBackend) Authenticate(ctx context.Context, c model.Credentials) (model.Identity, model.Grant, error) {
	b.started <- c.Email
	<-b.release[c.Email]
	id := b.ids[c.Email]
	return id, grantFor(id), nil
}

func (b *sequencedBackend) Persist(_ context.Context, grant model.Grant) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.persisted = &grant
	return nil
}

func (b *sequencedBackend) Discard(_ context.Context, grant model.Grant) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.discarded = append(b.discarded, grant)
	return nil
}

func (b *sequencedBackend) EndSession(context.Context, model.Identity) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.persisted = nil
	return nil
}

func (b *sequencedBackend) state() (*model.Grant, []model.Grant) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.persisted, slices.Clone(b.discarded)
}

func TestGate_Login_LastInitiatedWins(t *testing.T) {
	t.Parallel()

	a, b := identity("a@farm.test"), identity("b@farm.test")
	backend := newSequencedBackend(a, b)

	g := NewGate(backend, testutil.MakeNoopLogger())
	require.NoError(t, g.Initialize(context.Background()))
	waitResolved(t, g)

	errA := make(chan error, 1)
	go func() {
		_, err := g.Login(context.Background(), model.Credentials{Email: a.Email, Password: "p"})
		errA <- err
	}()
	require.Equal(t, a.Email, <-backend.started)

	errB := make(chan error, 1)
	go func() {
		_, err := g.Login(context.Background(), model.Credentials{Email: b.Email, Password: "p"})
		errB <- err
	}()
	require.Equal(t, b.Email, <-backend.started)
	assert.True(t, g.Busy())

	close(backend.release[b.Email])
	require.NoError(t, <-errB)

	close(backend.release[a.Email])
	assert.ErrorIs(t, <-errA, model.ErrLoginSuperseded)

	s, _ := g.Session()
	require.NotNil(t, s.Identity)
	assert.Equal(t, b.ID, s.Identity.ID)

	persisted, discarded := backend.state()
	require.NotNil(t, persisted)
	assert.Equal(t, grantFor(b), *persisted)
	assert.Equal(t, []model.Grant{grantFor(a)}, discarded)
}

func TestGate_Logout(t *testing.T) {
	t.Parallel()

	u := identity("agro@farm.test")

	t.Run("clears identity and ends persisted session", func(t *testing.T) {
		t.Parallel()

		backend := mocks.NewCredentialBackend(t)
		backend.On("CheckPersistedSession", mock.Anything).Return(u, true, nil)
		backend.On("EndSession", mock.Anything, u).Return(assert.AnError)

		g := NewGate(backend, testutil.MakeNoopLogger())
		require.NoError(t, g.Initialize(context.Background()))
		require.Equal(t, model.StateAuthenticated, waitResolved(t, g).State())

		var states []model.AppState
		g.Subscribe(func(s model.Session) { states = append(states, s.State()) })

		require.NoError(t, g.Logout(context.Background()))

		s, _ := g.Session()
		assert.Equal(t, model.StateUnauthenticated, s.State())
		assert.Equal(t, model.StatusResolved, s.Status)
		assert.Equal(t, []model.AppState{model.StateUnauthenticated}, states)
	})

	t.Run("without identity is a no-op", func(t *testing.T) {
		t.Parallel()

		backend := mocks.NewCredentialBackend(t)
		backend.On("CheckPersistedSession", mock.Anything).Return(model.Identity{}, false, nil)

		g := NewGate(backend, testutil.MakeNoopLogger())
		require.NoError(t, g.Initialize(context.Background()))
		before := waitResolved(t, g)

		require.NoError(t, g.Logout(context.Background()))
		after, _ := g.Session()
		assert.Equal(t, before.Version, after.Version)
	})

	t.Run("while loading", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		defer close(release)
		backend := mocks.NewCredentialBackend(t)
		backend.On("CheckPersistedSession", mock.Anything).Run(func(mock.Arguments) { <-release }).Return(model.Identity{}, false, nil).Maybe()

		g := NewGate(backend, testutil.MakeNoopLogger())
		require.NoError(t, g.Initialize(context.Background()))

		assert.ErrorIs(t, g.Logout(context.Background()), model.ErrSessionLoading)
	})

	t.Run("discards in-flight login", func(t *testing.T) {
		t.Parallel()

		backend := newSequencedBackend(u)
		g := NewGate(backend, testutil.MakeNoopLogger())
		require.NoError(t, g.Initialize(context.Background()))
		waitResolved(t, g)

		errc := make(chan error, 1)
		go func() {
			_, err := g.Login(context.Background(), model.Credentials{Email: u.Email, Password: "p"})
			errc <- err
		}()
		<-backend.started

		require.NoError(t, g.Logout(context.Background()))
		close(backend.release[u.Email])

		assert.ErrorIs(t, <-errc, model.ErrLoginSuperseded)
		s, _ := g.Session()
		assert.Nil(t, s.Identity)

		persisted, discarded := backend.state()
		assert.Nil(t, persisted)
		assert.Equal(t, []model.Grant{grantFor(u)}, discarded)
	})
}

func TestGate_Restart(t *testing.T) {
	t.Parallel()

	u := identity("agro@farm.test")
	creds := model.Credentials{Email: u.Email, Password: "p"}

	restart := func(t *testing.T, backend model.CredentialBackend) model.Session {
		t.Helper()
		g := NewGate(backend, testutil.MakeNoopLogger())
		require.NoError(t, g.Initialize(context.Background()))
		return waitResolved(t, g)
	}

	t.Run("completed login is resumed", func(t *testing.T) {
		t.Parallel()

		backend := newSequencedBackend(u)
		close(backend.release[u.Email])

		g := NewGate(backend, testutil.MakeNoopLogger())
		require.NoError(t, g.Initialize(context.Background()))
		waitResolved(t, g)

		_, err := g.Login(context.Background(), creds)
		require.NoError(t, err)

		s := restart(t, backend)
		require.NotNil(t, s.Identity)
		assert.Equal(t, u.ID, s.Identity.ID)
	})

	t.Run("login discarded by logout is not resumed", func(t *testing.T) {
		t.Parallel()

		backend := newSequencedBackend(u)

		g := NewGate(backend, testutil.MakeNoopLogger())
		require.NoError(t, g.Initialize(context.Background()))
		waitResolved(t, g)

		errc := make(chan error, 1)
		go func() {
			_, err := g.Login(context.Background(), creds)
			errc <- err
		}()
		<-backend.started

		require.NoError(t, g.Logout(context.Background()))
		close(backend.release[u.Email])
		require.ErrorIs(t, <-errc, model.ErrLoginSuperseded)

		s := restart(t, backend)
		assert.Equal(t, model.StateUnauthenticated, s.State())
	})

	t.Run("logout after login is not resumed", func(t *testing.T) {
		t.Parallel()

		backend := newSequencedBackend(u)
		close(backend.release[u.Email])

		g := NewGate(backend, testutil.MakeNoopLogger())
		require.NoError(t, g.Initialize(context.Background()))
		waitResolved(t, g)

		_, err := g.Login(context.Background(), creds)
		require.NoError(t, err)
		require.NoError(t, g.Logout(context.Background()))

		s := restart(t, backend)
		assert.Equal(t, model.StateUnauthenticated, s.State())
	})
}

func TestGate_Subscribe_Unsubscribe(t *testing.T) {
	t.Parallel()

	backend := mocks.NewCredentialBackend(t)
	backend.On("CheckPersistedSession", mock.Anything).Return(model.Identity{}, false, nil)

	g := NewGate(backend, testutil.MakeNoopLogger())

	calls := 0
	unsubscribe := g.Subscribe(func(model.Session) { calls++ })
	unsubscribe()
	unsubscribe()

	require.NoError(t, g.Initialize(context.Background()))
	waitResolved(t, g)

	assert.Zero(t, calls)
}

func TestGate_ListenerSeesCommittedSession(t *testing.T) {
	t.Parallel()

	u := identity("agro@farm.test")
	backend := mocks.NewCredentialBackend(t)
	backend.On("CheckPersistedSession", mock.Anything).Return(u, true, nil)

	g := NewGate(backend, testutil.MakeNoopLogger())

	var mismatches int
	g.Subscribe(func(s model.Session) {
		cur, _ := g.Session()
		if cur.Version != s.Version {
			mismatches++
		}
	})

	require.NoError(t, g.Initialize(context.Background()))
	waitResolved(t, g)

	assert.Zero(t, mismatches)
}
