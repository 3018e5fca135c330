// Package session implements the session gate: the process-wide owner of the
// authentication state that routing and identity-scoped stores depend on.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dtroode/agrogestion/internal/logger"
	"github.com/dtroode/agrogestion/internal/model"
)

var _ model.SessionSource = (*Gate)(nil)

type listener struct {
	id uint64
	fn func(model.Session)
}

// Gate resolves the persisted session once per process and reflects every
// later login and logout. Transitions are committed before listeners run, and
// listeners run synchronously in subscription order.
//
// Listeners must not call Initialize, Login or Logout.
type Gate struct {
	backend model.CredentialBackend
	logger  *logger.Logger

	// notifyMu serializes commit+broadcast so listeners observe transitions in order.
	notifyMu sync.Mutex
	// persistMu orders a login's Persist against a later logout's EndSession.
	// Acquired before notifyMu.
	persistMu sync.Mutex

	mu        sync.Mutex
	session   model.Session
	started   bool
	loginSeq  uint64
	inflight  int
	listeners []listener
	nextID    uint64
	done      chan struct{}
}

// NewGate creates a gate backed by the given credential backend.
func NewGate(backend model.CredentialBackend, logger *logger.Logger) *Gate {
	return &Gate{
		backend: backend,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Initialize moves the session into the loading state and starts the
// persisted session lookup. It must be called exactly once.
func (g *Gate) Initialize(ctx context.Context) error {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return model.ErrAlreadyInitialized
	}
	g.started = true
	g.mu.Unlock()

	g.commit(func(model.Session) (model.Session, bool) {
		return model.Session{Status: model.StatusLoading}, true
	})
	g.logger.Debug("Gate: persisted session lookup started")

	go g.lookup(ctx)

	return nil
}

func (g *Gate) lookup(ctx context.Context) {
	var resolved *model.Identity

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Gate: persisted session lookup panicked", "panic", fmt.Sprint(r))
			resolved = nil
		}
		g.resolve(resolved)
	}()

	identity, ok, err := g.backend.CheckPersistedSession(ctx)
	if err != nil {
		g.logger.Warn("Gate: persisted session lookup failed, continuing unauthenticated",
			"error", err.Error())
		return
	}
	if ok {
		resolved = &identity
	}
}

func (g *Gate) resolve(identity *model.Identity) {
	s, _ := g.commit(func(model.Session) (model.Session, bool) {
		return model.Session{Status: model.StatusResolved, Identity: identity}, true
	})
	close(g.done)

	g.logger.Info("Gate: session resolved", "state", string(s.State()))
}

// Login performs an authentication exchange. On success the identity replaces
// the current one and its grant is persisted. Only the most recently
// initiated call may change the session: an earlier call that completes later
// gets ErrLoginSuperseded and its grant is discarded. A rejected exchange
// leaves the session unchanged.
func (g *Gate) Login(ctx context.Context, credentials model.Credentials) (model.Identity, error) {
	if err := credentials.Validate(); err != nil {
		return model.Identity{}, err
	}

	if _, err := g.Wait(ctx); err != nil {
		return model.Identity{}, err
	}

	g.mu.Lock()
	g.loginSeq++
	seq := g.loginSeq
	g.inflight++
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.inflight--
		g.mu.Unlock()
	}()

	identity, grant, err := g.backend.Authenticate(ctx, credentials)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			g.logger.Info("Gate: login rejected", "email", credentials.Email)
			return model.Identity{}, err
		}
		g.logger.Error("Gate: login failed", "email", credentials.Email, "error", err.Error())
		return model.Identity{}, fmt.Errorf("failed to authenticate: %w", err)
	}

	g.persistMu.Lock()
	defer g.persistMu.Unlock()

	_, applied := g.commit(func(cur model.Session) (model.Session, bool) {
		if g.loginSeq != seq {
			return cur, false
		}
		next := cur
		next.Identity = &identity
		return next, true
	})
	if !applied {
		g.logger.Info("Gate: login result discarded", "email", credentials.Email)
		if err := g.backend.Discard(ctx, grant); err != nil {
			g.logger.Warn("Gate: failed to discard grant", "user_id", identity.ID.String(), "error", err.Error())
		}
		return model.Identity{}, model.ErrLoginSuperseded
	}

	if err := g.backend.Persist(ctx, grant); err != nil {
		g.logger.Warn("Gate: failed to persist session, it will not survive a restart",
			"user_id", identity.ID.String(),
			"error", err.Error())
	}

	g.logger.Info("Gate: logged in", "user_id", identity.ID.String())

	return identity, nil
}

// Logout clears the identity and discards the result of any login still in
// flight. The backend is then asked to forget the persisted session; a
// failure there is logged and does not restore the identity.
func (g *Gate) Logout(ctx context.Context) error {
	var prev *model.Identity
	loading := false

	g.commit(func(cur model.Session) (model.Session, bool) {
		if cur.Status != model.StatusResolved {
			loading = true
			return cur, false
		}
		g.loginSeq++
		if cur.Identity == nil {
			return cur, false
		}
		prev = cur.Identity
		next := cur
		next.Identity = nil
		return next, true
	})
	if loading {
		return model.ErrSessionLoading
	}
	if prev == nil {
		return nil
	}

	g.logger.Info("Gate: logged out", "user_id", prev.ID.String())

	g.persistMu.Lock()
	defer g.persistMu.Unlock()

	if err := g.backend.EndSession(ctx, *prev); err != nil {
		g.logger.Warn("Gate: failed to end persisted session",
			"user_id", prev.ID.String(),
			"error", err.Error())
	}

	return nil
}

// Session returns the current session. ok is false before Initialize.
func (g *Gate) Session() (model.Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session, g.started
}

// Done is closed once the persisted session lookup has resolved.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}

// Wait blocks until the session is resolved.
func (g *Gate) Wait(ctx context.Context) (model.Session, error) {
	g.mu.Lock()
	started := g.started
	g.mu.Unlock()
	if !started {
		return model.Session{}, model.ErrSessionLoading
	}

	select {
	case <-g.done:
		s, _ := g.Session()
		return s, nil
	case <-ctx.Done():
		return model.Session{}, ctx.Err()
	}
}

// Busy reports whether a login exchange is in flight.
func (g *Gate) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight > 0
}

// Subscribe registers a listener for committed transitions.
func (g *Gate) Subscribe(fn func(model.Session)) func() {
	g.mu.Lock()
	g.nextID++
	id := g.nextID
	g.listeners = append(g.listeners, listener{id: id, fn: fn})
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			g.listeners = slices.DeleteFunc(g.listeners, func(l listener) bool { return l.id == id })
		})
	}
}

// commit applies a transition under the state lock and broadcasts the new
// value. apply returns false to leave the session untouched.
func (g *Gate) commit(apply func(cur model.Session) (model.Session, bool)) (model.Session, bool) {
	g.notifyMu.Lock()
	defer g.notifyMu.Unlock()

	g.mu.Lock()
	next, ok := apply(g.session)
	if !ok {
		cur := g.session
		g.mu.Unlock()
		return cur, false
	}
	next.Version = g.session.Version + 1
	g.session = next
	listeners := slices.Clone(g.listeners)
	g.mu.Unlock()

	for _, l := range listeners {
		l.fn(next)
	}

	return next, true
}
