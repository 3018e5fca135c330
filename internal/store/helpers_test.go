package store

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/agrogestion/internal/model"
)

var testNow = time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

type fakeSessions struct {
	mu        sync.Mutex
	session   model.Session
	listeners map[int]func(model.Session)
	nextID    int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		session:   model.Session{Status: model.StatusResolved, Version: 1},
		listeners: make(map[int]func(model.Session)),
	}
}

func (f *fakeSessions) Session() (model.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, true
}

func (f *fakeSessions) Subscribe(fn func(model.Session)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

func (f *fakeSessions) Wait(context.Context) (model.Session, error) {
	s, _ := f.Session()
	return s, nil
}

func (f *fakeSessions) set(identity *model.Identity) {
	f.mu.Lock()
	f.session = model.Session{Status: model.StatusResolved, Identity: identity, Version: f.session.Version + 1}
	s := f.session
	ids := make([]int, 0, len(f.listeners))
	for id := range f.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	listeners := make([]func(model.Session), 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, f.listeners[id])
	}
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

func (f *fakeSessions) login(identity model.Identity) { f.set(&identity) }

func (f *fakeSessions) logout() { f.set(nil) }

type fixtureLoader struct {
	mu       sync.Mutex
	fixtures map[string]Fixture
	err      error
	calls    int
}

func (l *fixtureLoader) Load(_ context.Context, identity model.Identity) (Fixture, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return Fixture{}, l.err
	}
	return l.fixtures[identity.Email], nil
}

func (l *fixtureLoader) setErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

type recordingAuditor struct {
	mu      sync.Mutex
	actions []string
}

func (a *recordingAuditor) Record(_ model.Domain, action, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
	return nil
}

func (a *recordingAuditor) recorded() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.actions)
}

func newIdentity(email string) model.Identity {
	return model.Identity{ID: uuid.New(), Email: email, AccessToken: "token-" + email}
}

func authenticatedScope(t *testing.T) (*Scope, *fakeSessions) {
	t.Helper()
	sessions := newFakeSessions()
	sessions.login(newIdentity("owner@farm.test"))
	return NewScope(sessions, testClock), sessions
}

func ptrTime(t time.Time) *time.Time { return &t }

func settle(t *testing.T, tree *Tree) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tree.Settle(ctx))
}
