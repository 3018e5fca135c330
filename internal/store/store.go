// Package store holds the domain stores of the application and the tree that
// composes them in dependency order.
package store

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/dtroode/agrogestion/internal/model"
)

var (
	// ErrInvalid is returned when a mutation is given an invalid entity.
	ErrInvalid = errors.New("invalid entity")
	// ErrDuplicate is returned when an entity with the same key already exists.
	ErrDuplicate = errors.New("duplicate entity")
	// ErrInsufficientStock is returned when a stock movement would go negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrState is returned when an entity is not in a state that allows the operation.
	ErrState = errors.New("operation not allowed in current state")
	// ErrLoading is returned when a mutation reaches a store that is hydrating.
	ErrLoading = errors.New("store is loading")
)

// Status is the store-local busy/error flag.
type Status struct {
	Busy bool
	Err  error
}

// Store is a state container with serialized mutations and synchronous
// change notification. State values are shared with readers and must be
// treated as immutable; mutations build a new value.
type Store[S any] struct {
	notifyMu sync.Mutex

	mu    sync.Mutex
	state S
	busy  bool
	err   error
	gen   uint64
	// epoch is bumped by Reset only; mutations are bound to it.
	epoch     uint64
	listeners []storeListener[S]
	nextID    uint64
}

type storeListener[S any] struct {
	id uint64
	fn func(S)
}

// State returns the current state.
func (s *Store[S]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the busy/error flag.
func (s *Store[S]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{Busy: s.busy, Err: s.err}
}

// Subscribe registers a listener called after every committed change.
func (s *Store[S]) Subscribe(fn func(S)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, storeListener[S]{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.listeners = slices.DeleteFunc(s.listeners, func(l storeListener[S]) bool { return l.id == id })
		})
	}
}

// mutate applies fn on behalf of the identity in scope. Mutations of one
// store never run concurrently and are refused with ErrLoading while a
// hydration is in flight. The identity is bound to the store epoch it was
// read under: when a Reset lands before the commit, the mutation fails with
// ErrNoIdentity and the state is left as the reset made it. A non-nil error
// from fn leaves the state unchanged.
func (s *Store[S]) mutate(scope *Scope, fn func(cur S, actor model.Identity) (S, error)) error {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	actor, err := scope.Identity()
	if err != nil {
		return err
	}

	return s.commit(func(cur S) (S, bool, error) {
		if s.epoch != epoch {
			return cur, false, model.ErrNoIdentity
		}
		if s.busy {
			return cur, false, ErrLoading
		}
		next, err := fn(cur, actor)
		if err != nil {
			return cur, false, err
		}
		return next, true, nil
	})
}

// Reset drops the state and any in-flight hydration.
func (s *Store[S]) Reset() {
	_ = s.commit(func(S) (S, bool, error) {
		var zero S
		s.gen++
		s.epoch++
		s.busy = false
		s.err = nil
		return zero, true, nil
	})
}

// hydrate replaces the state with the result of load. The result is dropped
// when Reset or another hydrate ran in the meantime, or when ctx is done by
// the time it would be committed. A load failure is kept in the store status
// and returned.
func (s *Store[S]) hydrate(ctx context.Context, load func(ctx context.Context) (S, error)) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.busy = true
	s.err = nil
	s.mu.Unlock()

	next, err := load(ctx)

	stale := false
	result := err
	_ = s.commit(func(cur S) (S, bool, error) {
		if s.gen != gen {
			stale = true
			return cur, false, nil
		}
		s.busy = false
		if ctxErr := ctx.Err(); ctxErr != nil {
			result = ctxErr
			return cur, true, nil
		}
		if err != nil {
			s.err = err
			return cur, true, nil
		}
		return next, true, nil
	})
	if stale {
		return nil
	}

	return result
}

func (s *Store[S]) commit(apply func(cur S) (S, bool, error)) error {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next, changed, err := apply(s.state)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	s.state = next
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.fn(next)
	}

	return nil
}

// Scope gives identity-scoped stores access to the current identity.
type Scope struct {
	sessions model.SessionSource
	now      func() time.Time
}

// NewScope creates a scope reading identities from sessions. A nil clock defaults to time.Now.
func NewScope(sessions model.SessionSource, now func() time.Time) *Scope {
	if now == nil {
		now = time.Now
	}
	return &Scope{sessions: sessions, now: now}
}

// Identity returns the authenticated identity or ErrNoIdentity.
func (s *Scope) Identity() (model.Identity, error) {
	session, ok := s.sessions.Session()
	if !ok || !session.Authenticated() {
		return model.Identity{}, model.ErrNoIdentity
	}
	return *session.Identity, nil
}

// Now returns the scope clock reading.
func (s *Scope) Now() time.Time {
	return s.now()
}

// Handle is the uniform view of a domain store used by the tree.
type Handle interface {
	Domain() model.Domain
	Status() Status
	Reset()
	Hydrate(ctx context.Context, identity model.Identity) error
	Snapshot() any
}

// Fixture is the initial data of an identity's stores.
type Fixture struct {
	Products    []Product    `yaml:"products"`
	Transfers   []Transfer   `yaml:"transfers"`
	Fumigations []Fumigation `yaml:"fumigations"`
	Harvests    []Harvest    `yaml:"harvests"`
	Expenses    []Expense    `yaml:"expenses"`
	Members     []Member     `yaml:"members"`
}

// Loader loads the fixture of an identity.
type Loader interface {
	Load(ctx context.Context, identity model.Identity) (Fixture, error)
}

// NopLoader loads empty fixtures.
type NopLoader struct{}

// Load returns an empty fixture.
func (NopLoader) Load(context.Context, model.Identity) (Fixture, error) {
	return Fixture{}, nil
}

func loadWith[S any](loader Loader, identity model.Identity, pick func(Fixture) S) func(ctx context.Context) (S, error) {
	return func(ctx context.Context) (S, error) {
		f, err := loader.Load(ctx, identity)
		if err != nil {
			var zero S
			return zero, err
		}
		return pick(f), nil
	}
}
